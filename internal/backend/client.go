// Package backend talks to the assessment backend's REST API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/proctor-agent/internal/metrics"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
	"github.com/SAP-F-2025/proctor-agent/internal/validator"
)

// Backend is the set of boundary operations the session controller drives.
type Backend interface {
	ListAssignments(ctx context.Context) ([]models.Assignment, error)
	FetchQuestions(ctx context.Context, paperID int, participantID *int) ([]models.Question, error)
	StartSession(ctx context.Context, assignmentID int) error
	SubmitSession(ctx context.Context, assignmentID int, answers map[string][]string) error
	RequestRedo(ctx context.Context, assignmentID int) error
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	validate *validator.Validator
	logger   *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	h := &http.Client{}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{
		http:     h,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		validate: validator.New(),
		logger:   logger.With("component", "backend_client"),
	}
}

func (c *Client) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	var out []models.Assignment
	if err := c.do(ctx, "list assignments", http.MethodGet, "/my-assignments", nil, nil, &out); err != nil {
		return nil, err
	}
	valid, issues := c.validate.FilterAssignments(out)
	if len(issues) > 0 {
		c.logger.WarnContext(ctx, "Dropped malformed assignments", "dropped", len(out)-len(valid), "issues", issues)
	}
	return valid, nil
}

func (c *Client) FetchQuestions(ctx context.Context, paperID int, participantID *int) ([]models.Question, error) {
	q := url.Values{}
	if participantID != nil {
		q.Set("user_id", strconv.Itoa(*participantID))
	}
	var out struct {
		Questions []models.Question `json:"questions"`
	}
	path := fmt.Sprintf("/papers/%d/questions-with-options", paperID)
	if err := c.do(ctx, "fetch questions", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	valid, issues := c.validate.Question().FilterQuestions(out.Questions)
	if len(issues) > 0 {
		c.logger.WarnContext(ctx, "Question set has problems",
			"paper_id", paperID,
			"dropped", len(out.Questions)-len(valid),
			"issues", issues)
	}
	return valid, nil
}

func (c *Client) StartSession(ctx context.Context, assignmentID int) error {
	path := fmt.Sprintf("/start-assessment/%d", assignmentID)
	return c.do(ctx, "start session", http.MethodPost, path, nil, nil, nil)
}

func (c *Client) SubmitSession(ctx context.Context, assignmentID int, answers map[string][]string) error {
	path := fmt.Sprintf("/submit-assessment/%d", assignmentID)
	body := map[string]interface{}{"answers": answers}
	return c.do(ctx, "submit session", http.MethodPost, path, nil, body, nil)
}

func (c *Client) RequestRedo(ctx context.Context, assignmentID int) error {
	body := map[string]interface{}{"assignment_id": assignmentID}
	return c.do(ctx, "request redo", http.MethodPost, "/redo-request", nil, body, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out interface{}) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveBackend(op, start, err) }()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Backend request failed", "op", op, "path", path, "error", err)
		return &Error{Op: op, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		be := &Error{Op: op, StatusCode: res.StatusCode, Detail: readDetail(res.Body)}
		c.logger.WarnContext(ctx, "Backend returned error status",
			"op", op,
			"path", path,
			"status", res.StatusCode,
			"detail", be.Detail)
		return be
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} message. Validation
// errors carry a list there; it is kept as raw JSON text.
func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(data))
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	return string(body.Detail)
}
