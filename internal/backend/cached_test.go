package backend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/proctor-agent/internal/cache"
	"github.com/SAP-F-2025/proctor-agent/internal/models"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) ListAssignments(ctx context.Context) ([]models.Assignment, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Assignment), args.Error(1)
}

func (m *mockBackend) FetchQuestions(ctx context.Context, paperID int, participantID *int) ([]models.Question, error) {
	args := m.Called(ctx, paperID, participantID)
	return args.Get(0).([]models.Question), args.Error(1)
}

func (m *mockBackend) StartSession(ctx context.Context, assignmentID int) error {
	return m.Called(ctx, assignmentID).Error(0)
}

func (m *mockBackend) SubmitSession(ctx context.Context, assignmentID int, answers map[string][]string) error {
	return m.Called(ctx, assignmentID, answers).Error(0)
}

func (m *mockBackend) RequestRedo(ctx context.Context, assignmentID int) error {
	return m.Called(ctx, assignmentID).Error(0)
}

// memCache is an in-memory cache.CacheService.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return errors.New("connection refused")
	}
	b, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memCache) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func TestCachedBackend_FetchQuestionsOncePerParticipant(t *testing.T) {
	next := &mockBackend{}
	questions := []models.Question{{ID: 1, Type: models.SingleChoice, Options: []models.Option{{Label: "A"}}}}
	next.On("FetchQuestions", mock.Anything, 3, mock.Anything).Return(questions, nil)

	b := NewCachedBackend(next, newMemCache(), time.Minute, testLogger())
	ctx := context.Background()
	alice, bob := 1, 2

	for i := 0; i < 3; i++ {
		got, err := b.FetchQuestions(ctx, 3, &alice)
		require.NoError(t, err)
		assert.Equal(t, questions, got)
	}
	_, err := b.FetchQuestions(ctx, 3, &bob)
	require.NoError(t, err)

	next.AssertNumberOfCalls(t, "FetchQuestions", 2)
}

func TestCachedBackend_CacheFailureFallsThrough(t *testing.T) {
	next := &mockBackend{}
	next.On("FetchQuestions", mock.Anything, 3, mock.Anything).Return([]models.Question{{ID: 1}}, nil)
	c := newMemCache()
	c.failGet = true

	b := NewCachedBackend(next, c, time.Minute, testLogger())
	for i := 0; i < 2; i++ {
		_, err := b.FetchQuestions(context.Background(), 3, nil)
		require.NoError(t, err)
	}
	next.AssertNumberOfCalls(t, "FetchQuestions", 2)
}

func TestCachedBackend_ErrorsAreNotCached(t *testing.T) {
	next := &mockBackend{}
	next.On("FetchQuestions", mock.Anything, 3, mock.Anything).
		Return([]models.Question(nil), &Error{Op: "fetch questions", StatusCode: 502}).Once()
	next.On("FetchQuestions", mock.Anything, 3, mock.Anything).Return([]models.Question{{ID: 1}}, nil).Once()

	b := NewCachedBackend(next, newMemCache(), time.Minute, testLogger())
	_, err := b.FetchQuestions(context.Background(), 3, nil)
	require.Error(t, err)

	got, err := b.FetchQuestions(context.Background(), 3, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCachedBackend_InvalidatePaper(t *testing.T) {
	next := &mockBackend{}
	next.On("FetchQuestions", mock.Anything, mock.Anything, mock.Anything).Return([]models.Question{{ID: 1}}, nil)
	b := NewCachedBackend(next, newMemCache(), time.Minute, testLogger())
	ctx := context.Background()

	_, _ = b.FetchQuestions(ctx, 3, nil)
	_, _ = b.FetchQuestions(ctx, 4, nil)
	require.NoError(t, b.InvalidatePaper(ctx, 3))
	_, _ = b.FetchQuestions(ctx, 3, nil)
	_, _ = b.FetchQuestions(ctx, 4, nil)

	next.AssertNumberOfCalls(t, "FetchQuestions", 3)
}

func TestCachedBackend_PassesThroughOtherCalls(t *testing.T) {
	next := &mockBackend{}
	next.On("StartSession", mock.Anything, 8).Return(nil)
	b := NewCachedBackend(next, newMemCache(), 0, testLogger())

	require.NoError(t, b.StartSession(context.Background(), 8))
	next.AssertExpectations(t)
}
