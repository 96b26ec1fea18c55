package pkg

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/SAP-F-2025/proctor-agent/internal/config"
)

// NewLogger builds the process logger: JSON in production, text with debug
// level otherwise. When LOG_FILE is set the output is also written to a
// rotating file. The returned closer flushes and closes that file.
func NewLogger(cfg *config.Config) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, file)
		closer = file
	}

	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})), closer
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug})), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
