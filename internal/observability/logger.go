package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFile enables JSON logging to a rotated file next to the console output.
type LogFile struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

func (f LogFile) writer() io.Writer {
	return &lumberjack.Logger{
		Filename:   f.Path,
		MaxSize:    f.MaxSizeMB,
		MaxBackups: f.MaxBackups,
		MaxAge:     f.MaxAgeDays,
		Compress:   f.Compress,
	}
}

func InitLogger(app string) zerolog.Logger {
	return InitLoggerWith(app, os.Stdout, nil)
}

// InitLoggerWith writes console output to out and, when file is set, JSON
// lines to the rotated file.
func InitLoggerWith(app string, out io.Writer, file *LogFile) zerolog.Logger {
	var w io.Writer = zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	if file != nil && file.Path != "" {
		w = zerolog.MultiLevelWriter(w, file.writer())
	}
	logger := zerolog.New(w).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
