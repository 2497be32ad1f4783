package simulator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const logFileName = "vtrain.log"

// NewLogger builds the run logger. It always writes to stderr and, when
// logging is enabled, appends to vtrain.log under the log directory. The
// returned closer releases the log file.
func NewLogger(opts *Options) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()
	logger.SetLevel(opts.logLevel)
	switch opts.logFormat {
	case JSONFormat:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if !opts.logEnabled {
		logger.SetOutput(os.Stderr)
		return logger, nopCloser{}, nil
	}

	if err := os.MkdirAll(opts.logDirPath, os.ModePerm); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	logPath := filepath.Join(opts.logDirPath, logFileName)
	fp, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, fp))
	return logger, fp, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
