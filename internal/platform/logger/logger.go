package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Level  string
	Format string // "json" or "text"
	Output io.Writer
}

func DefaultConfig() Config {
	return Config{Level: "info", Format: "json"}
}

// New builds a logger and installs the same settings on the logrus standard
// logger, so package-level logrus calls stay consistent.
func New(cfg Config) *logrus.Logger {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}

	var formatter logrus.Formatter
	switch cfg.Format {
	case "text":
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	default:
		formatter = &logrus.JSONFormatter{}
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(formatter)
	log.SetOutput(out)

	logrus.SetLevel(level)
	logrus.SetFormatter(formatter)
	logrus.SetOutput(out)

	return log
}

// Component returns an entry tagged with the component name.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", name)
}

// Discard is handy for tests that do not care about log output.
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
