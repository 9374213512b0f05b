package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init configures the global logrus logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text formatter.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	if env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		logrus.SetLevel(logrus.DebugLevel)
	}

	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(lvl)
	}

	logrus.SetOutput(os.Stdout)
}

// Component returns a logger with the component field attached.
// Use this for all logging within a subsystem (bot, reminder, gateway, ...).
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

// WithSender returns a logger scoped to one chat sender's interaction.
func WithSender(logger *logrus.Entry, senderID string) *logrus.Entry {
	return logger.WithField("sender", senderID)
}
