// config/logger.go
package config

import (
	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

func InitLogger() {
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.SetLevel(logrus.InfoLevel)
}

// SetLogLevel applies a textual level such as "debug" or "warn".
// Unknown values leave the current level untouched.
func SetLogLevel(level string) {
	if level == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.Warn("Unknown log level, keeping current level:", level)
		return
	}
	Logger.SetLevel(parsed)
}
