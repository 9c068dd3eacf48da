package config

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/snowzach/rotatefilehook"
)

func LogLevel() logrus.Level {
	if s, ok := os.LookupEnv("LOG_LEVEL"); ok {
		if level, err := logrus.ParseLevel(s); err == nil {
			return level
		}
	}
	if Development() {
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// SetupLogging configures log for the current environment: colored text in
// development, JSON otherwise. When LOG_FILE is set entries are also written
// to a rotated file.
func SetupLogging(log *logrus.Logger) error {
	log.SetLevel(LogLevel())
	if Development() {
		log.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	path, ok := os.LookupEnv("LOG_FILE")
	if !ok || path == "" {
		return nil
	}
	hook, err := rotatefilehook.NewRotateFileHook(rotatefilehook.RotateFileConfig{
		Filename:   path,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     28,
		Level:      log.Level,
		Formatter:  &logrus.JSONFormatter{},
	})
	if err != nil {
		return err
	}
	log.AddHook(hook)
	return nil
}
