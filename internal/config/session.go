package config

import (
	"fmt"
	"os"
	"time"
)

type Sessions struct {
	// DBPath is the sqlite file holding game snapshots. Empty keeps
	// sessions in memory only.
	DBPath        string
	MaxIdle       time.Duration
	SweepInterval time.Duration
}

func NewSessions() (*Sessions, error) {
	maxIdle, err := envDuration("SESSION_MAX_IDLE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	interval, err := envDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	if maxIdle <= 0 || interval <= 0 {
		return nil, fmt.Errorf("session durations must be positive")
	}
	return &Sessions{
		DBPath:        os.Getenv("SESSION_DB_PATH"),
		MaxIdle:       maxIdle,
		SweepInterval: interval,
	}, nil
}
