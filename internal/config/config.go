// Package config provides environment helpers for go-proctor commands.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults used when the environment is silent.
const (
	DefaultPort       = "8080"
	DefaultLogLevel   = "info"
	DefaultKafkaTopic = "proctor.violations"
	DefaultModelPath  = "models/face_detection_yunet.onnx"
)

// Env holds everything the server reads from the environment.
type Env struct {
	Port         string
	LogLevel     string
	KafkaBrokers []string
	KafkaTopic   string
	ModelPath    string
	RemoteURL    string
	ConfigPath   string
	PollInterval time.Duration
}

// FromEnv reads PROCTOR_* variables, falling back to defaults.
func FromEnv() Env {
	return Env{
		Port:         String("PROCTOR_PORT", DefaultPort),
		LogLevel:     String("PROCTOR_LOG_LEVEL", DefaultLogLevel),
		KafkaBrokers: List("PROCTOR_KAFKA_BROKERS"),
		KafkaTopic:   String("PROCTOR_KAFKA_TOPIC", DefaultKafkaTopic),
		ModelPath:    String("PROCTOR_MODEL_PATH", DefaultModelPath),
		RemoteURL:    String("PROCTOR_REMOTE_URL", ""),
		ConfigPath:   String("PROCTOR_CONFIG", ""),
		PollInterval: Duration("PROCTOR_PRESENCE_INTERVAL", 0),
	}
}

// String returns the env var or def when unset or empty.
func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// List splits a comma separated env var, dropping empty items.
func List(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Duration parses a Go duration ("3s") or a bare millisecond count.
// Unparseable values fall back to def.
func Duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}
