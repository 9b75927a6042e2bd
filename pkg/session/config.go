package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/teslashibe/go-proctor/pkg/alert"
	"github.com/teslashibe/go-proctor/pkg/calibration"
	"github.com/teslashibe/go-proctor/pkg/gaze"
	"github.com/teslashibe/go-proctor/pkg/presence"
)

// Config holds the tunables of every monitor in a session
type Config struct {
	Alert       alert.Config
	Calibration calibration.Config
	Gaze        gaze.Config
	Presence    presence.Config

	// Violations kept in memory per session
	HistorySize int
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		Alert:       alert.DefaultConfig(),
		Calibration: calibration.DefaultConfig(),
		Gaze:        gaze.DefaultConfig(),
		Presence:    presence.DefaultConfig(),
		HistorySize: 500,
	}
}

// StrictConfig escalates faster on both gaze and presence
func StrictConfig() Config {
	cfg := DefaultConfig()
	cfg.Gaze = gaze.StrictConfig()
	cfg.Presence.Threshold = 4
	return cfg
}

// LenientConfig tolerates longer lapses
func LenientConfig() Config {
	cfg := DefaultConfig()
	cfg.Gaze = gaze.LenientConfig()
	cfg.Presence.Threshold = 12
	return cfg
}

// Preset returns the named configuration: "default", "strict" or "lenient"
func Preset(name string) (Config, error) {
	switch name {
	case "", "default":
		return DefaultConfig(), nil
	case "strict":
		return StrictConfig(), nil
	case "lenient":
		return LenientConfig(), nil
	}
	return Config{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// presenceMaxAge is how long a client-reported face count stays valid
func (c Config) presenceMaxAge() time.Duration {
	return 2 * c.Presence.Interval
}

// fileConfig is the on-disk layout of ~/.proctor/config.json
type fileConfig struct {
	Preset string `json:"preset,omitempty"`

	AlertDisplayMs       int `json:"alert_display_ms,omitempty"`
	CalibrationRestartMs int `json:"calibration_restart_ms,omitempty"`

	Gaze gaze.Config `json:"gaze"`

	PresenceIntervalMs int `json:"presence_interval_ms,omitempty"`
	PresenceThreshold  int `json:"presence_threshold,omitempty"`
	PresenceTimeoutMs  int `json:"presence_timeout_ms,omitempty"`

	HistorySize int `json:"history_size,omitempty"`
}

// DefaultConfigPath returns ~/.proctor/config.json
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".proctor", "config.json")
}

// LoadConfig reads a config file over the defaults. Only non-zero values
// in the file override. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("session: read config: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("session: parse config %s: %w", path, err)
	}

	if fc.Preset != "" {
		if cfg, err = Preset(fc.Preset); err != nil {
			return DefaultConfig(), err
		}
	}

	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	if fc.AlertDisplayMs > 0 {
		cfg.Alert.DisplayDuration = ms(fc.AlertDisplayMs)
	}
	if fc.CalibrationRestartMs > 0 {
		cfg.Calibration.RestartDelay = ms(fc.CalibrationRestartMs)
	}
	mergeGaze(&cfg.Gaze, fc.Gaze)
	if fc.PresenceIntervalMs > 0 {
		cfg.Presence.Interval = ms(fc.PresenceIntervalMs)
	}
	if fc.PresenceThreshold > 0 {
		cfg.Presence.Threshold = fc.PresenceThreshold
	}
	if fc.PresenceTimeoutMs > 0 {
		cfg.Presence.Timeout = ms(fc.PresenceTimeoutMs)
	}
	if fc.HistorySize > 0 {
		cfg.HistorySize = fc.HistorySize
	}

	return cfg, nil
}

func mergeGaze(dst *gaze.Config, src gaze.Config) {
	if src.Smoothing > 0 {
		dst.Smoothing = src.Smoothing
	}
	if src.EdgeMargin > 0 {
		dst.EdgeMargin = src.EdgeMargin
	}
	if src.ScreenSoft > 0 {
		dst.ScreenSoft = src.ScreenSoft
	}
	if src.ScreenHard > 0 {
		dst.ScreenHard = src.ScreenHard
	}
	if src.ZoneMarginX > 0 {
		dst.ZoneMarginX = src.ZoneMarginX
	}
	if src.ZoneMarginY > 0 {
		dst.ZoneMarginY = src.ZoneMarginY
	}
	if src.TaskSoft > 0 {
		dst.TaskSoft = src.TaskSoft
	}
	if src.TaskHard > 0 {
		dst.TaskHard = src.TaskHard
	}
}
