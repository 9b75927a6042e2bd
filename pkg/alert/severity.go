// Package alert raises user-visible notifications with a single live alert,
// a re-armable auto-dismiss window and a mute flag for the sound channel.
package alert

import (
	"fmt"
	"strings"
)

// Severity orders alerts by intensity: Warning < Violation < Critical.
type Severity int

const (
	Warning Severity = iota
	Violation
	Critical
)

// String returns the wire name of the severity.
func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Violation:
		return "violation"
	case Critical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity parses a wire name back into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "warning":
		return Warning, nil
	case "violation":
		return Violation, nil
	case "critical":
		return Critical, nil
	}
	return Warning, fmt.Errorf("alert: unknown severity %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Cue is a sound played through the audio collaborator.
type Cue struct {
	Name   string  `json:"name"`
	Volume float64 `json:"volume"` // 0-1
}

// Cue catalogue.
var (
	CueWarning   = Cue{Name: "warning", Volume: 0.25}
	CueViolation = Cue{Name: "violation", Volume: 0.5}
	CueCritical  = Cue{Name: "critical", Volume: 0.7}
	CueClick     = Cue{Name: "warning", Volume: 0.18} // short click on the warning sample
)

// CueFor maps a severity to its sound channel.
func CueFor(s Severity) Cue {
	switch s {
	case Critical:
		return CueCritical
	case Violation:
		return CueViolation
	default:
		return CueWarning
	}
}
