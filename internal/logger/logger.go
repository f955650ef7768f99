package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the component-tagged logging contract used across the application
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// ParseLevel maps a config or environment value to a zerolog level, defaulting to info
func ParseLevel(value string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nop struct{}

// Nop returns a Logger that discards everything
func Nop() Logger { return nop{} }

func (nop) Debug(string, string, map[string]interface{})   {}
func (nop) Info(string, string, map[string]interface{})    {}
func (nop) Warning(string, string, map[string]interface{}) {}
func (nop) Error(string, error, map[string]interface{})    {}
