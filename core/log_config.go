package core

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// init initializes the logging configuration based on the DEBUG_PAIRMATCH environment variable.
func init() {
	zerolog.SetGlobalLevel(LogLevel(os.Getenv("DEBUG_PAIRMATCH")))
}

// LogLevel maps a DEBUG_PAIRMATCH value to a zerolog level: "off" or "0" disables
// logging, "full" enables debug output, anything else means info.
func LogLevel(debugMode string) zerolog.Level {
	switch strings.TrimSpace(strings.ToLower(debugMode)) {
	case "off", "0":
		return zerolog.Disabled
	case "full":
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
