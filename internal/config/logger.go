package config

import (
    "strings"

    "github.com/labstack/gommon/log"
)

// NewLogger returns a JSON logger with the given prefix and level name.
// Unknown levels fall back to INFO.
func NewLogger(prefix, level string) *log.Logger {
    l := log.New(prefix)
    l.SetHeader(`{"time":"${time_rfc3339_nano}","level":"${level}","prefix":"${prefix}"}`)
    l.SetLevel(ParseLogLevel(level))
    return l
}

// ParseLogLevel maps a level name to a gommon level.
func ParseLogLevel(level string) log.Lvl {
    switch strings.ToLower(strings.TrimSpace(level)) {
    case "debug":
        return log.DEBUG
    case "warn", "warning":
        return log.WARN
    case "error":
        return log.ERROR
    case "off":
        return log.OFF
    }
    return log.INFO
}
