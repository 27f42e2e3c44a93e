// Package config provides environment helpers for go-tello commands.
package config

import (
	"os"
	"strconv"
)

// Defaults for droneapp settings that have no flag default elsewhere.
const (
	DefaultWebPort  = "5000"
	DefaultLogLevel = "info"
)

// DroneIP returns the drone IP from the DRONE_IP env var.
// Falls back to the provided default if not set.
func DroneIP(defaultIP string) string {
	return String("DRONE_IP", defaultIP)
}

// HostIP returns the local bind IP from the HOST_IP env var.
func HostIP(defaultIP string) string {
	return String("HOST_IP", defaultIP)
}

// WebPort returns the dashboard port from WEB_PORT.
func WebPort() string {
	return String("WEB_PORT", DefaultWebPort)
}

// LogLevel returns LOG_LEVEL or info.
func LogLevel() string {
	return String("LOG_LEVEL", DefaultLogLevel)
}

// String returns the env var named key, or def when unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Int returns the env var named key parsed as an int.
// Unset or malformed values yield def.
func Int(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Bool returns the env var named key parsed with strconv.ParseBool.
func Bool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
