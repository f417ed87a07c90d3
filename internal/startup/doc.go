// Package startup provides the structured console banner, build info, and
// ordered startup/shutdown step logging used by cmd/ottserver's main.go.
// Environment-variable configuration loading lives in internal/config.
package startup
