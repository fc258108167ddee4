package config

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// NewLogger builds the root logger. Unknown levels fall back to info.
func (c LogConfig) NewLogger(name string) hclog.Logger {
	level := hclog.LevelFromString(c.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      level,
		Output:     os.Stderr,
		JSONFormat: c.Format == "json",
	})
}
