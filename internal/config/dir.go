package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigDir overrides the configuration directory.
const EnvConfigDir = "REQBOX_CONFIG_DIR"

// Dir is where settings, logs and the file storage backend live.
func Dir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "reqbox")
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".reqbox")
	}
	return ".reqbox"
}
