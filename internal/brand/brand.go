// Package brand holds the product identity shared by the binary, its logs
// and packaging. The identity lives in brand.json, embedded at build time.
package brand

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed brand.json
var identityJSON []byte

type identity struct {
	Name       string `json:"name"`
	Binary     string `json:"binary"`
	Summary    string `json:"summary"`
	EnvPrefix  string `json:"envPrefix"`
	ConfigDir  string `json:"configDir"`
	ConfigFile string `json:"configFile"`
}

var (
	Name             string
	BinaryName       string
	Summary          string
	ConfigEnvPrefix  string
	DefaultConfigDir string
	ConfigFileName   string
)

// Set at build time via -ldflags "-X grimm.is/qdiscwatch/internal/brand.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func init() {
	var id identity
	if err := json.Unmarshal(identityJSON, &id); err != nil {
		panic("brand.json: " + err.Error())
	}
	Name = id.Name
	BinaryName = id.Binary
	Summary = id.Summary
	ConfigEnvPrefix = id.EnvPrefix
	DefaultConfigDir = id.ConfigDir
	ConfigFileName = id.ConfigFile
}

// VersionString is the -version output.
func VersionString() string {
	return fmt.Sprintf("%s %s (%s, built %s)", Name, Version, GitCommit, BuildTime)
}

// GetConfigDir resolves the config directory:
// $QDISCWATCH_CONFIG_DIR, then $QDISCWATCH_PREFIX/config, then /etc/qdiscwatch.
func GetConfigDir() string {
	if dir := os.Getenv(ConfigEnvPrefix + "_CONFIG_DIR"); dir != "" {
		return dir
	}
	if prefix := os.Getenv(ConfigEnvPrefix + "_PREFIX"); prefix != "" {
		return filepath.Join(prefix, "config")
	}
	return DefaultConfigDir
}

// DefaultConfigPath is the config file read when -config is not given.
func DefaultConfigPath() string {
	return filepath.Join(GetConfigDir(), ConfigFileName)
}
