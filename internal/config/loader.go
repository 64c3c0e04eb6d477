package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Format is a config file syntax.
type Format int

const (
	FormatHCL Format = iota
	FormatJSON
)

// DetectFormat picks the syntax from the file extension. Files with any
// other extension are JSON when they start with '{' and HCL otherwise.
func DetectFormat(path string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		return FormatHCL
	case ".json":
		return FormatJSON
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return FormatJSON
	}
	return FormatHCL
}

// LoadFile reads, parses, defaults and validates a config file. A missing
// file yields an error wrapping fs.ErrNotExist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, DetectFormat(path, data), filepath.Base(path))
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data without applying defaults. filename only labels HCL
// diagnostics. Unknown JSON keys are rejected, as HCL rejects unknown
// attributes.
func Parse(data []byte, format Format, filename string) (*Config, error) {
	var cfg Config
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalid, filename, err)
		}
	default:
		if !strings.HasSuffix(filename, ".hcl") {
			filename += ".hcl"
		}
		if err := hclsimple.Decode(filename, data, nil, &cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	return &cfg, nil
}
