package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateInterfaceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "eth0", false},
		{"with dash", "wan-0", false},
		{"with underscore", "eth_0", false},
		{"vlan", "eth0.100", false},
		{"max length", "enp0s31f6abcdef", false}, // 15 chars

		{"empty", "", true},
		{"too long", "eth01234567890123", true},
		{"dot", ".", true},
		{"dotdot", "..", true},
		{"space", "eth 0", true},
		{"slash", "eth/0", true},
		{"semicolon injection", "eth0;rm", true},
		{"newline", "eth0\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInterfaceName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNamespaceName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "edge", false},
		{"dotted", "vrf.blue", false},
		{"long", strings.Repeat("n", 255), false},

		{"empty", "", true},
		{"too long", strings.Repeat("n", 256), true},
		{"path traversal", "../etc", true},
		{"dotdot", "..", true},
		{"space", "my ns", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNamespaceName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAllowlist(t *testing.T) {
	assert.NoError(t, ValidateAllowlist("udp", []string{"udp", "tcp"}))
	err := ValidateAllowlist("sctp", []string{"udp", "tcp"})
	assert.ErrorContains(t, err, "udp, tcp")
}

func TestValidatePortNumber(t *testing.T) {
	assert.NoError(t, ValidatePortNumber(514))
	assert.NoError(t, ValidatePortNumber(65535))
	assert.Error(t, ValidatePortNumber(0))
	assert.Error(t, ValidatePortNumber(70000))
}

func TestValidateListenAddress(t *testing.T) {
	tests := []struct {
		addr    string
		wantErr bool
	}{
		{":9100", false},
		{"127.0.0.1:9100", false},
		{"[::1]:9100", false},
		{"localhost:9100", false},

		{"9100", true},
		{"127.0.0.1:0", true},
		{"127.0.0.1:http", true},
		{"example.com:9100", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			err := ValidateListenAddress(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
