package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validDevConfig() *Config {
	return &Config{
		Port:      "8480",
		JWTSecret: "your-secret-key-change-in-production",
		Env:       "development",
	}
}

func TestValidate_Development(t *testing.T) {
	cfg := validDevConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RequiredFields(t *testing.T) {
	cfg := validDevConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validDevConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProductionHardening(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "default secret rejected",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "short secret rejected",
			mutate: func(c *Config) {
				c.JWTSecret = "short"
			},
			wantErr: true,
		},
		{
			name: "default db password rejected",
			mutate: func(c *Config) {
				c.JWTSecret = "a-proper-production-secret-of-32ch"
				c.DBPassword = "password"
			},
			wantErr: true,
		},
		{
			name: "hardened config accepted",
			mutate: func(c *Config) {
				c.JWTSecret = "a-proper-production-secret-of-32ch"
				c.DBPassword = "s3cure-and-unique"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDevConfig()
			cfg.Env = "production"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
