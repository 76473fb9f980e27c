package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Driver != "memory" {
		t.Errorf("Store.Driver = %s, want memory", cfg.Store.Driver)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if len(cfg.Auth.APIKeys) == 0 {
		t.Error("expected at least one default API key")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGO_URI", "mongodb://db:27017")
	t.Setenv("MONGO_DATABASE", "shoes")
	t.Setenv("API_KEYS", "k1,k2,k3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("Port = %s, want 9999", cfg.Server.Port)
	}
	if cfg.Store.Driver != "mongo" {
		t.Errorf("Store.Driver = %s, want mongo", cfg.Store.Driver)
	}
	if len(cfg.Auth.APIKeys) != 3 {
		t.Errorf("APIKeys count = %d, want 3", len(cfg.Auth.APIKeys))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid memory config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: true,
		},
		{
			name:    "no api keys",
			mutate:  func(c *Config) { c.Auth.APIKeys = nil },
			wantErr: true,
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "cassandra" },
			wantErr: true,
		},
		{
			name: "mongo driver without uri",
			mutate: func(c *Config) {
				c.Store.Driver = "mongo"
				c.Store.MongoURI = ""
			},
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:   ServerConfig{Port: "8080", Host: "0.0.0.0"},
				Auth:     AuthConfig{APIKeys: []string{"apitest"}},
				Store:    StoreConfig{Driver: "memory", MongoURI: "mongodb://localhost:27017", MongoDatabase: "shoestore"},
				LogLevel: "info",
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
