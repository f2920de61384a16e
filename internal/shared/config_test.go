package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./librix.db" {
			t.Errorf("expected database path ./librix.db, got %s", config.Database.Path)
		}

		if config.API.PageSize != 2000 {
			t.Errorf("expected page size 2000, got %d", config.API.PageSize)
		}

		if config.API.BaseURL != "https://www.anilibria.tv" {
			t.Errorf("expected base url https://www.anilibria.tv, got %s", config.API.BaseURL)
		}

		if config.Sync.Locale != "ru" {
			t.Errorf("expected locale ru, got %s", config.Sync.Locale)
		}

		if config.Credentials.SessionToken != "" {
			t.Errorf("expected empty session token, got %s", config.Credentials.SessionToken)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "http://localhost:9000"
page_size = 50

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10

[credentials]
session_token = "abc123"

[sync]
interval_minutes = 5
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.API.PageSize != 50 {
			t.Errorf("expected page size 50, got %d", config.API.PageSize)
		}

		if config.Credentials.SessionToken != "abc123" {
			t.Errorf("expected session token abc123, got %s", config.Credentials.SessionToken)
		}

		if config.Sync.Interval() != 5*time.Minute {
			t.Errorf("expected interval 5m, got %v", config.Sync.Interval())
		}

		if config.Sync.Locale != "ru" {
			t.Errorf("expected missing locale to keep default ru, got %s", config.Sync.Locale)
		}
	})

	t.Run("LoadConfig Invalid", func(t *testing.T) {
		tc := []struct {
			name    string
			content string
		}{
			{name: "malformed toml", content: "[api\nbase_url = "},
			{name: "zero page size", content: "[api]\npage_size = 0\n"},
			{name: "empty database path", content: "[database]\npath = \"\"\n"},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Run("environment variables", func(t *testing.T) {
			t.Setenv(EnvSessionToken, "from-env")
			t.Setenv(EnvBaseURL, "http://env.example")
			t.Setenv(EnvPageSize, "25")
			t.Setenv(EnvLocale, "en")

			config := DefaultConfig()
			if err := config.ApplyEnv(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.Credentials.SessionToken != "from-env" {
				t.Errorf("expected session token from-env, got %s", config.Credentials.SessionToken)
			}
			if config.API.BaseURL != "http://env.example" {
				t.Errorf("expected base url override, got %s", config.API.BaseURL)
			}
			if config.API.PageSize != 25 {
				t.Errorf("expected page size 25, got %d", config.API.PageSize)
			}
			if config.Sync.Locale != "en" {
				t.Errorf("expected locale en, got %s", config.Sync.Locale)
			}
		})

		t.Run("dotenv file", func(t *testing.T) {
			t.Setenv(EnvDatabasePath, "")
			envPath := filepath.Join(t.TempDir(), ".env")
			if err := os.WriteFile(envPath, []byte(EnvDatabasePath+"=/tmp/from-dotenv.db\n"), 0644); err != nil {
				t.Fatalf("failed to write env file: %v", err)
			}
			os.Unsetenv(EnvDatabasePath)

			config := DefaultConfig()
			if err := config.ApplyEnv(envPath, filepath.Join(t.TempDir(), "missing.env")); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.Database.Path != "/tmp/from-dotenv.db" {
				t.Errorf("expected database path from dotenv, got %s", config.Database.Path)
			}
		})

		t.Run("invalid page size", func(t *testing.T) {
			t.Setenv(EnvPageSize, "many")

			config := DefaultConfig()
			if err := config.ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("Durations", func(t *testing.T) {
		var api APIConfig
		if api.Timeout() != time.Minute {
			t.Errorf("expected default timeout 1m, got %v", api.Timeout())
		}

		var sync SyncConfig
		if sync.Interval() != 30*time.Minute {
			t.Errorf("expected default interval 30m, got %v", sync.Interval())
		}
	})
}
