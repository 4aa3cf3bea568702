package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/danielgtaylor/huma/v2/casing"
	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	LineName      string   `toml:"line.name" env:"LINE_NAME"`
	LineActiveLow bool     `toml:"line.active_low" env:"LINE_ACTIVE_LOW"`
	ServerPort    int      `toml:"server.port" env:"SERVER_PORT"`
	Tags          []string `toml:"misc.tags" env:"TAGS"`
	LoggingAPI    string   `toml:"logging.api" env:"LOGGING_API"`
	Untagged      string
}

func writeTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeTOML(t, `
[line]
name = "LED1"
active_low = true

[server]
port = 9000

[misc]
tags = ["a", "b"]
`)

	opts := &testOptions{Config: path, Untagged: "keep"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.LineName != "LED1" {
		t.Errorf("LineName = %q, want LED1", opts.LineName)
	}
	if !opts.LineActiveLow {
		t.Error("LineActiveLow = false, want true")
	}
	if opts.ServerPort != 9000 {
		t.Errorf("ServerPort = %d, want 9000", opts.ServerPort)
	}
	if !reflect.DeepEqual(opts.Tags, []string{"a", "b"}) {
		t.Errorf("Tags = %v", opts.Tags)
	}
	if opts.Untagged != "keep" {
		t.Errorf("Untagged = %q, want keep", opts.Untagged)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeTOML(t, "[line]\nname = \"toml\"\nactive_low = true\n")
	t.Setenv("GPIOLED_LINE_NAME", "env")
	t.Setenv("GPIOLED_TAGS", "x, y")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.LineName != "env" {
		t.Errorf("LineName = %q, want env", opts.LineName)
	}
	if !opts.LineActiveLow {
		t.Error("TOML value lost when no env override")
	}
	if !reflect.DeepEqual(opts.Tags, []string{"x", "y"}) {
		t.Errorf("Tags = %v", opts.Tags)
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	path := writeTOML(t, "[line]\nname = \"toml\"\n")
	t.Setenv("GPIOLED_LINE_NAME", "env")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.LineName, "line-name", "", "")
	if err := cmd.Flags().Set("line-name", "cli"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.LineName != "cli" {
		t.Errorf("LineName = %q, want cli", opts.LineName)
	}
}

func TestLoadConfigCLIWinsForAcronymField(t *testing.T) {
	path := writeTOML(t, "[logging]\napi = \"error\"\n")
	t.Setenv("GPIOLED_LOGGING_API", "warn")

	opts := &testOptions{Config: path}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&opts.LoggingAPI, casing.Kebab("LoggingAPI"), "info", "")
	if err := cmd.Flags().Set("logging-api", "debug"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.LoggingAPI != "debug" {
		t.Errorf("LoggingAPI = %q, want debug", opts.LoggingAPI)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
		env  map[string]string
	}{
		{name: "bad toml", toml: "[line\nname="},
		{name: "wrong type", toml: "[line]\nactive_low = \"yes\"\n"},
		{name: "bad env bool", env: map[string]string{"GPIOLED_LINE_ACTIVE_LOW": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{}
			if tt.toml != "" {
				opts.Config = writeTOML(t, tt.toml)
			}
			if err := LoadConfig(opts, nil); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := LoadConfig(testOptions{}, nil); err == nil {
		t.Error("expected error for non-pointer")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: filepath.Join(t.TempDir(), "absent.toml"), LineName: "default"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if opts.LineName != "default" {
		t.Errorf("LineName = %q, want default", opts.LineName)
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":          "port",
		"LineActiveLow": "line-active-low",
		"LoggingLevel":  "logging-level",
		"LoggingAPI":    "logging-api",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeTOML(t, `
[logging]
level = "debug"
format = "json"
endpoint = "warn"
ignored = 3
`)

	cfg, err := LoadLoggingConfig(path)
	if err != nil {
		t.Fatalf("LoadLoggingConfig failed: %v", err)
	}
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	if cfg.Modules["endpoint"] != "warn" {
		t.Errorf("Modules = %v", cfg.Modules)
	}
	if _, ok := cfg.Modules["ignored"]; ok {
		t.Error("non-string key should be skipped")
	}

	cfg, err = LoadLoggingConfig("")
	if err != nil || cfg.Level != "info" {
		t.Errorf("empty path: %+v, %v", cfg, err)
	}
}
