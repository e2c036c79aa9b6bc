package config

import (
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.ShardCount != 4 {
		t.Errorf("ShardCount = %d, want 4", cfg.ShardCount)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize = %d, want 100", cfg.PageSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Format != "accesslog" {
		t.Errorf("Format = %q, want accesslog", cfg.Format)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("Addr() = %q, want :8080", cfg.Addr())
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LOGSCOPE_PORT", "9090")
	t.Setenv("LOGSCOPE_SHARDS", "6")
	t.Setenv("LOGSCOPE_PAGE_SIZE", "25")
	t.Setenv("LOGSCOPE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.ShardCount != 6 {
		t.Errorf("ShardCount = %d, want 6", cfg.ShardCount)
	}
	if cfg.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.PageSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestLoad_NonNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("LOGSCOPE_PORT", "not-a-port")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"LOGSCOPE_PORT":      "70000",
		"LOGSCOPE_SHARDS":    "0",
		"LOGSCOPE_PAGE_SIZE": "-5",
		"LOGSCOPE_LOG_LEVEL": "loud",
		"LOGSCOPE_FORMAT":    "xml",
	}

	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", key, value)
			}
		})
	}
}
