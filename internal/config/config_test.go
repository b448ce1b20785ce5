package config

import (
	"os"
	"testing"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "SOL_TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "SOL_TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "SOL_TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "SOL_TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "SOL_TEST_INT_3", "abc", 10, 10},
		{"uses default for zero", "SOL_TEST_INT_4", "0", 10, 10},
		{"uses default for negative", "SOL_TEST_INT_5", "-3", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestLoad_RequiresAdminSecret(t *testing.T) {
	for _, kv := range [][2]string{
		{"DATABASE_URL", "postgres://localhost/solvencia"},
		{"REDIS_URL", "redis://localhost:6379"},
		{"JWT_SECRET", "secret"},
		{"GEMINI_API_KEY", "key"},
	} {
		t.Setenv(kv[0], kv[1])
	}
	t.Setenv("ADMIN_PASSWORD_HASH", "")
	t.Setenv("ADMIN_PASSWORD", "")

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when no admin secret is configured")
		}
	}()

	Load()
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/solvencia")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("ADMIN_PASSWORD", "US-2025")
	t.Setenv("CONTEXT_CHAR_BUDGET", "")
	t.Setenv("HISTORY_WINDOW", "")

	cfg := Load()
	if cfg.ContextCharBudget != 30000 {
		t.Errorf("Expected default context budget 30000, got %d", cfg.ContextCharBudget)
	}
	if cfg.HistoryWindow != 5 {
		t.Errorf("Expected default history window 5, got %d", cfg.HistoryWindow)
	}
	if cfg.GeminiTTSModel == "" {
		t.Error("Expected a default TTS model")
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"", false},
		{"yes", false},
	}

	for _, tc := range tests {
		os.Setenv("SOL_TEST_BOOL", tc.value)
		if got := getEnvAsBool("SOL_TEST_BOOL"); got != tc.expected {
			t.Errorf("getEnvAsBool(%q) = %v, want %v", tc.value, got, tc.expected)
		}
	}
	os.Unsetenv("SOL_TEST_BOOL")
}
