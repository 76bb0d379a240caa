package config

import (
	"flag"
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// resetFlagSet создаёт новый FlagSet перед каждым вызовом NewConfig,
// чтобы избежать повторной регистрации одних и тех же флагов между тестами.
func resetFlagSet(t *testing.T, args ...string) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	// подавляем вывод парсера флагов в тестах
	flag.CommandLine.SetOutput(os.Stderr)
	old := os.Args
	os.Args = append([]string{old[0]}, args...)
	t.Cleanup(func() { os.Args = old })
}

// clearEnv обнуляет переменные окружения конфигурации на время теста
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_DRIVER", "DATABASE_URI", "BASE_URL", "ENABLE_HTTPS", "TLS_CERT_FILE", "TLS_KEY_FILE",
		"PATH_PREFIX", "MAX_BODY_MB", "REQUEST_TIMEOUT", "AUTH_SECRET", "ADMIN_LOGIN", "ADMIN_PASSWORD",
		"BCRYPT_COST", "RETENTION_DAYS", "UNMODIFIED_GUARD", "LOG_LEVEL", "LOG_FILE",
	} {
		t.Setenv(k, "")
	}
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	clearEnv(t)
	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.AuthSecret != "dev-secret-key" {
		t.Fatalf("AuthSecret default expected 'dev-secret-key', got %q", cfg.AuthSecret)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.DatabaseDSN != "weave.db" {
		t.Fatalf("database defaults expected sqlite/weave.db, got %q/%q", cfg.DatabaseDriver, cfg.DatabaseDSN)
	}
	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("BaseURL default expected 'localhost:8081', got %q", cfg.BaseURL)
	}
	if cfg.MaxBodyBytes() != 32<<20 {
		t.Fatalf("MaxBodyBytes default expected 32MB, got %d", cfg.MaxBodyBytes())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Fatalf("RequestTimeout default expected 30s, got %s", cfg.RequestTimeout)
	}
	if cfg.BcryptCost != bcrypt.DefaultCost {
		t.Fatalf("BcryptCost default expected %d, got %d", bcrypt.DefaultCost, cfg.BcryptCost)
	}
	if cfg.RetentionDays != 30 || cfg.GuardMode != "legacy" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: retention=%d guard=%q level=%q", cfg.RetentionDays, cfg.GuardMode, cfg.LogLevel)
	}
	if cfg.AdminEnabled() {
		t.Fatalf("admin API must be disabled without ADMIN_PASSWORD")
	}
}

func TestNewConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URI", "postgres://weave@db/weave")
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("AUTH_SECRET", "top")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	t.Setenv("PATH_PREFIX", "weave/")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("UNMODIFIED_GUARD", "STRICT")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("DatabaseDriver expected 'postgres', got %q", cfg.DatabaseDriver)
	}
	if cfg.BaseURL != "example.com:443" || !cfg.EnableHTTPS {
		t.Fatalf("BaseURL/HTTPS from env not applied: %q %v", cfg.BaseURL, cfg.EnableHTTPS)
	}
	if cfg.AuthSecret != "top" {
		t.Fatalf("AuthSecret expected from env 'top', got %q", cfg.AuthSecret)
	}
	if !cfg.AdminEnabled() || cfg.AdminLogin != "admin" {
		t.Fatalf("admin expected enabled with login 'admin', got %q", cfg.AdminLogin)
	}
	if cfg.PathPrefix != "/weave" {
		t.Fatalf("PathPrefix expected '/weave', got %q", cfg.PathPrefix)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("RequestTimeout expected 5s, got %s", cfg.RequestTimeout)
	}
	if cfg.GuardMode != "strict" {
		t.Fatalf("GuardMode expected 'strict', got %q", cfg.GuardMode)
	}
}

func TestNewConfig_FlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URI", "from-env.db")

	resetFlagSet(t, "-d", "from-flag.db", "-guard", "strict", "-retention-days", "7", "cleanup")
	cfg := NewConfig()

	if cfg.DatabaseDSN != "from-flag.db" {
		t.Fatalf("flag must override env, got %q", cfg.DatabaseDSN)
	}
	if cfg.GuardMode != "strict" || cfg.RetentionDays != 7 {
		t.Fatalf("flags not applied: guard=%q retention=%d", cfg.GuardMode, cfg.RetentionDays)
	}
	if got := flag.Args(); len(got) != 1 || got[0] != "cleanup" {
		t.Fatalf("positional args expected [cleanup], got %v", got)
	}
}

func TestNewConfig_InvalidValuesFallback(t *testing.T) {
	clearEnv(t)
	// Невалидный BASE_URL (со схемой) должен откатиться на localhost:8081
	t.Setenv("BASE_URL", "http://bad:8080")
	t.Setenv("DATABASE_DRIVER", "oracle")
	t.Setenv("BCRYPT_COST", "99")
	t.Setenv("UNMODIFIED_GUARD", "whatever")
	t.Setenv("PATH_PREFIX", "/")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("invalid BASE_URL must fallback to 'localhost:8081', got %q", cfg.BaseURL)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("unknown driver must fallback to sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.BcryptCost != bcrypt.DefaultCost {
		t.Fatalf("out of range cost must fallback, got %d", cfg.BcryptCost)
	}
	if cfg.GuardMode != "legacy" {
		t.Fatalf("unknown guard must fallback to legacy, got %q", cfg.GuardMode)
	}
	if cfg.PathPrefix != "" {
		t.Fatalf("root prefix must be empty, got %q", cfg.PathPrefix)
	}
}
