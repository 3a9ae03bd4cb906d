package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(ServiceUsers)

	if cfg.HTTPAddr != "0.0.0.0:3000" {
		t.Fatalf("users addr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "" {
		t.Fatalf("DatabaseURL = %q, want empty", cfg.DatabaseURL)
	}
	if !cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart default false")
	}
	if cfg.LoginAttemptsPerMinute != 10 {
		t.Fatalf("LoginAttemptsPerMinute = %v", cfg.LoginAttemptsPerMinute)
	}

	// The course service gets its own default port.
	if got := LoadConfig(ServiceCourses).HTTPAddr; got != "0.0.0.0:3001" {
		t.Fatalf("courses addr = %q", got)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("CAMPUS_HTTP_ADDR", "127.0.0.1:8080")
	t.Setenv("CAMPUS_HTTP_READ_TIMEOUT", "30s")
	t.Setenv("CAMPUS_DB_MIGRATE", "false")
	t.Setenv("CAMPUS_LOGIN_ATTEMPTS_PER_MINUTE", "2.5")

	cfg := LoadConfig(ServiceUsers)
	if cfg.HTTPAddr != "127.0.0.1:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if cfg.MigrateOnStart {
		t.Fatal("MigrateOnStart not overridden")
	}
	if cfg.LoginAttemptsPerMinute != 2.5 {
		t.Fatalf("LoginAttemptsPerMinute = %v", cfg.LoginAttemptsPerMinute)
	}
}

func TestEnvHelpersRejectGarbage(t *testing.T) {
	t.Setenv("CAMPUS_TEST_INT", "-3")
	if got := EnvInt("CAMPUS_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt negative = %d, want default", got)
	}

	t.Setenv("CAMPUS_TEST_BOOL", "maybe")
	if got := EnvBool("CAMPUS_TEST_BOOL", true); got != true {
		t.Fatal("EnvBool garbage did not fall back")
	}

	t.Setenv("CAMPUS_TEST_DUR", "fast")
	if got := EnvDuration("CAMPUS_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration garbage = %v, want default", got)
	}

	t.Setenv("CAMPUS_TEST_F", "0")
	if got := EnvFloat64("CAMPUS_TEST_F", 1.5); got != 1.5 {
		t.Fatalf("EnvFloat64 zero = %v, want default", got)
	}
}
