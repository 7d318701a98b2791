package config

import (
	"testing"
	"time"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "access-secret-for-tests")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret-for-tests")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.JWT.AccessTokenTTL != 24*time.Hour {
		t.Errorf("expected default access TTL 24h, got %s", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("expected default refresh TTL 168h, got %s", cfg.JWT.RefreshTokenTTL)
	}
	if cfg.Lockout.MaxAttempts != 5 {
		t.Errorf("expected default max attempts 5, got %d", cfg.Lockout.MaxAttempts)
	}
	if cfg.Lockout.LockDuration != 2*time.Hour {
		t.Errorf("expected default lock duration 2h, got %s", cfg.Lockout.LockDuration)
	}
	if cfg.Sessions.MaxPerUser != 5 {
		t.Errorf("expected default session cap 5, got %d", cfg.Sessions.MaxPerUser)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when secrets are unset")
	}
}

func TestLoadLegacyAliases(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("JWT_EXPIRE", "1h")
	t.Setenv("JWT_REFRESH_EXPIRE", "7d")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")
	t.Setenv("LOCK_TIME", "7200000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.JWT.AccessSecret != "access-secret-for-tests" {
		t.Errorf("unexpected access secret %q", cfg.JWT.AccessSecret)
	}
	if cfg.JWT.AccessTokenTTL != time.Hour {
		t.Errorf("expected access TTL 1h, got %s", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("expected refresh TTL 168h from day shorthand, got %s", cfg.JWT.RefreshTokenTTL)
	}
	if cfg.Lockout.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", cfg.Lockout.MaxAttempts)
	}
	if cfg.Lockout.LockDuration != 2*time.Hour {
		t.Errorf("expected lock duration 2h from milliseconds, got %s", cfg.Lockout.LockDuration)
	}
}

func TestLoadPrefixedKeysWinOverAliases(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("AUTH_LOCKOUT_MAX_ATTEMPTS", "7")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Lockout.MaxAttempts != 7 {
		t.Errorf("expected prefixed key to win, got %d", cfg.Lockout.MaxAttempts)
	}
}

func TestParseLifetime(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{"7200000", 2 * time.Hour, true},
		{"7d", 7 * 24 * time.Hour, true},
		{"45m", 45 * time.Minute, true},
		{"1h30m", 90 * time.Minute, true},
		{"soon", 0, false},
	}

	for _, tc := range cases {
		got, ok := parseLifetime(tc.raw)
		if ok != tc.ok {
			t.Errorf("parseLifetime(%q): ok=%v, want %v", tc.raw, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("parseLifetime(%q) = %s, want %s", tc.raw, got, tc.want)
		}
	}
}
