package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "")
	t.Setenv("RESTORE_POLICY", "")
	t.Setenv("LOGIN_RATE_BURST", "not-a-number")

	cfg := Load()

	if cfg.Database.Port != "5432" {
		t.Errorf("expected postgres default port 5432, got %s", cfg.Database.Port)
	}
	if cfg.App.RestorePolicy != "available" {
		t.Errorf("expected default restore policy 'available', got %s", cfg.App.RestorePolicy)
	}
	if cfg.App.LoginBurst != 5 {
		t.Errorf("expected fallback burst 5, got %d", cfg.App.LoginBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("DB_NAME", "siops_test")
	t.Setenv("DB_LOG_SQL", "false")
	t.Setenv("LOGIN_RATE_PER_SEC", "2.5")

	cfg := Load()

	if cfg.Database.Port != "3306" {
		t.Errorf("expected mysql default port 3306, got %s", cfg.Database.Port)
	}
	if cfg.Database.Name != "siops_test" {
		t.Errorf("expected db name siops_test, got %s", cfg.Database.Name)
	}
	if cfg.Database.LogSQL {
		t.Error("expected SQL logging disabled")
	}
	if cfg.App.LoginRatePerSec != 2.5 {
		t.Errorf("expected rate 2.5, got %v", cfg.App.LoginRatePerSec)
	}
}
