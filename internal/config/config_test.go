package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == "" {
		t.Error("no default port")
	}
	if cfg.RoundSeconds <= 0 {
		t.Errorf("round seconds = %d", cfg.RoundSeconds)
	}
	if cfg.MaxActivePlayers != 2 {
		t.Errorf("max active players = %d", cfg.MaxActivePlayers)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("ROUND_SECONDS", "45")
	t.Setenv("TRAJECTORY_SAMPLE_EVERY", "not-a-number")

	cfg := Load()
	if cfg.Port != "9999" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.RoundSeconds != 45 {
		t.Errorf("round seconds = %d", cfg.RoundSeconds)
	}
	// Unparseable ints fall back to the default.
	if cfg.TrajectorySampleEvery != 1 {
		t.Errorf("sample every = %d", cfg.TrajectorySampleEvery)
	}
}
