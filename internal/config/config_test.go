package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("MAX_LEG_KM", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.ORSRequestsPerMinute != 40 {
		t.Fatalf("ors rpm = %d, want 40", cfg.ORSRequestsPerMinute)
	}
	if cfg.Location().String() != "America/Chicago" {
		t.Fatalf("location = %s", cfg.Location())
	}
}

func TestLoadRejectsUnknownGeocoder(t *testing.T) {
	t.Setenv("ORS_API_KEY", "test-key")
	t.Setenv("GEOCODER", "bing")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown geocoder")
	}
}

func TestLoadRequiresORSKey(t *testing.T) {
	t.Setenv("ORS_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without ORS_API_KEY")
	}
}

func TestGetFallback(t *testing.T) {
	t.Setenv("SOME_UNSET_KEY_FOR_TEST", "")
	if got := Get("SOME_UNSET_KEY_FOR_TEST", "x"); got != "x" {
		t.Fatalf("got %q, want x", got)
	}
}
