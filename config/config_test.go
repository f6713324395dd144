package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Pool.MaxSessions != 10 {
		t.Errorf("default max sessions: got %d", cfg.Pool.MaxSessions)
	}
	if cfg.Nav.MaxAttempts != 3 {
		t.Errorf("default nav attempts: got %d", cfg.Nav.MaxAttempts)
	}
	if cfg.Actions.ElementWait != 10*time.Second {
		t.Errorf("default element wait: got %v", cfg.Actions.ElementWait)
	}
	if cfg.Cache.SweepInterval != time.Hour {
		t.Errorf("default sweep interval: got %v", cfg.Cache.SweepInterval)
	}
	if cfg.Cache.StatsInterval != 30*time.Minute {
		t.Errorf("default stats interval: got %v", cfg.Cache.StatsInterval)
	}
	if cfg.Recorder.DefaultFPS != 5 {
		t.Errorf("default recorder fps: got %d", cfg.Recorder.DefaultFPS)
	}
	if cfg.Assets.Timeout != 30*time.Second {
		t.Errorf("default asset timeout: got %v", cfg.Assets.Timeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DROVER_MAX_SESSIONS", "3")
	t.Setenv("DROVER_CACHE_TTL", "90s")
	t.Setenv("DROVER_HEADLESS", "false")
	t.Setenv("DROVER_API_KEYS", "k1, k2 ,k3")

	cfg := Load()
	if cfg.Pool.MaxSessions != 3 {
		t.Errorf("env max sessions: got %d", cfg.Pool.MaxSessions)
	}
	if cfg.Cache.DefaultTTL != 90*time.Second {
		t.Errorf("env cache ttl: got %v", cfg.Cache.DefaultTTL)
	}
	if cfg.Browser.Headless {
		t.Error("env headless override not applied")
	}
	if len(cfg.Auth.APIKeys) != 3 || cfg.Auth.APIKeys[1] != "k2" {
		t.Errorf("env api keys: got %v", cfg.Auth.APIKeys)
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("DROVER_MAX_SESSIONS", "many")
	t.Setenv("DROVER_CACHE_TTL", "soon")

	cfg := Load()
	if cfg.Pool.MaxSessions != 10 {
		t.Errorf("malformed int should fall back: got %d", cfg.Pool.MaxSessions)
	}
	if cfg.Cache.DefaultTTL != time.Hour {
		t.Errorf("malformed duration should fall back: got %v", cfg.Cache.DefaultTTL)
	}
}

func TestCacheConfig_TTLFor(t *testing.T) {
	c := CacheConfig{
		DefaultTTL: time.Hour,
		CSSTTL:     10 * time.Minute,
	}
	if got := c.TTLFor("HTML"); got != time.Hour {
		t.Errorf("HTML should use default: got %v", got)
	}
	if got := c.TTLFor("CSS"); got != 10*time.Minute {
		t.Errorf("CSS should use override: got %v", got)
	}
	if got := c.TTLFor("css"); got != 10*time.Minute {
		t.Errorf("kind lookup should be case-insensitive: got %v", got)
	}
	if got := c.TTLFor("JSON"); got != time.Hour {
		t.Errorf("JSON without override should use default: got %v", got)
	}
}
