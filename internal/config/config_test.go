package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	os.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	os.Setenv("MONGODB_DATABASE", "codraft_test")
	os.Setenv("REDIS_HOST", "localhost")
	os.Setenv("REDIS_PORT", "6379")
	os.Setenv("JWT_SECRET", "testsecret123456789012345678901234")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.MongoDB.Database != "codraft_test" {
		t.Fatalf("unexpected database: %q", cfg.MongoDB.Database)
	}
}

func TestLoadConfig_CollabDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Collab.PongWait != 60*time.Second {
		t.Fatalf("unexpected pong wait: %v", cfg.Collab.PongWait)
	}
	if cfg.Collab.PingPeriod >= cfg.Collab.PongWait {
		t.Fatalf("ping period must be below pong wait: %v >= %v", cfg.Collab.PingPeriod, cfg.Collab.PongWait)
	}
	if cfg.Collab.SendBuffer <= 0 {
		t.Fatalf("send buffer must be positive: %d", cfg.Collab.SendBuffer)
	}
}
