package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load("no-such-config")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != "localhost:9090" {
		t.Fatalf("server addr default: %q", cfg.Server.Addr)
	}
	if cfg.Mongo.Database != "pgprelay" {
		t.Fatalf("mongo database default: %q", cfg.Mongo.Database)
	}
	if cfg.Sweep.Interval != time.Minute {
		t.Fatalf("sweep interval default: %v", cfg.Sweep.Interval)
	}
	if cfg.Sweep.Grace != 0 {
		t.Fatalf("sweep grace default: %v", cfg.Sweep.Grace)
	}
}
