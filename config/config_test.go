package config_test

import (
	"testing"

	"github.com/frameline/meetups-backend/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "REDIS_ADDR", "HMS_API_BASE_URL", "AWS_REGION"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "4000" {
		t.Fatalf("port = %q, want 4000", cfg.Server.Port)
	}
	if cfg.HMS.APIBaseURL != "https://api.100ms.live" {
		t.Fatalf("hms base url = %q", cfg.HMS.APIBaseURL)
	}
	if cfg.HMS.TokenValidHours != 24 {
		t.Fatalf("token valid hours = %d, want 24", cfg.HMS.TokenValidHours)
	}
	if cfg.AWS.PresignExpireMinutes != 15 {
		t.Fatalf("presign expire = %d, want 15", cfg.AWS.PresignExpireMinutes)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "postgres://example:5432/other?sslmode=require")
	t.Setenv("HMS_ROOM_ID", "room-default")
	t.Setenv("HMS_TOKEN_VALID_HOURS", "6")
	t.Setenv("AWS_S3_CLIPS_BUCKET", "my-clips")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Server.Port)
	}
	if got := cfg.Database.DSN(); got != "postgres://example:5432/other?sslmode=require" {
		t.Fatalf("dsn = %q", got)
	}
	if cfg.HMS.DefaultRoomID != "room-default" {
		t.Fatalf("default room = %q", cfg.HMS.DefaultRoomID)
	}
	if cfg.HMS.TokenValidHours != 6 {
		t.Fatalf("token valid hours = %d, want 6", cfg.HMS.TokenValidHours)
	}
	if cfg.AWS.ClipsBucket != "my-clips" {
		t.Fatalf("clips bucket = %q", cfg.AWS.ClipsBucket)
	}
}

func TestDSNFromComponents(t *testing.T) {
	db := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "app",
		Password: "pw",
		DBName:   "meetups",
		SSLMode:  "disable",
	}
	want := "postgres://app:pw@db.internal:5433/meetups?sslmode=disable"
	if got := db.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
}
