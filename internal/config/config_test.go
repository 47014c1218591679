package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_defaults(t *testing.T) {
	for _, k := range []string{
		"CHANNEL_GUIDE_ADDR", "CHANNEL_GUIDE_DB", "CHANNEL_GUIDE_REDIS_ADDR",
		"CHANNEL_GUIDE_PLAYLIST_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Addr != ":8480" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "./channelguide.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.PlaylistTimeout != 15*time.Second || cfg.ProviderTimeout != 20*time.Second {
		t.Errorf("timeouts = %v, %v", cfg.PlaylistTimeout, cfg.ProviderTimeout)
	}
}

func TestLoad_overrides(t *testing.T) {
	t.Setenv("CHANNEL_GUIDE_ADDR", ":9000")
	t.Setenv("CHANNEL_GUIDE_REDIS_ADDR", "localhost:6379")
	t.Setenv("CHANNEL_GUIDE_REDIS_DB", "3")
	t.Setenv("CHANNEL_GUIDE_PLAYLIST_TIMEOUT", "45s")
	t.Setenv("CHANNEL_GUIDE_PLAYLIST_URL", "http://host/list.m3u")

	cfg := Load()
	if cfg.Addr != ":9000" || cfg.RedisAddr != "localhost:6379" || cfg.RedisDB != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.PlaylistTimeout != 45*time.Second {
		t.Errorf("PlaylistTimeout = %v", cfg.PlaylistTimeout)
	}
	if cfg.PlaylistURL != "http://host/list.m3u" {
		t.Errorf("PlaylistURL = %q", cfg.PlaylistURL)
	}
}

func TestLoad_badValuesFallBack(t *testing.T) {
	t.Setenv("CHANNEL_GUIDE_REDIS_DB", "three")
	t.Setenv("CHANNEL_GUIDE_PLAYLIST_TIMEOUT", "soon")
	cfg := Load()
	if cfg.RedisDB != 0 || cfg.PlaylistTimeout != 15*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n" +
		"CHANNEL_GUIDE_TEST_A=plain\n" +
		"CHANNEL_GUIDE_TEST_B=\"quoted value\"\n" +
		"CHANNEL_GUIDE_TEST_C='single'\n" +
		"export CHANNEL_GUIDE_TEST_D=exported\n" +
		"\n" +
		"not-a-pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHANNEL_GUIDE_TEST_A", "")
	t.Setenv("CHANNEL_GUIDE_TEST_B", "")
	t.Setenv("CHANNEL_GUIDE_TEST_C", "")
	t.Setenv("CHANNEL_GUIDE_TEST_D", "")

	if err := LoadEnvFile(path); err != nil {
		t.Fatal(err)
	}
	if v := os.Getenv("CHANNEL_GUIDE_TEST_A"); v != "plain" {
		t.Errorf("A = %q", v)
	}
	if v := os.Getenv("CHANNEL_GUIDE_TEST_B"); v != "quoted value" {
		t.Errorf("B = %q", v)
	}
	if v := os.Getenv("CHANNEL_GUIDE_TEST_C"); v != "single" {
		t.Errorf("C = %q", v)
	}
	if v := os.Getenv("CHANNEL_GUIDE_TEST_D"); v != "exported" {
		t.Errorf("D = %q", v)
	}
}

func TestLoadEnvFile_missingIsFine(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatal(err)
	}
}
