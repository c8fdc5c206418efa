package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postq.yaml")
	yml := `
server:
  addr: ":9000"
  delay: 250ms
failure:
  mode: every_nth
  every: 3
  methods: [PUT, PATCH]
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("POSTQ_ADDR", ":9100")
	t.Setenv("POSTQ_STRICT_TITLES", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.Server.Addr = ":9100"
	want.Server.Delay = 250 * time.Millisecond
	want.Failure.Mode = FailEveryNth
	want.Failure.Every = 3
	want.Failure.Methods = []string{"PUT", "PATCH"}
	want.Log.Level = "debug"
	want.Client.StrictTitles = true
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postq.yaml")
	if err := os.WriteFile(path, []byte("server:\n  adr: \":1\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

func TestApplyEnv_Errors(t *testing.T) {
	cases := map[string]string{
		"POSTQ_DELAY":     "soon",
		"POSTQ_FAIL_RATE": "half",
		"POSTQ_WATCH":     "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			cfg := Default()
			lookup := func(k string) (string, bool) {
				if k == key {
					return val, true
				}
				return "", false
			}
			if err := applyEnv(&cfg, lookup); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative delay", func(c *Config) { c.Server.Delay = -time.Second }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "redis" }},
		{"postgres without dsn", func(c *Config) { c.Store.Driver = DriverPostgres }},
		{"file without path", func(c *Config) { c.Store.Path = "" }},
		{"rate out of range", func(c *Config) { c.Failure.Rate = 1.5 }},
		{"every zero", func(c *Config) { c.Failure.Mode = FailEveryNth; c.Failure.Every = 0 }},
		{"unknown mode", func(c *Config) { c.Failure.Mode = "sometimes" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
