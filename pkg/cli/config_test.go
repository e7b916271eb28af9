package cli

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := LoadConfig("speakerid", path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Contexts) != 0 || cfg.CurrentContext != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig must not create the file, stat err = %v", err)
	}
	if _, err := cfg.ResolveContext(""); !errors.Is(err, ErrNoContext) {
		t.Errorf("ResolveContext on empty config = %v, want ErrNoContext", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, err := LoadConfig("speakerid", path)
	if err != nil {
		t.Fatal(err)
	}

	threshold := 0.4
	err = cfg.AddContext("prod", &Context{
		EmbeddingsDir:    "/srv/embeddings",
		ExtractorVersion: "spectral-v1-mel80-16k",
		Threshold:        &threshold,
		Overwrite:        "reject",
		Storage: &StorageConfig{
			Backend:   "s3",
			Bucket:    "voices",
			SecretKey: "supersecretvalue",
		},
		Model: &ModelConfig{Concurrency: 4},
	})
	if err != nil {
		t.Fatalf("AddContext: %v", err)
	}
	if err := cfg.AddContext("dev", &Context{}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config mode = %o, want 600", perm)
	}

	loaded, err := LoadConfig("speakerid", path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.CurrentContext != "prod" {
		t.Errorf("CurrentContext = %q, want prod (first added)", loaded.CurrentContext)
	}
	if got := loaded.ListContexts(); !slices.Equal(got, []string{"dev", "prod"}) {
		t.Errorf("ListContexts = %v", got)
	}

	ctx, err := loaded.ResolveContext("")
	if err != nil {
		t.Fatal(err)
	}
	if ctx.Name != "prod" {
		t.Errorf("Name = %q", ctx.Name)
	}
	if ctx.Threshold == nil || *ctx.Threshold != 0.4 {
		t.Errorf("Threshold = %v", ctx.Threshold)
	}
	if ctx.Storage == nil || ctx.Storage.Bucket != "voices" {
		t.Errorf("Storage = %+v", ctx.Storage)
	}
	if ctx.Model == nil || ctx.Model.Concurrency != 4 {
		t.Errorf("Model = %+v", ctx.Model)
	}
}

func TestConfigContexts(t *testing.T) {
	cfg, err := LoadConfig("speakerid", filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddContext("", &Context{}); err == nil {
		t.Error("AddContext with empty name should fail")
	}
	if err := cfg.AddContext("a", &Context{}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.AddContext("b", &Context{}); err != nil {
		t.Fatal(err)
	}

	if err := cfg.UseContext("missing"); err == nil {
		t.Error("UseContext(missing) should fail")
	}
	if err := cfg.UseContext("b"); err != nil {
		t.Fatal(err)
	}
	if ctx, err := cfg.ResolveContext(""); err != nil || ctx.Name != "b" {
		t.Errorf("ResolveContext = %v, %v", ctx, err)
	}
	if ctx, err := cfg.ResolveContext("a"); err != nil || ctx.Name != "a" {
		t.Errorf("ResolveContext(a) = %v, %v", ctx, err)
	}

	if err := cfg.DeleteContext("b"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("deleting the current context should clear it, got %q", cfg.CurrentContext)
	}
	if err := cfg.DeleteContext("b"); err == nil {
		t.Error("second DeleteContext should fail")
	}
}

func TestRedacted(t *testing.T) {
	ctx := &Context{
		Name: "prod",
		Storage: &StorageConfig{
			AccessKey: "AKIAEXAMPLEKEY",
			SecretKey: "short",
		},
	}
	r := ctx.Redacted()
	if r.Storage.AccessKey != "AKIA******EKEY" {
		t.Errorf("AccessKey = %q", r.Storage.AccessKey)
	}
	if r.Storage.SecretKey != "*****" {
		t.Errorf("SecretKey = %q", r.Storage.SecretKey)
	}
	if ctx.Storage.AccessKey != "AKIAEXAMPLEKEY" {
		t.Error("Redacted modified the original")
	}
	if (&Context{}).Redacted().Storage != nil {
		t.Error("nil storage should stay nil")
	}
}

func TestPaths(t *testing.T) {
	p := &Paths{AppName: "speakerid", BaseDir: t.TempDir()}
	if got, want := p.ConfigFile(), filepath.Join(p.BaseDir, "speakerid", "config.yaml"); got != want {
		t.Errorf("ConfigFile = %q, want %q", got, want)
	}
	if got, want := p.DataPath("catalog"), filepath.Join(p.BaseDir, "speakerid", "data", "catalog"); got != want {
		t.Errorf("DataPath = %q, want %q", got, want)
	}
	if err := p.EnsureDataDir(); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(p.DataDir()); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}
