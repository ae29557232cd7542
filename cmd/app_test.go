package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/etnz/timberline"
	"github.com/etnz/timberline/config"
	"github.com/etnz/timberline/store"
	"github.com/etnz/timberline/tokens"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse()
	if err != nil {
		t.Fatal(err)
	}
	cfg.DataDir = t.TempDir()
	cfg.TokenDB = filepath.Join(t.TempDir(), "tokens.db")
	return cfg
}

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	tests := []struct {
		backend string
		check   func(t *testing.T, st store.Store)
	}{
		{config.StoreFile, func(t *testing.T, st store.Store) {
			f, ok := st.(*store.File)
			if !ok {
				t.Fatalf("store is %T, want *store.File", st)
			}
			if got := filepath.Base(f.Path(store.Latest)); got != "himalaya-latest.json" {
				t.Errorf("latest file = %q, want himalaya-latest.json", got)
			}
		}},
		{config.StoreRedis, func(t *testing.T, st store.Store) {
			if !mr.Exists("timberline:snapshot:latest") {
				t.Errorf("snapshot key not found, have %v", mr.Keys())
			}
		}},
	}
	for _, test := range tests {
		t.Run(test.backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.StoreBackend = test.backend
			cfg.RedisAddr = mr.Addr()

			st, closeStore, err := OpenStore(cfg)
			if err != nil {
				t.Fatalf("OpenStore() error = %v", err)
			}
			defer closeStore()

			snap := timberline.NewSnapshot([]timberline.Position{{Symbol: "AAPL", Percentage: "100"}})
			if err := st.Put(context.Background(), store.Latest, snap); err != nil {
				t.Fatalf("Put() error = %v", err)
			}
			test.check(t, st)
		})
	}
}

func TestOpenStore_RedisUnreachable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatal(err)
	}
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.StoreBackend = config.StoreRedis
	cfg.RedisAddr = addr
	if _, _, err := OpenStore(cfg); err == nil {
		t.Errorf("OpenStore() succeeded on a closed redis")
	}
}

func TestOpenRegistry(t *testing.T) {
	mr := miniredis.RunT(t)
	for _, backend := range []string{config.TokensMemory, config.TokensRedis, config.TokensSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.TokenBackend = backend
			cfg.RedisAddr = mr.Addr()

			reg, closeRegistry, err := OpenRegistry(cfg)
			if err != nil {
				t.Fatalf("OpenRegistry() error = %v", err)
			}
			defer closeRegistry()

			ctx := context.Background()
			if err := reg.DeleteAll(ctx); err != nil {
				t.Fatal(err)
			}
			if err := reg.Add(ctx, tokens.Token{Token: "ExponentPushToken[a]", Platform: tokens.IOS, RegisteredAt: time.Now()}); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if n, err := reg.Count(ctx); err != nil || n != 1 {
				t.Errorf("Count() = %d, %v, want 1", n, err)
			}
		})
	}
}

func TestTokensCmd(t *testing.T) {
	ctx := context.Background()
	reg := tokens.NewMemory()
	for _, tok := range []string{"ExponentPushToken[a]", "ExponentPushToken[b]", "ExponentPushToken[c]"} {
		reg.Add(ctx, tokens.Token{Token: tok, Platform: tokens.Android})
	}
	c := &tokensCmd{}

	if err := c.run(ctx, reg, []string{"delete", "ExponentPushToken[a]", "ExponentPushToken[b]"}); err != nil {
		t.Fatalf("delete error = %v", err)
	}
	if n, _ := reg.Count(ctx); n != 1 {
		t.Errorf("Count() after delete = %d, want 1", n)
	}
	if err := c.run(ctx, reg, []string{"clear"}); err != nil {
		t.Fatalf("clear error = %v", err)
	}
	if n, _ := reg.Count(ctx); n != 0 {
		t.Errorf("Count() after clear = %d, want 0", n)
	}

	for _, args := range [][]string{{"delete"}, {"purge"}} {
		if err := c.run(ctx, reg, args); err == nil {
			t.Errorf("run(%v) succeeded, want an error", args)
		}
	}
}

func TestFprintMarkdown(t *testing.T) {
	var b bytes.Buffer
	fprintMarkdown(&b, "# Title", false)
	if got := b.String(); got != "# Title\n" {
		t.Errorf("fprintMarkdown(raw) = %q, want %q", got, "# Title\n")
	}

	b.Reset()
	fprintMarkdown(&b, "# Title\n\nSome **bold** text.\n", true)
	if !bytes.Contains(b.Bytes(), []byte("Title")) || !bytes.Contains(b.Bytes(), []byte("bold")) {
		t.Errorf("fprintMarkdown(pretty) = %q", b.String())
	}
}

func TestServeLogger(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		logger := serveLogger(verbose)
		if logger == nil {
			t.Fatalf("serveLogger(%v) = nil", verbose)
		}
		logger.Info("serve logger ready")
	}
}
