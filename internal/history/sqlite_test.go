package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/chimekit/chime/pkg/logx"
)

func openSQLiteStore(t *testing.T, cfg Config) Store {
	t.Helper()
	cfg.Driver = "sqlite"
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "runs.db")
	}
	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSQLiteRoundTrip(t *testing.T) {
	t.Parallel()
	st := openSQLiteStore(t, Config{BusyTimeout: 200 * time.Millisecond})
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: base, Task: "backup", Kind: "fired", TookMS: 1200},
		{At: base.Add(time.Minute), Task: "report", Kind: "error", TookMS: 40, Detail: "exit status 1"},
		{At: base.Add(2 * time.Minute), Task: "backup", Kind: "skipped"},
	}
	for _, e := range entries {
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := st.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recent len = %d, want 3", len(all))
	}
	if all[0].Task != "backup" || all[0].Kind != "skipped" {
		t.Fatalf("Recent[0] = %+v, want the newest entry first", all[0])
	}
	if !all[2].At.Equal(base) {
		t.Fatalf("Recent[2].At = %v, want %v", all[2].At, base)
	}
	if all[1].Detail != "exit status 1" {
		t.Fatalf("Recent[1].Detail = %q, want the error detail", all[1].Detail)
	}
	if all[0].Detail != "" {
		t.Fatalf("empty detail must round-trip empty, got %q", all[0].Detail)
	}

	backups, err := st.Recent(ctx, "backup", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(backups) != 2 {
		t.Fatalf("filtered Recent len = %d, want 2", len(backups))
	}
}

func TestSQLitePruneKeepsNewest(t *testing.T) {
	t.Parallel()
	st := openSQLiteStore(t, Config{Keep: 10})
	ctx := context.Background()

	// The 500th append triggers a prune.
	for i := 0; i < 500; i++ {
		if err := st.Append(ctx, Entry{Task: "bulk", Kind: "fired", TookMS: int64(i)}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	all, err := st.Recent(ctx, "", 1000)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 10 {
		t.Fatalf("entries after prune = %d, want 10", len(all))
	}
	if all[0].TookMS != 499 {
		t.Fatalf("newest entry = %+v, want TookMS 499", all[0])
	}
}

func TestSQLiteDriverAlias(t *testing.T) {
	t.Parallel()
	st, err := Open(Config{
		Driver: "sqlite3",
		Path:   filepath.Join(t.TempDir(), "runs.db"),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()

	if err := st.Append(context.Background(), Entry{Task: "x", Kind: "fired"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
}
