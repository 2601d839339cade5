package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"frc2g/internal/model"
)

var ruleSet = []model.CanonicalRule{
	{Source: "LAN", Gateway: "GW1/wan", Action: "PASS", Protocol: "TCP", Port: "443", Destination: "WEB", Comment: "Any", Disabled: "False", Floating: "False"},
}

func changedSet() []model.CanonicalRule {
	set := append([]model.CanonicalRule(nil), ruleSet...)
	set[0].Port = "8443"
	return set
}

func exerciseDetector(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	d := NewDetector(store)

	regen, err := d.ShouldRegenerate(ctx, ruleSet)
	if err != nil || !regen {
		t.Fatalf("expected first run to regenerate, got %v, %v", regen, err)
	}
	regen, err = d.ShouldRegenerate(ctx, ruleSet)
	if err != nil || regen {
		t.Fatalf("expected unchanged rules not to regenerate, got %v, %v", regen, err)
	}
	regen, err = d.ShouldRegenerate(ctx, changedSet())
	if err != nil || !regen {
		t.Fatalf("expected changed rules to regenerate, got %v, %v", regen, err)
	}
	regen, _ = d.ShouldRegenerate(ctx, changedSet())
	if regen {
		t.Fatalf("expected new fingerprint to be persisted")
	}
}

func TestDetectorWithFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "md5sum.txt")
	store := NewFileStore(path)
	exerciseDetector(t, store)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected fingerprint file: %v", err)
	}
	if len(data) != 64 {
		t.Fatalf("expected a single line hex fingerprint, got %q", data)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "none.txt"))
	fp, found, err := store.Load(context.Background())
	if err != nil || found || fp != "" {
		t.Fatalf("expected nothing stored, got %q, %v, %v", fp, found, err)
	}
}

func TestDetectorWithSQLiteStore(t *testing.T) {
	store, err := OpenSQLStore(DriverSQLite, ":memory:", "fw.example.com")
	if err != nil {
		t.Fatalf("OpenSQLStore failed: %v", err)
	}
	defer store.Close()
	exerciseDetector(t, store)
}

func TestSQLiteStoreScopes(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "state.db")
	a, err := OpenSQLStore(DriverSQLite, dsn, "fw-a")
	if err != nil {
		t.Fatalf("OpenSQLStore failed: %v", err)
	}
	defer a.Close()
	b, err := OpenSQLStore(DriverSQLite, dsn, "fw-b")
	if err != nil {
		t.Fatalf("OpenSQLStore failed: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	if err := a.Save(ctx, "aaa"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := a.Save(ctx, "bbb"); err != nil {
		t.Fatalf("Save over an existing row failed: %v", err)
	}
	if fp, found, _ := a.Load(ctx); !found || fp != "bbb" {
		t.Fatalf("expected bbb, got %q (found=%v)", fp, found)
	}
	if _, found, _ := b.Load(ctx); found {
		t.Fatalf("expected scopes to be independent")
	}
}

func TestOpenSQLStoreRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenSQLStore("postgres", "x", "fw"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

// Runs against a live MariaDB when FRC2G_TEST_MYSQL_DSN is set.
func TestDetectorWithMySQLStore(t *testing.T) {
	dsn := os.Getenv("FRC2G_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("FRC2G_TEST_MYSQL_DSN not set")
	}
	store, err := OpenSQLStore(DriverMySQL, dsn, "frc2g-test")
	if err != nil {
		t.Skipf("MariaDB not reachable: %v", err)
	}
	defer store.Close()
	store.db.Exec("DELETE FROM frc2g_fingerprint WHERE scope = ?", "frc2g-test")
	exerciseDetector(t, store)
}
