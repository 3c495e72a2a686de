package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ledger/internal/auth"
)

const seed = `entries:
  - owner_id: alice
    kind: expense
    amount: "42.50"
    description: Groceries
    category: food
    occurred_on: "2026-03-14"
  - owner_id: alice
    kind: income
    amount: "1000"
    description: Salary
    occurred_on: "2026-03-01"
  - owner_id: bob
    kind: expense
    amount: "7"
    description: Coffee
    category: food
    occurred_on: "2026-03-02"
`

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seedPath := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(seedPath, []byte(seed), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("SEED_FILE", seedPath)
	t.Setenv("DEFAULT_OWNER", "alice")
	t.Setenv("AUTH_JWT_SECRET", "")
	t.Setenv("AMQP_URL", "")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSummaryCommand(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "summary", "--year", "2026", "--month", "3")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	for _, want := range []string{"alice 2026-03", "42.50", "1000.00", "food"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "7.00") {
		t.Fatalf("summary leaked another owner's entries:\n%s", out)
	}

	if _, err := run(t, "summary", "--month", "13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestExportCommand(t *testing.T) {
	dir := setupEnv(t)
	path := filepath.Join(dir, "march.csv")
	if _, err := run(t, "export", "--year", "2026", "--month", "3", "--out", path); err != nil {
		t.Fatalf("export: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if lines := strings.Split(string(b), "\n"); len(lines) != 3 {
		t.Fatalf("expected header and two rows, got %q", string(b))
	}

	out, err := run(t, "export", "--year", "2026", "--month", "3", "--owner", "bob", "--out", "-")
	if err != nil {
		t.Fatalf("export stdout: %v", err)
	}
	if !strings.Contains(out, "Coffee") || strings.Contains(out, "Groceries") {
		t.Fatalf("unexpected bob export %q", out)
	}

	if _, err := run(t, "export", "--format", "pdf", "--out", "-"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestTokenCommand(t *testing.T) {
	setupEnv(t)
	if _, err := run(t, "token"); err == nil {
		t.Fatalf("expected error without secret")
	}

	secret := strings.Repeat("s", 32)
	t.Setenv("AUTH_JWT_SECRET", secret)
	out, err := run(t, "token", "--owner", "carol", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	owner, err := auth.ParseToken(secret, strings.TrimSpace(out))
	if err != nil || owner != "carol" {
		t.Fatalf("ParseToken = %q, %v", owner, err)
	}
}

func TestMigrateCommand(t *testing.T) {
	dir := setupEnv(t)
	out, err := run(t, "migrate")
	if err != nil || !strings.Contains(out, "no schema") {
		t.Fatalf("memory migrate = %q, %v", out, err)
	}

	t.Setenv("DATA_BACKEND", "sqlite")
	t.Setenv("SEED_FILE", "")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(dir, "ledger.db"))
	out, err = run(t, "migrate")
	if err != nil {
		t.Fatalf("sqlite migrate: %v", err)
	}
	if !strings.Contains(out, "sqlite schema version") || strings.Contains(out, "version 0 ") {
		t.Fatalf("unexpected migrate output %q", out)
	}
}

func TestAmountKeepsEveryDecimal(t *testing.T) {
	cases := map[string]string{
		"1000":    "1000.00",
		"42.5":    "42.50",
		"1.23456": "1.23456",
		"0":       "0.00",
	}
	for in, want := range cases {
		if got := amount(decimal.RequireFromString(in)); got != want {
			t.Errorf("amount(%s) = %q, want %q", in, got, want)
		}
	}
}
