package commands

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cleared-dev/ledgercore/internal/accounts"
	"github.com/cleared-dev/ledgercore/internal/auditlog"
	"github.com/cleared-dev/ledgercore/internal/config"
	"github.com/cleared-dev/ledgercore/internal/journal"
)

func postDiesel(t *testing.T, repo string) string {
	t.Helper()
	return mustRun(t, repo, "post", "--date", "2024-03-05", "--desc", "Diesel",
		"--line", "5111:dr:100.00:Diesel truck 4",
		"--line", "1112:cr:115.00",
		"--tax", "1")
}

func TestPost_WithTaxAndReports(t *testing.T) {
	repo := newRepo(t)

	out := postDiesel(t, repo)
	assert.Contains(t, out, "Posted JE-2024000001 on 2024-03-05 (3 lines, 115.00)")

	out = mustRun(t, repo, "ledger", "1131")
	assert.Contains(t, out, "JE-2024000001")
	assert.Contains(t, out, "15.00")

	out = mustRun(t, repo, "ledger", "1112")
	assert.Contains(t, out, "-115.00")

	// A parent account rolls up its subtree.
	out = mustRun(t, repo, "ledger", "5")
	assert.Contains(t, out, "Diesel truck 4")
	assert.Contains(t, out, "100.00")

	out = mustRun(t, repo, "trial-balance")
	assert.Contains(t, out, "Business Checking")
	assert.Contains(t, out, "VAT Input")
	assert.NotContains(t, out, "out by")

	out = mustRun(t, repo, "trial-balance", "--as-of", "2024-03-04")
	assert.NotContains(t, out, "Business Checking")

	entries, err := auditlog.Read(repo)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, auditlog.ActionPosted, entries[0].Action)
	assert.Equal(t, "JE-2024000001", entries[0].PostingNumber)
}

func TestPost_Unbalanced(t *testing.T) {
	repo := newRepo(t)

	_, err := inRepo(t, repo, "post", "--date", "2024-03-05",
		"--line", "5111:dr:100.00",
		"--line", "1112:cr:90.00")
	var unbalanced *journal.UnbalancedError
	require.ErrorAs(t, err, &unbalanced)

	out := mustRun(t, repo, "export")
	assert.Equal(t, journal.Header, strings.TrimSpace(out))
}

func TestPost_BadLineSpec(t *testing.T) {
	repo := newRepo(t)

	tests := []struct {
		name string
		line string
	}{
		{"missing amount", "5111:dr"},
		{"bad side", "5111:up:10.00"},
		{"unknown account", "9999:dr:10.00"},
		{"bad amount", "5111:dr:ten"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := inRepo(t, repo, "post", "--date", "2024-03-05", "--line", tt.line, "--line", "1112:cr:10.00")
			require.Error(t, err)
		})
	}

	_, err := inRepo(t, repo, "post", "--date", "2024-03-05",
		"--line", "5111:dr:10.00", "--line", "1112:cr:10.00", "--tax", "3")
	require.ErrorContains(t, err, "no such line")
}

func TestPost_FromFile(t *testing.T) {
	repo := newRepo(t)
	draft := filepath.Join(t.TempDir(), "draft.csv")
	require.NoError(t, os.WriteFile(draft, []byte(journal.Header+"\n"+
		",,,5112,Tyres,200.00,,,\n"+
		",,,1112,Tyres,,200.00,,\n"), 0o644))

	out := mustRun(t, repo, "post", "--date", "2024-04-02", "--desc", "Tyres", "--file", draft)
	assert.Contains(t, out, "JE-2024000001")

	out = mustRun(t, repo, "ledger", "5112")
	assert.Contains(t, out, "200.00")
}

func TestReverse(t *testing.T) {
	repo := newRepo(t)
	postDiesel(t, repo)

	_, err := inRepo(t, repo, "reverse", "JE-2024000001")
	require.ErrorIs(t, err, errNotConfirmed)

	out := mustRun(t, repo, "reverse", "JE-2024000001", "--yes", "--date", "2024-03-31")
	assert.Contains(t, out, "Reversed JE-2024000001 with JE-2024000002 on 2024-03-31")

	_, err = inRepo(t, repo, "reverse", "JE-2024000001", "--yes")
	require.ErrorIs(t, err, journal.ErrAlreadyReversed)

	_, err = inRepo(t, repo, "reverse", "JE-2024000099", "--yes")
	require.ErrorIs(t, err, journal.ErrPostingNotFound)

	out = mustRun(t, repo, "ledger", "1112", "--from", "2024-03-01", "--to", "2024-03-31")
	assert.Contains(t, out, "JE-2024000002")
	assert.Contains(t, out, "0.00")
}

func TestLedger_Errors(t *testing.T) {
	repo := newRepo(t)

	_, err := inRepo(t, repo, "ledger", "nope")
	require.ErrorIs(t, err, accounts.ErrNotFound)

	_, err = inRepo(t, repo, "ledger", "1112", "--from", "2024-02-01", "--to", "2024-01-01")
	require.Error(t, err)

	_, err = inRepo(t, repo, "ledger", "1112", "--from", "01/02/2024")
	require.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestImport_ShowOnly(t *testing.T) {
	repo := newRepo(t)
	file := copyFixture(t, "statement.txt", filepath.Join(t.TempDir(), "statement.txt"))

	out := mustRun(t, repo, "import", file)
	assert.Contains(t, out, "statement.txt: 4 rows")
	assert.Contains(t, out, "SALARY TRANSFER")
	assert.Contains(t, out, "123456789")

	entries, err := auditlog.Read(repo)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImport_PostFile(t *testing.T) {
	repo := newRepo(t)
	file := copyFixture(t, "statement.txt", filepath.Join(t.TempDir(), "statement.txt"))

	_, err := inRepo(t, repo, "import", file, "--post")
	require.ErrorContains(t, err, "--bank")

	out := mustRun(t, repo, "import", file, "--post", "--bank", "1112", "--account", "4111")
	assert.Contains(t, out, "statement.txt: posted 4, skipped 0")
	assert.FileExists(t, file)

	// 250.00 + 400.00 in, 1,500.00 + 62.15 out.
	out = mustRun(t, repo, "ledger", "1112")
	assert.Contains(t, out, "-912.15")

	entries, err := auditlog.Read(repo)
	require.NoError(t, err)
	var imported int
	for _, e := range entries {
		if e.Action == auditlog.ActionImported {
			imported++
			assert.True(t, strings.HasPrefix(e.Details, "statement.txt:"), e.Details)
			assert.Contains(t, e.Details, " sha256=")
		}
	}
	assert.Equal(t, 4, imported)
}

func TestImport_SkipsRowsWithoutAccount(t *testing.T) {
	repo := newRepo(t)
	file := copyFixture(t, "statement.txt", filepath.Join(t.TempDir(), "statement.txt"))

	out := mustRun(t, repo, "import", file, "--post", "--bank", "1112")
	assert.Contains(t, out, "posted 0, skipped 4")
	assert.Contains(t, out, "pass --account")
}

func TestImport_Inbox(t *testing.T) {
	repo := newRepo(t)

	out := mustRun(t, repo, "import")
	assert.Contains(t, out, "No statements waiting")

	copyFixture(t, "chase_checking.csv", filepath.Join(repo, "import", "chase_checking.csv"))

	out = mustRun(t, repo, "import", "--post", "--bank", "1112", "--account", "5122")
	assert.Contains(t, out, "chase_checking.csv: posted 6, skipped 0")
	assert.NoFileExists(t, filepath.Join(repo, "import", "chase_checking.csv"))
	assert.FileExists(t, filepath.Join(repo, "import", "processed", "chase_checking.csv"))

	out = mustRun(t, repo, "ledger", "1112", "--from", "2025-01-01")
	assert.Contains(t, out, "2025-01-09")
	assert.Contains(t, out, "REF 1187")
}

func TestImport_InboxRerunDoesNotDoublePost(t *testing.T) {
	repo := newRepo(t)
	inbox := filepath.Join(repo, "import", "march.txt")
	data := []byte("03/01/2024 DIESEL 80.00\n01/01/0000 TYRES 250.00\n03/03/2024 OIL 30.00\n")
	require.NoError(t, os.WriteFile(inbox, data, 0o644))

	out := mustRun(t, repo, "import", "--post", "--bank", "1112", "--account", "5111")
	assert.Contains(t, out, "line 2 skipped")
	assert.Contains(t, out, "march.txt: posted 2, skipped 1")
	assert.NoFileExists(t, inbox)

	// The same statement dropped in again.
	require.NoError(t, os.WriteFile(inbox, data, 0o644))
	out = mustRun(t, repo, "import", "--post", "--bank", "1112", "--account", "5111")
	assert.Contains(t, out, "march.txt: posted 0, skipped 1, already imported 2")

	out = mustRun(t, repo, "ledger", "1112")
	assert.Equal(t, 1, strings.Count(out, "DIESEL"))
	assert.Equal(t, 1, strings.Count(out, "OIL"))
}

func TestImport_UnknownFormat(t *testing.T) {
	repo := newRepo(t)
	_, err := inRepo(t, repo, "import", "--format", "ofx")
	require.ErrorContains(t, err, "unknown statement format")
}

func TestExport(t *testing.T) {
	repo := newRepo(t)
	postDiesel(t, repo)
	mustRun(t, repo, "post", "--date", "2024-05-01", "--desc", "Invoice",
		"--line", "1121:dr:500.00", "--line", "4111:cr:500.00")

	out := mustRun(t, repo, "export", "--to", "2024-04-30")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, journal.Header, lines[0])
	assert.NotContains(t, out, "JE-2024000002")

	_, err := inRepo(t, repo, "export", "--format", "xlsx")
	require.ErrorContains(t, err, "--out")

	_, err = inRepo(t, repo, "export", "--format", "pdf")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "journal.xlsx")
	mustRun(t, repo, "export", "--format", "xlsx", "--out", path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(journal.XLSXSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "posting_number", rows[0][0])
	assert.Equal(t, "JE-2024000002", rows[5][0])
}

func TestAccounts(t *testing.T) {
	repo := newRepo(t)

	out := mustRun(t, repo, "accounts", "list")
	assert.Contains(t, out, "Business Checking")
	assert.Contains(t, out, "group")

	out = mustRun(t, repo, "accounts", "list", "--type", "revenue")
	assert.Contains(t, out, "Service Revenue")
	assert.NotContains(t, out, "Business Checking")

	_, err := inRepo(t, repo, "accounts", "list", "--type", "income")
	require.Error(t, err)

	mustRun(t, repo, "accounts", "add", "--id", "5113", "--code", "5113", "--name", "Tolls", "--type", "expense", "--parent", "511")
	svc, err := accounts.Load(repo)
	require.NoError(t, err)
	tolls, ok := svc.Get(5113)
	require.True(t, ok)
	assert.Equal(t, "Tolls", tolls.Name)

	mustRun(t, repo, "post", "--date", "2024-03-05", "--line", "5113:dr:4.50", "--line", "1112:cr:4.50")

	_, err = inRepo(t, repo, "accounts", "remove", "5113")
	require.ErrorIs(t, err, accounts.ErrHasPostings)

	_, err = inRepo(t, repo, "accounts", "remove", "511")
	require.ErrorIs(t, err, accounts.ErrHasChildren)

	mustRun(t, repo, "accounts", "remove", "5123")
	svc, err = accounts.Load(repo)
	require.NoError(t, err)
	assert.False(t, svc.Exists(5123))
}

func TestSQLiteStoreFromEnv(t *testing.T) {
	repo := newRepo(t)
	t.Setenv(config.EnvStoreDriver, config.DriverSQLite)
	t.Setenv(config.EnvStorePath, "data/env.sqlite")

	postDiesel(t, repo)
	assert.FileExists(t, filepath.Join(repo, "data", "env.sqlite"))

	out := mustRun(t, repo, "ledger", "1112")
	assert.Contains(t, out, "-115.00")
}

func TestEnvFileOverrides(t *testing.T) {
	repo := newRepo(t)
	env := filepath.Join(t.TempDir(), "ledger.env")
	require.NoError(t, os.WriteFile(env, []byte("LEDGER_POSTING_PREFIX=GJ\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv(config.EnvPostingPrefix) })

	out := mustRun(t, repo, "--env-file", env, "post", "--date", "2024-03-05",
		"--line", "5111:dr:10.00", "--line", "1112:cr:10.00")
	assert.Contains(t, out, "GJ-2024000001")
}

func TestDebugFlagLogs(t *testing.T) {
	repo := newRepo(t)
	out := mustRun(t, repo, "--debug", "trial-balance")
	assert.Contains(t, out, "store opened")
}
