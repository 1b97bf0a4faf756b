package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tdStatement = `TD Canada Trust
Chequing Account Statement
Account # 1234-5678901
Statement period: Jan 1, 2024 to Jan 31, 2024

Date        Description                     Withdrawal     Deposit     Balance
            Opening balance                                           1,000.00
01/05/2024  TIM HORTONS #1234                     7.04                  992.96
01/15/2024  ACME CORP PAYROLL                             2,500.00    3,492.96
01/20/2024  E-TRANSFER TO SAVINGS               500.00                2,992.96
01/31/2024  MONTHLY ACCOUNT FEE                   4.95                2,988.01
            Closing balance                                           2,988.01
`

type testEnv struct {
	dir       string
	db        string
	config    string
	envFile   string
	statement string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		db:        filepath.Join(dir, "data", "intake.db"),
		config:    filepath.Join(dir, "config.yaml"),
		envFile:   filepath.Join(dir, "missing.env"),
		statement: filepath.Join(dir, "td.txt"),
	}
	require.NoError(t, os.WriteFile(env.config, []byte("logging:\n  level: error\n"), 0o600))
	require.NoError(t, os.WriteFile(env.statement, []byte(tdStatement), 0o600))
	return env
}

func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--env-file", e.envFile, "--db", e.db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	output, err := env.run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, output, "intake version dev")
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, output, "schema version 0 of 2")

	output, err = env.run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, output, "from version 0 to 2")

	output, err = env.run(t, "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, output, "schema version 2 of 2")
}

func TestImportReviewCommitAndRepeat(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "import", "--user", "alice", env.statement)
	require.NoError(t, err)
	assert.Contains(t, output, "td.txt: TD Canada Trust chequing, 4 transactions")
	assert.Contains(t, output, "Food / Dining")
	assert.Contains(t, output, "Review only")

	output, err = env.run(t, "import", "--user", "alice", "--commit", env.statement)
	require.NoError(t, err)
	assert.Contains(t, output, "Stored 4 transactions (0 already present)")

	output, err = env.run(t, "import", "--user", "alice", env.statement)
	require.NoError(t, err)
	assert.Contains(t, output, "4 already imported transactions hidden")
	assert.Contains(t, output, "No transactions to review")

	output, err = env.run(t, "import", "--user", "bob", env.statement)
	require.NoError(t, err)
	assert.NotContains(t, output, "already imported")
}

func TestImport_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "import", env.statement)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")

	_, err = env.run(t, "import", "--user", "alice", "--bank", "scotia", env.statement)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid configuration")

	_, err = env.run(t, "import", "--user", "alice", filepath.Join(env.dir, "nope.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not read")
}

func TestCorrectAndLearned(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "correct", "--user", "alice", "--text", "Acme Corp Payroll", "--category", "Income", "--label", "Salary")
	require.NoError(t, err)
	assert.Contains(t, output, `"ACME CORP PAYROLL"`)
	assert.Contains(t, output, "seen 1 times, confidence 65")

	output, err = env.run(t, "correct", "--user", "alice", "--text", "ACME CORP PAYROLL", "--category", "Income", "--label", "Salary")
	require.NoError(t, err)
	assert.Contains(t, output, "seen 2 times, confidence 70")

	output, err = env.run(t, "learned", "--user", "alice")
	require.NoError(t, err)
	assert.Contains(t, output, "ACME CORP PAYROLL")
	assert.Contains(t, output, "Income / Salary")

	output, err = env.run(t, "learned", "--user", "bob")
	require.NoError(t, err)
	assert.Contains(t, output, "No learned patterns for bob")

	output, err = env.run(t, "import", "--user", "alice", env.statement)
	require.NoError(t, err)
	assert.Contains(t, output, "LEARNED")

	_, err = env.run(t, "correct", "--user", "alice", "--text", "ACME", "--category", "Uncategorised")
	require.Error(t, err)
}

func TestRegistrySeedAndList(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "registry", "seed")
	require.NoError(t, err)
	assert.Contains(t, output, "Seeded")

	seedFile := filepath.Join(env.dir, "seed.yaml")
	require.NoError(t, os.WriteFile(seedFile, []byte(`merchants:
  - {pattern: Club Sportif, category: Health, label: Fitness, score: 70}
`), 0o600))

	output, err = env.run(t, "registry", "seed", seedFile)
	require.NoError(t, err)
	assert.Contains(t, output, "Seeded 1 merchant and 0 keyword patterns")

	output, err = env.run(t, "registry", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "TIM HORTONS")
	assert.Contains(t, output, "CLUB SPORTIF")
	assert.Contains(t, output, "LOYER")
}
