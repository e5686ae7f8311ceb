package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tx.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRunPrintsAccounts(t *testing.T) {
	t.Setenv("TALLY_AUDIT", "true")
	t.Setenv("TALLY_LOG_LEVEL", "error")

	path := writeCSV(t, "type, client, tx, amount\n"+
		"deposit, 1, 1, 1.0\n"+
		"deposit, 2, 2, 2.0\n"+
		"deposit, 1, 3, 2.0\n"+
		"withdrawal, 1, 4, 1.5\n"+
		"withdrawal, 2, 5, 3.0\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), path}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t,
		"client,available,held,total,locked\n"+
			"1,1.5,0,1.5,false\n"+
			"2,2,0,2,false\n",
		stdout.String())
}

func TestRunRequiresOneFile(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: tally")
}

func TestRunRejectsMissingAndDirectories(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Error(t, run([]string{filepath.Join(t.TempDir(), "nope.csv")}, &stdout, &stderr))
	assert.Error(t, run([]string{t.TempDir()}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
}

func TestRunReportsMetricsWhenEnabled(t *testing.T) {
	t.Setenv("TALLY_METRICS", "true")
	t.Setenv("TALLY_LOG_LEVEL", "error")

	path := writeCSV(t, "type, client, tx, amount\n"+
		"deposit, 1, 1, 1.0\n"+
		"deposit, 1, 1, 1.0\n"+
		"withdrawal, 1, 2, 0.5\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), path}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "client,available,held,total,locked\n1,0.5,0,0.5,false\n", stdout.String())
	assert.Contains(t, stderr.String(), "name=tally.orders.processed value=2")
	assert.Contains(t, stderr.String(), "name=tally.orders.rejected value=1")
	assert.Contains(t, stderr.String(), "name=tally.orders.rejected.duplicate value=1")
}

func TestRunQuietWithoutMetrics(t *testing.T) {
	t.Setenv("TALLY_METRICS", "false")
	t.Setenv("TALLY_LOG_LEVEL", "error")

	path := writeCSV(t, "type, client, tx, amount\ndeposit, 1, 1, 1.0\n")

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-env", filepath.Join(t.TempDir(), "none.env"), path}, &stdout, &stderr))
	assert.NotContains(t, stderr.String(), "msg=metric")
}
