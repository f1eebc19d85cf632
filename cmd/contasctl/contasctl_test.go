package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contas/internal/cli"
	"contas/internal/config"
	"contas/internal/core"
	"contas/internal/log"
)

func TestParseTriState(t *testing.T) {
	tests := []struct {
		in      string
		want    *bool
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "all", want: nil},
		{in: "yes", want: ptr(true)},
		{in: "sim", want: ptr(true)},
		{in: "no", want: ptr(false)},
		{in: "talvez", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTriState(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFillWindow(t *testing.T) {
	today := core.NewDate(2024, 3, 15)

	q := core.ReportQuery{Mode: core.ModeMonth}
	fillWindow(&q, today)
	assert.Equal(t, 2024, q.Year)
	assert.Equal(t, 3, q.Month)

	q = core.ReportQuery{Mode: core.ModeMonth, Year: 2023, Month: 11}
	fillWindow(&q, today)
	assert.Equal(t, 2023, q.Year)
	assert.Equal(t, 11, q.Month)

	q = core.ReportQuery{Mode: core.ModeRange, Start: "2024-01-01", End: "2024-01-31"}
	fillWindow(&q, today)
	assert.Zero(t, q.Year)
}

func TestHashPasswordCommand(t *testing.T) {
	cmd := hashPasswordCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("s3gredo\n"))
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3gredo")))
}

func TestHashPasswordCommandRejectsEmpty(t *testing.T) {
	cmd := hashPasswordCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(nil)
	assert.Error(t, cmd.Execute())
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestCommandsAgainstSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "contas.db")

	cfg := &config.Config{DataBackend: config.BackendSQLite, SQLiteDBPath: dbPath}
	logger := log.Nop()
	ctx := context.Background()
	rt, err := cli.OpenSession(ctx, cfg, logger)
	require.NoError(t, err)
	_, err = rt.Session.Create(ctx, core.PayableInput{
		Description:  "Aluguel sede",
		GroupName:    "ESTRUTURA",
		SubgroupName: "Aluguel",
		DueDate:      "2024-03-10",
		Amount:       "1.500,00",
		IsRecurring:  true,
	})
	require.NoError(t, err)
	require.NoError(t, rt.Close(ctx))

	store := []string{"--backend", "sqlite", "--sqlite-path", dbPath}

	out := run(t, append([]string{"recurring", "--year", "2024", "--month", "3"}, store...)...)
	assert.Contains(t, out, "1 payables created")

	out = run(t, append([]string{"recurring", "--year", "2024", "--month", "3"}, store...)...)
	assert.Contains(t, out, "0 payables created")

	out = run(t, append([]string{"list", "--search", "aluguel"}, store...)...)
	assert.Contains(t, out, "2024-03-10")
	assert.Contains(t, out, "2024-04-10")

	out = run(t, append([]string{"report", "--mode", "year", "--year", "2024"}, store...)...)
	assert.Contains(t, out, "ESTRUTURA")
	assert.Contains(t, out, "3.000,00")

	backupPath := filepath.Join(dir, "backup.json")
	run(t, append([]string{"backup", "export", backupPath}, store...)...)
	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, string(data), "Aluguel sede")

	out = run(t, append([]string{"backup", "restore", backupPath}, store...)...)
	assert.Contains(t, out, "re-run with --yes")

	xlsxPath := filepath.Join(dir, "relatorio.xlsx")
	run(t, append([]string{"report", "--mode", "year", "--year", "2024", "--xlsx", xlsxPath}, store...)...)
	_, err = os.Stat(xlsxPath)
	assert.NoError(t, err)
}

func ptr[T any](v T) *T { return &v }
