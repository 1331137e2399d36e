package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/healthaccess/internal/analysis"
	"github.com/sells-group/healthaccess/internal/export"
	"github.com/sells-group/healthaccess/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"run", "population", "rucc", "report", "map", "serve", "store"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "healthaccess", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNestedSubcommands(t *testing.T) {
	has := func(names []string, want string) bool {
		for _, n := range names {
			if n == want {
				return true
			}
		}
		return false
	}
	var popNames, ruccNames, storeNames []string
	for _, c := range populationCmd.Commands() {
		popNames = append(popNames, c.Name())
	}
	for _, c := range ruccCmd.Commands() {
		ruccNames = append(ruccNames, c.Name())
	}
	for _, c := range storeCmd.Commands() {
		storeNames = append(storeNames, c.Name())
	}
	assert.True(t, has(popNames, "fetch"))
	assert.True(t, has(ruccNames, "pivot"))
	assert.True(t, has(storeNames, "migrate"))
	assert.True(t, has(storeNames, "load"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunCommand_Flags(t *testing.T) {
	for _, name := range []string{"state", "facilities", "population", "rucc", "out", "include-zero-facility-counties", "persist"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "run command should have --%s flag", name)
	}
}

func TestReportCommand_Defaults(t *testing.T) {
	assert.Equal(t, "categories", reportCmd.Flags().Lookup("view").DefValue)
	assert.Equal(t, "10", reportCmd.Flags().Lookup("n").DefValue)
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Empty(t, firstNonEmpty("", ""))
}

func viewRows() []model.CountySummary {
	t := analysis.DefaultThresholds()
	mk := func(fips, name string, n int, pop int64, code int64) model.CountySummary {
		c := model.CountySummary{
			StateFIPS: "13", CountyFIPS: fips, CountyName: name, FullFIPS: "13" + fips,
			NumFacilities: n, Population: model.IntOf(pop), RUCCCode: model.IntOf(code),
		}
		c.Density = analysis.Density(n, c.Population)
		c.Category = analysis.Classify(c.RUCCCode, t)
		return c
	}
	return []model.CountySummary{
		mk("003", "Atkinson County, Georgia", 1, 30000, 9),
		mk("089", "DeKalb County, Georgia", 12, 760000, 1),
		mk("275", "Thomas County, Georgia", 4, 45000, 6),
	}
}

func TestWriteView(t *testing.T) {
	t.Cleanup(func() { reportView, reportBy, reportOrder, reportN = "categories", "population", "desc", 10 })

	var buf bytes.Buffer
	reportView = "underserved"
	require.NoError(t, writeView(&buf, viewRows(), analysis.DefaultThresholds()))
	assert.Contains(t, buf.String(), "full_fips: \"13003\"")
	assert.NotContains(t, buf.String(), "13275")

	buf.Reset()
	reportView, reportBy, reportN = "top", "facilities", 1
	require.NoError(t, writeView(&buf, viewRows(), analysis.DefaultThresholds()))
	assert.Contains(t, buf.String(), "DeKalb County, Georgia")
	assert.NotContains(t, buf.String(), "Atkinson")

	buf.Reset()
	reportView = "categories"
	require.NoError(t, writeView(&buf, viewRows(), analysis.DefaultThresholds()))
	assert.Contains(t, buf.String(), "category: Metropolitan")
	assert.Contains(t, buf.String(), "category: Nonmetropolitan")

	reportView = "histogram"
	assert.Error(t, writeView(&buf, viewRows(), analysis.DefaultThresholds()))
}

func TestRuccPivotCommand(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	t.Setenv("HEALTHACCESS_LOG_LEVEL", "error")

	in := filepath.Join(dir, "rucc_long.csv")
	out := filepath.Join(dir, "rucc_wide.csv")
	require.NoError(t, os.WriteFile(in, []byte("FIPS,State,County_Name,Attribute,Value\n"+
		"13003,GA,Atkinson County,RUCC_2023,9\n"+
		"13003,GA,Atkinson County,Description,Nonmetro\n"), 0o644))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"rucc", "pivot", "--in", in, "--out", out})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "wrote 1 counties")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "FIPS,RUCC_Code,RUCC_Description\n13003,9,Nonmetro\n", string(data))
}

func TestStoreLoadCommand_SQLite(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	t.Setenv("HEALTHACCESS_LOG_LEVEL", "error")
	t.Setenv("HEALTHACCESS_STORE_SQLITE_PATH", filepath.Join(dir, "health.db"))

	summary := filepath.Join(dir, "summary.csv")
	require.NoError(t, export.WriteCSVFile(summary, viewRows()))

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetArgs([]string{"store", "load", "--in", summary})
	t.Cleanup(func() { rootCmd.SetArgs(nil); rootCmd.SetOut(nil) })
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, stdout.String(), "stored 3 counties")
}

func TestRunCommand_RejectsInvalidState(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	t.Setenv("HEALTHACCESS_LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"run", "--state", "GA", "--out", filepath.Join(dir, "out")})
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		runState = ""
		runCmd.Flags().Lookup("state").Changed = false
		runCmd.Flags().Lookup("out").Changed = false
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "state_fips")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}
