package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"randevu/internal/config"
	"randevu/internal/model"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "randevu", cmd.Use)

	for _, name := range []string{"serve", "availability", "export", "backup"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestConfigPath(t *testing.T) {
	t.Setenv(ConfigEnv, "/etc/randevu/config.yaml")

	assert.Equal(t, "/etc/randevu/config.yaml", (&RootOptions{}).configPath())
	assert.Equal(t, "local.yaml", (&RootOptions{ConfigPath: "local.yaml"}).configPath())
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	err := fmt.Errorf("run: %w", wrapExitError(ExitCommandError, "load config", os.ErrNotExist))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "load config: "+os.ErrNotExist.Error(), errors.Unwrap(err).Error())
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, "", &buf)
	logger.Info().Msg("hidden")
	logger.Warn().Str("date", "2025-02-15").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "2025-02-15", line["date"])

	buf.Reset()
	debug := newLogger(cfg, "debug", &buf)
	debug.Debug().Msg("override")
	assert.Contains(t, buf.String(), "override")
}

// writeConfig creates a config that keeps every path inside dir.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	body := fmt.Sprintf(`database:
  path: %[1]s/randevu.db
backup:
  path: %[1]s/backups
  retention_days: 7
export:
  path: %[1]s/exports
engine:
  timezone: UTC
logging:
  level: error
  format: json
profiles_path: %[1]s/profiles.yaml
`, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAvailabilityCommand(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := run(t, "--config", cfgPath, "availability", "--date", "2099-02-15", "--profile", "vip")
	require.NoError(t, err)

	var day model.DayAvailability
	require.NoError(t, json.Unmarshal([]byte(out), &day))
	assert.Equal(t, "2099-02-15", day.Date)
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, day.Available)
	assert.Empty(t, day.Occupied)
	assert.False(t, day.Degraded)

	_, err = run(t, "--config", cfgPath, "availability", "--date", "15.02.2099")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid date")

	_, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "availability", "--date", "2099-02-15")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExportAndBackupCommands(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir)

	out, err := run(t, "--config", cfgPath, "export", "--month", "2025-02")
	require.NoError(t, err)
	path := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "exports", "Şubat_2025.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"reservations", "audit_log", "profiles"}, f.GetSheetList())
	_ = f.Close()

	_, err = run(t, "--config", cfgPath, "export", "--month", "Feb")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err = run(t, "--config", cfgPath, "backup")
	require.NoError(t, err)
	snapshot := strings.TrimSpace(out)
	assert.Equal(t, filepath.Join(dir, "backups"), filepath.Dir(snapshot))
	assert.True(t, strings.HasPrefix(filepath.Base(snapshot), "randevu_"))
	_, err = os.Stat(snapshot)
	assert.NoError(t, err)
}
