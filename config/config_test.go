package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharederrors "datastorm/errors"
	"datastorm/logging"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "datastorm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("driver", "", "")
	fs.String("database", "", "")
	fs.String("dsn", "", "")
	fs.String("log-level", "", "")
	fs.String("log-format", "", "")
	fs.String("events", "", "")
	fs.String("events-url", "", "")
	fs.Int("limit", 0, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "datastorm.db", cfg.Database.Database)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, LogFormatText, cfg.Log.Format)
	assert.Equal(t, EventsNone, cfg.Events.Transport)
	assert.Empty(t, cfg.File)
}

func TestLoad_FileEnvFlagsPrecedence(t *testing.T) {
	path := writeFile(t, `
database:
  driver: mysql
  host: db.internal
  port: 3307
  database: shop
  username: app
log:
  level: warn
  format: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "utf8mb4", cfg.Database.Charset, "defaults fill gaps")
	assert.Equal(t, "warn", cfg.Log.Level)

	t.Setenv("DATASTORM_DATABASE__DATABASE", "shop_test")
	t.Setenv("DATASTORM_LOG__LEVEL", "debug")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "shop_test", cfg.Database.Database)
	assert.Equal(t, "debug", cfg.Log.Level)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--database", "shop_cli", "--limit", "5"}))
	cfg, err = Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "shop_cli", cfg.Database.Database)
	assert.Equal(t, "debug", cfg.Log.Level, "unset flags do not override env")
}

func TestLoad_FindsDefaultFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datastorm.yml"), []byte("database:\n  database: found.db\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "datastorm.yml", cfg.File)
	assert.Equal(t, "found.db", cfg.Database.Database)
}

func TestLoad_Errors(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "database: [unclosed"), nil)
	assert.Error(t, err)

	_, err = Load(writeFile(t, "database:\n  driver: oracle\n"), nil)
	require.Error(t, err)
	assert.True(t, sharederrors.IsValidation(err))

	_, err = Load(writeFile(t, "log:\n  level: loud\n"), nil)
	require.Error(t, err)
	assert.True(t, sharederrors.IsValidation(err))

	_, err = Load(writeFile(t, "log:\n  format: xml\n"), nil)
	assert.True(t, sharederrors.IsValidation(err))

	_, err = Load(writeFile(t, "database:\n  database: \"\"\n"), nil)
	assert.True(t, sharederrors.IsValidation(err))

	_, err = Load(writeFile(t, "events:\n  transport: kafka\n"), nil)
	assert.True(t, sharederrors.IsValidation(err))

	_, err = Load(writeFile(t, "events:\n  transport: redis\n"), nil)
	assert.True(t, sharederrors.IsValidation(err), "redis requires an address")
}

func TestLoad_EventsFromFlags(t *testing.T) {
	t.Chdir(t.TempDir())

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--events", "nats", "--events-url", "nats://127.0.0.1:4222"}))
	cfg, err := Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, EventsNATS, cfg.Events.Transport)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Events.URL)
}

func TestConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	cfg := &Config{Log: LogConfig{Level: "warn", Format: LogFormatJSON}}

	l, err := cfg.Logger(&buf)
	require.NoError(t, err)
	l.Info(context.Background(), "hidden")
	l.Warn(context.Background(), "shown", logging.Table("items"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"table":"items"`)

	cfg.Log.Format = LogFormatStd
	l, err = cfg.Logger(&buf)
	require.NoError(t, err)
	assert.IsType(t, &logging.StdLogger{}, l)

	cfg.Log.Level = "loud"
	_, err = cfg.Logger(&buf)
	assert.Error(t, err)
}
