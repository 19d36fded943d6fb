package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type testConfig struct {
	level, output, file string
}

func (c testConfig) GetLevel() string  { return c.level }
func (c testConfig) GetOutput() string { return c.output }
func (c testConfig) GetFile() string   { return c.file }

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLogLevel("debug"))
	assert.Equal(t, WARN, ParseLogLevel("WARNING"))
	assert.Equal(t, ERROR, ParseLogLevel("error"))
	assert.Equal(t, INFO, ParseLogLevel("unknown"))
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := newWithSyncer(WARN, zapcore.AddSync(&buf))

	l.Info("project %d listed", 1)
	l.Warn("reverted call %s", "buyTokens")
	l.Sync()

	out := buf.String()
	assert.NotContains(t, out, "project 1 listed")
	assert.Contains(t, out, "reverted call buyTokens")
	assert.Contains(t, out, `"level":"WARN"`)
}

func TestSetup_File(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefaultLogger(prev) })

	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, Setup(testConfig{level: "info", output: "file", file: path}))

	Info("indexed %d events", 3)
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "indexed 3 events")
}

func TestSetup_FileWithoutPath(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefaultLogger(prev) })

	require.Error(t, Setup(testConfig{level: "info", output: "file"}))
	assert.Same(t, prev, Default())
}
