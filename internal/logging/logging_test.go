package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsGoToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(newHandler(&stdout, &stderr))

	logger.Info("baked", "loaves", 12)
	logger.Warn("oven hot")
	logger.Error("oven broke")
	logger.Debug("ignored")

	assert.Contains(t, stdout.String(), "msg=baked loaves=12")
	assert.Contains(t, stdout.String(), "msg=\"oven hot\"")
	assert.NotContains(t, stdout.String(), "oven broke")
	assert.Contains(t, stderr.String(), "msg=\"oven broke\"")
	assert.NotContains(t, stdout.String()+stderr.String(), "ignored")
}

func TestAttrsAndGroupsReachBothOutputs(t *testing.T) {
	var stdout, stderr bytes.Buffer
	logger := slog.New(newHandler(&stdout, &stderr)).With("shift", "night").WithGroup("oven")

	logger.Info("start", "temp", 230)
	logger.Error("stop", "temp", 0)

	assert.Contains(t, stdout.String(), "shift=night oven.temp=230")
	assert.Contains(t, stderr.String(), "shift=night oven.temp=0")
}

func TestSetupWritesLogFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "pekarna.log")
	cleanup, err := Setup(path)
	require.NoError(t, err)

	slog.Info("to file")
	cleanup()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "msg=\"to file\"")
}

func TestSetupRejectsUnwritablePath(t *testing.T) {
	_, err := Setup(filepath.Join(t.TempDir(), "missing", "pekarna.log"))
	assert.Error(t, err)
}
