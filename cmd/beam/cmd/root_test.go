package cmd

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamlauncher/beam/internal/config"
	"github.com/beamlauncher/beam/internal/gateway"
)

func TestRootCmd_RejectsUnknownArg(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"explode"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestRunCommand_NoReceiver(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.CacheDir = t.TempDir()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := runCommand(cmd, cfg, gateway.CommandShow)
	require.Error(t, err)
	assert.Equal(t, "There is no other instance of beam running.\n", out.String())
}

func TestRunCommand_ReportsReply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.CacheDir = t.TempDir()

	srv := gateway.NewServer(cfg.SocketPath(), visibilitySink{})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	defer func() {
		_ = srv.Close()
		<-errCh
	}()

	client := gateway.NewClient(cfg.SocketPath(), 0, 0)
	require.Eventually(t, client.IsRunning, 2*time.Second, 10*time.Millisecond)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, runCommand(cmd, cfg, gateway.CommandToggle))
	assert.Equal(t, gateway.ReplyToggled+"\n", out.String())
}

func TestRunCommand_UnsupportedCommandFails(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.CacheDir = t.TempDir()

	srv := gateway.NewServer(cfg.SocketPath(), visibilitySink{})
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	defer func() {
		_ = srv.Close()
		<-errCh
	}()

	client := gateway.NewClient(cfg.SocketPath(), 0, 0)
	require.Eventually(t, client.IsRunning, 2*time.Second, 10*time.Millisecond)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	err := runCommand(cmd, cfg, "restart")
	require.Error(t, err)
	assert.Equal(t, gateway.ReplyUnsupported+"\n", out.String())
}

func TestRunInstance_SecondInvocationExitsCleanly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Paths.CacheDir = t.TempDir()

	// Hold the instance lock as the running instance would.
	lock := gateway.NewInstanceLock(cfg.LockPath())
	acquired, err := lock.TryAcquire()
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { require.NoError(t, lock.Release()) }()

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	// A plain launch against a running instance reports it and exits
	// zero; only a command with no receiver is a failure.
	require.NoError(t, runInstance(cmd, cfg, true))
	assert.Equal(t, "There is another instance of beam running.\n", out.String())
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "beam version "))
}

func TestLoadConfig_PluginDirOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := loadConfig("", []string{filepath.Join(dir, "plugins")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "plugins")}, cfg.Paths.PluginDirs)
}

// visibilitySink discards visibility commands.
type visibilitySink struct{}

func (visibilitySink) SetVisible(bool)   {}
func (visibilitySink) ToggleVisibility() {}
