package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand("1.2.3", "abc1234", "2026-01-02")

	assert.Equal(t, "stanza", root.Name())
	assert.Contains(t, root.Version, "1.2.3")
	assert.Contains(t, root.Version, "abc1234")

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, name := range []string{"build", "test", "exec", "install", "sdist", "plugins"} {
		assert.Contains(t, names, name, "expected subcommand %s to be registered", name)
	}

	for _, name := range []string{"config", "home", "registry-url", "log-level", "log-format"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "expected persistent flag %s", name)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nil error", nil, 0},
		{"plain error", errors.New("boom"), 1},
		{"child exit code", &exitError{code: 3, err: fmt.Errorf("cabal test exited with status 3")}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ExitCode(tt.err))
		})
	}
}

func TestExitErrorUnwrap(t *testing.T) {
	underlying := errors.New("cabal build exited with status 2")
	err := &exitError{code: 2, err: underlying}

	assert.ErrorIs(t, err, underlying)
	assert.Equal(t, underlying.Error(), err.Error())
}

func TestPluginsListCommand(t *testing.T) {
	t.Setenv("STANZA_HOME", t.TempDir())
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".stanza"), 0o755))

	config := `plugins:
  hspec:
    - name: hspec-fancy
      plugin: Formatters.fancy
    - name: hspec-seed
      github: fancy-org/hspec-seed
      ref: v1.2.0
      plugin: Seed.plugin
`
	require.NoError(t, os.WriteFile(filepath.Join(project, ".stanza", "plugins.yaml"), []byte(config), 0o644))
	t.Chdir(project)

	root := NewRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"plugins", "list"})

	require.NoError(t, root.Execute())

	output := out.String()
	assert.Contains(t, output, "NAMESPACE")
	assert.Contains(t, output, "hspec-fancy")
	assert.Contains(t, output, "registry:hspec-fancy")
	assert.Contains(t, output, "github:fancy-org/hspec-seed@v1.2.0")
	assert.Contains(t, output, "Formatters.fancy")
	assert.Contains(t, output, "project:")
}

func TestPluginsListCommandEmpty(t *testing.T) {
	t.Setenv("STANZA_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := NewRootCommand("test", "none", "unknown")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"plugins", "list"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "no plugins configured")
}

func TestPluginsListCommandRejectsBadConfig(t *testing.T) {
	t.Setenv("STANZA_HOME", t.TempDir())
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, ".stanza"), 0o755))

	config := `plugins:
  hspec:
    - name: hspec-fancy
      version: ">=2"
      github: fancy-org/hspec-fancy
      ref: main
      plugin: Formatters.fancy
`
	require.NoError(t, os.WriteFile(filepath.Join(project, ".stanza", "plugins.yaml"), []byte(config), 0o644))
	t.Chdir(project)

	root := NewRootCommand("test", "none", "unknown")
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"plugins", "list"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version")
	assert.Equal(t, 1, ExitCode(err))
}

// plugins env with nothing configured must print nothing: the output is
// meant for shell export lines only.
func TestPluginsEnvCommandEmpty(t *testing.T) {
	t.Setenv("STANZA_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	root := NewRootCommand("test", "none", "unknown")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs([]string{"plugins", "env"})

	require.NoError(t, root.Execute())
	assert.Empty(t, out.String())
}
