package clientcmd

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjad-MoBe/genv/internal/api"
	"github.com/sajjad-MoBe/genv/internal/envfile"
	"github.com/sajjad-MoBe/genv/internal/localconfig"
	"github.com/sajjad-MoBe/genv/internal/shared"
	"github.com/sajjad-MoBe/genv/internal/storage"
)

const testSecret = "abc"

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := shared.DiscardLogger()
	snap := storage.NewFileSnapshotter(filepath.Join(t.TempDir(), "state.json"))
	table := storage.Open(context.Background(), snap, logger)

	server := httptest.NewServer(api.Router(api.NewHandler(table, logger), api.RouterConfig{
		Auth:   api.NewAuthorizer(testSecret, nil),
		Logger: logger,
	}))
	t.Cleanup(server.Close)
	return server
}

// run executes genv with args and returns stdout, stderr and the error
func run(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(Options{Home: home, Out: &out, Err: &errOut})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func configuredHome(t *testing.T, server *httptest.Server) string {
	t.Helper()
	home := t.TempDir()
	_, _, err := run(t, home, "config", "server", server.URL)
	require.NoError(t, err)
	_, _, err = run(t, home, "config", "secret", testSecret)
	require.NoError(t, err)
	return home
}

func TestConfigCommand(t *testing.T) {
	home := t.TempDir()

	_, _, err := run(t, home, "config", "server", "http://localhost:3000")
	require.NoError(t, err)
	_, _, err = run(t, home, "config", "secret", "abc")
	require.NoError(t, err)

	cfg, err := localconfig.Load(localconfig.Path(home))
	require.NoError(t, err)
	assert.Equal(t, &localconfig.Config{Server: "http://localhost:3000", Secret: "abc"}, cfg)

	_, _, err = run(t, home, "config", "port", "80")
	assert.ErrorIs(t, err, localconfig.ErrInvalidKey)
}

func TestWrongArityPrintsUsage(t *testing.T) {
	home := t.TempDir()

	tests := [][]string{
		{"config", "server"},
		{"get"},
		{"get", "a", "b"},
		{"set", "a"},
		{"update", "extra"},
		{"all", "extra"},
	}

	for _, args := range tests {
		t.Run(args[0], func(t *testing.T) {
			out, _, err := run(t, home, args...)
			assert.Error(t, err)
			assert.Contains(t, out, "Usage:")
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "delete", "x")
	assert.Error(t, err)
}

func TestCommandsRequireConfig(t *testing.T) {
	home := t.TempDir()

	_, _, err := run(t, home, "get", "x")
	assert.ErrorIs(t, err, localconfig.ErrNoServer)

	_, _, err = run(t, home, "config", "server", "http://localhost:3000")
	require.NoError(t, err)

	_, _, err = run(t, home, "set", "x", "1")
	assert.ErrorIs(t, err, localconfig.ErrNoSecret)
}

func TestSetGet(t *testing.T) {
	home := configuredHome(t, setupTestServer(t))

	out, _, err := run(t, home, "set", "EDITOR", "vim")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, _, err = run(t, home, "get", "EDITOR")
	require.NoError(t, err)
	assert.Equal(t, "vim\n", out)

	_, _, err = run(t, home, "get", "missing")
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	home := configuredHome(t, setupTestServer(t))
	require.NoError(t, os.WriteFile(filepath.Join(home, envfile.BashrcName), []byte("export PS1='$ '\n"), 0644))

	_, _, err := run(t, home, "set", "B", `two "words"`)
	require.NoError(t, err)
	_, _, err = run(t, home, "set", "A", "1")
	require.NoError(t, err)
	_, _, err = run(t, home, "set", "not-exportable", "x")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, errOut, err := run(t, home, "update")
		require.NoError(t, err)
		assert.Contains(t, errOut, "not-exportable")
	}

	data, err := os.ReadFile(filepath.Join(home, envfile.FileName))
	require.NoError(t, err)
	assert.Equal(t, "export A=\"1\"\nexport B=\"two \\\"words\\\"\"\n", string(data))

	bashrc, err := os.ReadFile(filepath.Join(home, envfile.BashrcName))
	require.NoError(t, err)
	assert.Equal(t, "export PS1='$ '\n\n"+envfile.SourceLine+"\n", string(bashrc))
}

func TestAllOutputs(t *testing.T) {
	home := configuredHome(t, setupTestServer(t))
	_, _, err := run(t, home, "set", "B", "2")
	require.NoError(t, err)
	_, _, err = run(t, home, "set", "A", "1")
	require.NoError(t, err)

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"all"}, want: "{\n  \"A\": \"1\",\n  \"B\": \"2\"\n}\n"},
		{args: []string{"all", "--output", "env"}, want: "export A=\"1\"\nexport B=\"2\"\n"},
		{args: []string{"all", "-o", "yaml"}, want: "A: \"1\"\nB: \"2\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			out, _, err := run(t, home, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	_, _, err = run(t, home, "all", "--output", "xml")
	assert.Error(t, err)
}

func TestBadSecret(t *testing.T) {
	server := setupTestServer(t)
	home := configuredHome(t, server)
	_, _, err := run(t, home, "config", "secret", "wrong")
	require.NoError(t, err)

	_, _, err = run(t, home, "all")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
