package envfile

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	content, skipped := Render(map[string]string{
		"B":       "2",
		"A":       "1",
		"QUOTED":  `say "hi"`,
		"DOLLAR":  "$HOME and `id` and \\",
		"EMPTY":   "",
		"bad-key": "x",
		"a/b":     "y",
	})

	want := strings.Join([]string{
		`export A="1"`,
		`export B="2"`,
		`export DOLLAR="\$HOME and \` + "`" + `id\` + "`" + ` and \\"`,
		`export EMPTY=""`,
		`export QUOTED="say \"hi\""`,
	}, "\n") + "\n"
	assert.Equal(t, want, content)
	assert.Equal(t, []string{"a/b", "bad-key"}, skipped)
}

func TestRenderEmpty(t *testing.T) {
	content, skipped := Render(map[string]string{})
	assert.Empty(t, content)
	assert.Empty(t, skipped)
}

func TestRenderedValuesSurviveTheShell(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh available")
	}

	value := "a \"quoted\" $HOME `id` \\ value"
	content, _ := Render(map[string]string{"V": value})
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, Write(path, content))

	out, err := exec.Command(sh, "-c", `. "$1" && printf %s "$V"`, "sh", path).Output()
	require.NoError(t, err)
	assert.Equal(t, value, string(out))
}

func TestEnsureSourced(t *testing.T) {
	path := filepath.Join(t.TempDir(), BashrcName)
	require.NoError(t, os.WriteFile(path, []byte("alias ll='ls -l'"), 0644))

	changed, err := EnsureSourced(path)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = EnsureSourced(path)
	require.NoError(t, err)
	assert.False(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alias ll='ls -l'\n"+SourceLine+"\n", string(data))
	assert.Equal(t, 1, strings.Count(string(data), SourceLine))
}

func TestEnsureSourcedCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), BashrcName)

	changed, err := EnsureSourced(path)
	require.NoError(t, err)
	assert.True(t, changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n"+SourceLine+"\n", string(data))
}

func TestUpdate(t *testing.T) {
	home := t.TempDir()

	result, err := Update(home, map[string]string{"X": "1", "no-good": "2"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, FileName), result.Path)
	assert.Equal(t, 1, result.Exported)
	assert.Equal(t, []string{"no-good"}, result.Skipped)
	assert.True(t, result.Sourced)

	data, err := os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "export X=\"1\"\n", string(data))

	// a second update replaces the file and leaves .bashrc alone
	result, err = Update(home, map[string]string{"Y": "2"})
	require.NoError(t, err)
	assert.False(t, result.Sourced)

	data, err = os.ReadFile(result.Path)
	require.NoError(t, err)
	assert.Equal(t, "export Y=\"2\"\n", string(data))
}
