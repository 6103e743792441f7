// Package envfile renders variables into ~/.genv and makes ~/.bashrc
// source it.
package envfile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	// FileName is the rendered file inside the home directory
	FileName = ".genv"
	// BashrcName is the shell startup file that sources FileName
	BashrcName = ".bashrc"
	// SourceLine is appended to the startup file once
	SourceLine = "source ~/.genv"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

// Result describes what Update changed
type Result struct {
	Path     string
	Exported int
	Skipped  []string
	Sourced  bool
}

// Render returns one export line per variable ordered by name. Names that
// are not shell identifiers cannot be exported and are returned in skipped.
func Render(vars map[string]string) (content string, skipped []string) {
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if !identifier.MatchString(name) {
			skipped = append(skipped, name)
			continue
		}
		fmt.Fprintf(&b, "export %s=%s\n", name, Quote(vars[name]))
	}
	return b.String(), skipped
}

// Quote double-quotes value for a POSIX shell
func Quote(value string) string {
	return `"` + quoter.Replace(value) + `"`
}

// Write replaces the file at path with content
func Write(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return nil
}

// EnsureSourced appends SourceLine to the startup file at path unless it
// already contains it, creating the file when missing. It reports whether
// the file changed.
func EnsureSourced(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("error reading %s: %w", path, err)
	}
	if strings.Contains(string(data), SourceLine) {
		return false, nil
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		return false, fmt.Errorf("error opening %s for writing: %w", path, err)
	}
	if _, err := f.WriteString("\n" + SourceLine + "\n"); err != nil {
		f.Close()
		return false, fmt.Errorf("error writing %s: %w", path, err)
	}
	return true, f.Close()
}

// Update renders vars into home/.genv and makes home/.bashrc source it
func Update(home string, vars map[string]string) (*Result, error) {
	content, skipped := Render(vars)
	result := &Result{
		Path:     filepath.Join(home, FileName),
		Exported: len(vars) - len(skipped),
		Skipped:  skipped,
	}

	if err := Write(result.Path, content); err != nil {
		return nil, err
	}

	sourced, err := EnsureSourced(filepath.Join(home, BashrcName))
	if err != nil {
		return nil, err
	}
	result.Sourced = sourced
	return result, nil
}
