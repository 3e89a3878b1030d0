package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	if _, err := exec.LookPath("zsh"); err != nil {
		t.Skip("zsh not installed")
	}

	rendered, err := Render()
	require.NoError(t, err)

	assert.NotContains(t, rendered, "{{")
	assert.Contains(t, rendered, "dsf()")
	assert.Contains(t, rendered, "--output plain")
}

func TestScriptIsEmbedded(t *testing.T) {
	assert.Contains(t, ZshFzf, "{{ .ZSH }}")
	assert.Contains(t, ZshFzf, "{{ .Binary }}")
}

// stub writes an executable shell script.
func stub(t *testing.T, path, body string) {
	t.Helper()

	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

func TestDsfArguments(t *testing.T) {
	zsh, err := exec.LookPath("zsh")
	if err != nil || runtime.GOOS == "windows" {
		t.Skip("zsh not installed")
	}

	bin := t.TempDir()
	argsFile := filepath.Join(t.TempDir(), "args")

	// The dirscan stand-in records its arguments; fzf selects nothing.
	stub(t, filepath.Join(bin, "dirscan"), `printf '%s\n' "$@" > "`+argsFile+`"`+"\n")
	stub(t, filepath.Join(bin, "fzf"), "cat >/dev/null\nexit 1\n")

	script, err := render(zsh, filepath.Join(bin, "dirscan"))
	require.NoError(t, err)

	tests := []struct {
		name string
		call string
		want []string
	}{
		{"no arguments", "dsf", []string{"top", ".", "--top", "50", "--output", "plain"}},
		{"path", "dsf src", []string{"top", "src", "--top", "50", "--output", "plain"}},
		{"flags only", "dsf --ext .go", []string{"top", ".", "--top", "50", "--output", "plain", "--ext", ".go"}},
		{"path and flags", "dsf src -x .md", []string{"top", "src", "--top", "50", "--output", "plain", "-x", ".md"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := exec.Command(zsh, "-f", "-c", script+"\n"+tt.call)
			cmd.Env = append(os.Environ(),
				"PATH="+bin+string(os.PathListSeparator)+os.Getenv("PATH"),
				"DIRSCAN_FZF_TOP=50",
			)

			_ = cmd.Run() // dsf fails because fzf selects nothing

			recorded, err := os.ReadFile(argsFile)
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Fields(string(recorded)))
		})
	}
}
