// Package integration provides embedded shell integration snippets.
package integration

import (
	"bytes"
	_ "embed"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"
)

// ZshFzf contains the zsh shell integration script with fzf support.
//
//go:embed zsh-fzf.sh
var ZshFzf string

// Render renders the integration script, substituting the zsh path and the
// path of the running dirscan binary.
func Render() (string, error) {
	// First use LookPath to find zsh binary
	zsh, err := exec.LookPath("zsh")
	if err != nil {
		return "", err
	}

	binary, err := os.Executable()
	if err != nil {
		binary = "dirscan"
	}

	return render(zsh, binary)
}

// render fills the script template with the given zsh and dirscan paths.
func render(zsh, binary string) (string, error) {
	tmpl, err := template.New("zsh-fzf").Parse(ZshFzf)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{
		"ZSH":    filepath.ToSlash(zsh),
		"Binary": filepath.ToSlash(binary),
	}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
