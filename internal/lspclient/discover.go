package lspclient

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/jpequegn/polybench/internal/dsl"
)

type errUnsupportedLang dsl.Lang

func (e errUnsupportedLang) Error() string {
	return fmt.Sprintf("lspclient: no host language server known for %q", dsl.Lang(e))
}

// findExecutable locates name on PATH, falling back to a short list of
// common per-toolchain install locations under $HOME, grounded on
// gopls_client.rs's find_gopls (which-first, then $HOME/go/bin,
// $HOME/.local/bin, and a couple of OS-specific prefixes).
func findExecutable(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("lspclient: %s not on PATH and $HOME unavailable: %w", name, err)
	}

	candidates := []string{
		filepath.Join(home, "go", "bin", name),
		filepath.Join(home, ".local", "bin", name),
		filepath.Join(home, ".cargo", "bin", name),
		"/usr/local/go/bin/" + name,
		"/opt/homebrew/bin/" + name,
	}
	for _, c := range candidates {
		if info, statErr := os.Stat(c); statErr == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("lspclient: %s not found on PATH or in common install locations", name)
}
