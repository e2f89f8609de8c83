package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/studyflow/internal/common"
)

// ExpandPath resolves a leading ~ to the home directory and then substitutes $VAR
// references. Other users' homes (~name) are not supported.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "~") {
		return os.ExpandEnv(path), nil
	}

	rest := path[1:]
	if rest != "" && !strings.HasPrefix(rest, "/") {
		return "", fmt.Errorf("%w: cannot expand %q", common.ErrInvalidConfig, path)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("%w: cannot expand %q: %w", common.ErrInvalidConfig, path, err)
	}
	return os.ExpandEnv(filepath.Join(home, rest)), nil
}
