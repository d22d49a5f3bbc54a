// Package security validates operator-supplied filesystem paths.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsafePath is returned for paths that are empty or contain shell
// metacharacters.
var ErrUnsafePath = errors.New("unsafe file path")

// dangerousChars contains shell metacharacters that have no place in a
// database file name.
var dangerousChars = []string{";", "&", "|", "$", "`", "(", ")", "{", "}", "<", ">", "!", "\n", "\r"}

// CleanFilePath cleans path, makes it absolute and resolves symlinks when the
// file already exists.
func CleanFilePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsafePath)
	}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return "", fmt.Errorf("%w: %q contains %q", ErrUnsafePath, path, char)
		}
	}

	clean, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return clean, nil
		}
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return resolved, nil
}
