package filex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideBase = errors.New("path escapes base directory")

// EnsureDir creates dirName (relative to the working directory unless
// absolute) and returns its absolute path.
func EnsureDir(dirName string) (string, error) {
	dir := dirName
	if !filepath.IsAbs(dir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		dir = filepath.Join(cwd, dirName)
	}

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// SafeJoin resolves name under base and rejects anything that would land
// outside of it.
func SafeJoin(base, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty name: %w", ErrOutsideBase)
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", base, err)
	}
	p := filepath.Join(absBase, name)
	rel, err := filepath.Rel(absBase, p)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrOutsideBase)
	}
	return p, nil
}
