// Package configutil reads json5 configuration files with optional
// local overrides: a checked-in <name>.<ext> next to an untracked
// <name>.local.<ext> that wins on conflicting keys.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig loads <name> and merges <name>.local.<ext> over it when
// present. Missing or empty files are skipped; when neither exists the
// bare os.ErrNotExist is returned so callers can probe with
// os.IsNotExist.
func ReadConfig[T any](name string) (T, error) {
	var out T

	found, err := decodeFile(name, &out)
	if err != nil {
		return out, err
	}

	localName := localPath(name)
	var override T
	foundLocal, err := decodeFile(localName, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("applying local config overrides", "local", localName)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

func decodeFile(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	// an empty file counts as absent, a deployment may touch the
	// local override without filling it in
	if len(contents) == 0 {
		return false, nil
	}
	return true, json5.Unmarshal(contents, out)
}

func localPath(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	prefix, ext := base, ""
	if i := strings.LastIndexByte(base, '.'); i >= 0 {
		prefix, ext = base[:i], base[i+1:]
	}
	return filepath.Join(dir, fmt.Sprintf("%s.local.%s", prefix, ext))
}

// ReadRecursively walks up from the working directory until it finds a
// config matching name, stopping at the filesystem root.
func ReadRecursively[T any](name string) (T, error) {
	var defaultOut T

	current, err := os.Getwd()
	if err != nil {
		return defaultOut, err
	}

	for {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			parent := filepath.Dir(current)
			if parent == current {
				return defaultOut, os.ErrNotExist
			}
			current = parent
			continue
		}
		return config, err
	}
}
