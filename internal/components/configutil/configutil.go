package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// layers returns the files that make up the config at `name`, lowest priority first.
// "dir/citaprevia.json5" is layered as "dir/citaprevia.json5" and "dir/citaprevia.local.json5".
func layers(name string) []string {
	ext := filepath.Ext(name)
	return []string{
		name,
		strings.TrimSuffix(name, ext) + ".local" + ext,
	}
}

// ReadConfig reads the json5 config at `name` and merges its local override on top, a field set
// in the override wins. It returns os.ErrNotExist when none of the layers exist.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := 0

	for _, layer := range layers(name) {
		contents, err := os.ReadFile(layer)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return out, err
		}
		if len(contents) == 0 {
			continue
		}

		var parsed T
		err = json5.Unmarshal(contents, &parsed)
		if err != nil {
			return out, fmt.Errorf("parse %s: %w", layer, err)
		}
		err = mergo.Merge(&out, parsed, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", layer, err)
		}
		if found > 0 {
			slog.Debug("merged config with local overrides", "local", layer)
		}
		found++
	}

	if found == 0 {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively calls ReadConfig on `name` in the working directory and then in each of its
// parents, the first directory holding the config wins.
func ReadRecursively[T any](name string) (T, error) {
	var empty T

	dir, err := os.Getwd()
	if err != nil {
		return empty, err
	}
	for {
		config, err := ReadConfig[T](filepath.Join(dir, name))
		if err == nil {
			return config, nil
		}
		if !os.IsNotExist(err) {
			return empty, err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return empty, os.ErrNotExist
		}
		dir = parent
	}
}

// WithDefaults fills in every zero field of `config` with the value in `defaults`.
func WithDefaults[T any](config T, defaults T) (T, error) {
	err := mergo.Merge(&config, defaults)
	return config, err
}
