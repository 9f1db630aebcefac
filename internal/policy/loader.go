package policy

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadRegoFiles reads a policy bundle. path may be a single .rego file or a
// directory, which is walked recursively. Modules are keyed by their
// slash-separated path relative to the bundle root; Rego unit tests
// (*_test.rego) are skipped.
func LoadRegoFiles(path string) (map[string]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !isPolicyFile(path) {
			return nil, fmt.Errorf("%s is not a rego policy file", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return map[string]string{filepath.Base(path): string(data)}, nil
	}

	modules := make(map[string]string)
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isPolicyFile(p) {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		modules[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modules, nil
}

func isPolicyFile(p string) bool {
	return filepath.Ext(p) == ".rego" && !strings.HasSuffix(p, "_test.rego")
}
