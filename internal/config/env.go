package config

import (
	"os"
	"strings"
)

// LoadEnvFile applies KEY=value lines from path to the process environment.
// A missing file is not an error, so .env stays optional. Blank lines and
// # comments are skipped; an "export " prefix and single or double quotes
// around the value are tolerated, which covers the common shell-sourced .env
// shapes.
func LoadEnvFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		os.Setenv(key, unquote(strings.TrimSpace(value)))
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
