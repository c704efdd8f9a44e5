package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appDir = "demo-kafka"

// FindConfigPath returns the first existing config file among the usual
// locations, or ./config.yml when none exists.
func FindConfigPath() string {
	for _, p := range candidatePaths() {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return "./config.yml"
}

func candidatePaths() []string {
	names := []string{"config.yml", "config.yaml"}
	var candidates []string

	for _, n := range names {
		candidates = append(candidates, "./"+n)
	}

	home, _ := os.UserHomeDir()
	if runtime.GOOS == "windows" {
		if appdata := os.Getenv("APPDATA"); appdata != "" {
			for _, n := range names {
				candidates = append(candidates, filepath.Join(appdata, appDir, n))
			}
		}
		if home != "" {
			for _, n := range names {
				candidates = append(candidates, filepath.Join(home, appDir, n))
			}
		}
		return candidates
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(xdg, appDir, n))
		}
	}
	if home != "" {
		for _, n := range names {
			candidates = append(candidates, filepath.Join(home, ".config", appDir, n))
		}
	}
	for _, n := range names {
		candidates = append(candidates, filepath.Join("/etc", appDir, n))
	}
	return candidates
}
