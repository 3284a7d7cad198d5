package util

import "github.com/docker/go-units"

// ParseSize parses a human-readable byte size (e.g. "500MiB", "1GB")
// for the --row-group-bytes and --page-size flags, via docker/go-units.
func ParseSize(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := units.FromHumanSize(s)
	if err != nil {
		return 0, err
	}
	return n, nil
}
