package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
)

// NewStore creates a store by backend name: "memory" or "sqlite".
// For sqlite the parent directory of path is created.
func NewStore(kind, path string) (Store, error) {
	switch kind {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		if path == "" {
			return nil, fmt.Errorf("sqlite checkpoint store needs a path")
		}
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating %s: %w", dir, err)
			}
		}
		return NewSQLiteStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported checkpoint backend %q", kind)
	}
}
