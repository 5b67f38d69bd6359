package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SafePath picks a destination that will not clobber an existing file. A free
// path comes back unchanged; otherwise the numbered variants name_1..name_9
// are tried before falling back to a UUID suffix. The boolean reports whether
// the path was renamed.
func SafePath(path string) (string, bool, error) {
	if path == "" {
		return "", false, fmt.Errorf("output path is empty")
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return path, false, nil
	}
	if err != nil {
		return "", false, err
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i <= 9; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		_, err := os.Stat(candidate)
		if os.IsNotExist(err) {
			return candidate, true, nil
		}
		if err != nil {
			return "", false, err
		}
	}
	return fmt.Sprintf("%s_%s%s", stem, uniqueSuffix(), ext), true, nil
}

func uniqueSuffix() string {
	// V7 keeps heavily-renamed output directories sortable by creation time.
	if u, err := uuid.NewV7(); err == nil {
		return u.String()
	}
	return uuid.NewString()[:8]
}
