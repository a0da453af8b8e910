// Package fs provides small filesystem helpers.
package fs

import "os"

// FileExists reports whether something exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
