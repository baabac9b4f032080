package watcher

import (
	"errors"
	"fmt"
	"os"
)

// ErrScriptUnreadable is returned by PrepareScript when the script exists
// but cannot be opened for reading.
var ErrScriptUnreadable = errors.New("cannot read script file")

// PrepareScript makes sure path is a readable file. A missing file is
// created empty and created is true.
func PrepareScript(path string) (created bool, err error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		f, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return false, fmt.Errorf("failed to create script file: %w", err)
		}
		return true, f.Close()
	case err != nil:
		return false, fmt.Errorf("%w: %w", ErrScriptUnreadable, err)
	case !info.Mode().IsRegular():
		return false, fmt.Errorf("%w: %s is not a regular file", ErrScriptUnreadable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrScriptUnreadable, err)
	}
	return false, f.Close()
}
