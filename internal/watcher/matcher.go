package watcher

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// isScriptModify reports whether ev is a content or attribute change of the
// file called name. Only the base name is compared; paths are not
// canonicalised.
func isScriptModify(ev fsnotify.Event, name string) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Chmod) {
		return false
	}
	return filepath.Base(ev.Name) == name
}
