//go:build dev

package main

import (
	"io/fs"
	"os"
)

// In dev mode templates and static files come from the working directory
// instead of the embedded copy, so a restart picks up edits without a
// rebuild.
func getAssetsFS() fs.FS {
	return os.DirFS(".")
}
