//go:build !dev

package main

import (
	"embed"
	"io/fs"
)

//go:embed templates static
var embeddedAssets embed.FS

func getAssetsFS() fs.FS {
	return embeddedAssets
}
