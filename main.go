package main

import "github.com/Jackevansevo/jeddit/cmd"

func main() {
	cmd.Assets = getAssetsFS()
	cmd.Execute()
}
