package cmd

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Jackevansevo/jeddit/internal/build"
)

// Assets is set by main() before Execute() is called. It holds the
// templates/ and static/ trees, embedded in release builds.
var Assets fs.FS

var rootCmd = &cobra.Command{
	Use:     "jeddit",
	Short:   "A fast, minimal Reddit web frontend",
	Long:    "jeddit is a self-hosted, server-rendered Reddit frontend.\nBrowse anonymously or log in with your Reddit account via OAuth2.",
	Version: build.String(),
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(frontCmd)
	rootCmd.AddCommand(newUpdateCmd())
}
