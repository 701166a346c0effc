// Command sitebundle runs the file-set transforms offline on saved
// generator output: flatten it, combine it into one preview page, or package
// it as a ZIP archive.
package main

import (
	"os"

	"github.com/nexabuild/go-services/pkg/logger"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "sitebundle",
	Short:         "Flatten, combine and package generated sites",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(flattenCmd, combineCmd, packageCmd)
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	if err := rootCmd.Execute(); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}
