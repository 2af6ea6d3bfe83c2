// Command h5tool inspects and builds HDF5 files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "h5tool",
		Short:         "Inspect and build HDF5 files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newInfoCmd(),
		newLsCmd(),
		newChunksCmd(),
		newDumpChunkCmd(),
		newCreateCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "h5tool:", err)
		os.Exit(1)
	}
}
