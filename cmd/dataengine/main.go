// Command dataengine runs the dynamic data access engine's HTTP and
// bus-consumer collaborators against a configured store cluster.
package main

import (
	"fmt"
	"os"

	"github.com/platformdata/dynengine/cmd/dataengine/internal"
)

func main() {
	rootCmd := internal.NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
