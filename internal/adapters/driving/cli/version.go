package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the rememex version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("rememex version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
