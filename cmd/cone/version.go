package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cone387/cone"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of cone",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cone version %s\n", strings.TrimSpace(cone.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
