package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "haiguitang",
	Short: "Relay and signalling server for turtle-soup rooms",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay server",
	Run: func(cmd *cobra.Command, args []string) {
		runApp()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
