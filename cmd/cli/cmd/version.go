package cmd

import (
	"github.com/spf13/cobra"

	"github.com/opsbook/opsbook/internal/client/output"
	"github.com/opsbook/opsbook/internal/constants"
	"github.com/opsbook/opsbook/internal/session"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the CLI",
	Run: func(cmd *cobra.Command, _ []string) {
		output.KeyValue("CLI version", *constants.GetVersion())

		cfg, err := getConfigFromContext(cmd)
		if err != nil {
			return
		}
		output.KeyValue("API endpoint", cfg.APIEndpoint)

		loggedIn := "no"
		if sess := session.FromContext(cmd.Context()); sess != nil && sess.Authenticated() {
			loggedIn = "yes"
		}
		output.KeyValue("Logged in", loggedIn)
	},
}

func init() {
	markPublic(versionCmd)
	rootCmd.AddCommand(versionCmd)
}
