package cmd

import (
	"github.com/dnitsch/aws-role-creds/internal/webconsole"
	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console <account-alias>",
	Short: "Open the AWS web console for a configured account alias",
	Long:  `Resolve credentials for the alias and open the federated AWS web console in the default browser.`,
	Args:  cobra.ExactArgs(1),
	RunE:  openConsole,
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func openConsole(cmd *cobra.Command, args []string) error {
	creds, conf, err := resolveForAlias(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return webconsole.New().Open(cmd.Context(), creds, conf.Account.Duration)
}
