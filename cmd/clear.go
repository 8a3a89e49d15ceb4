package cmd

import (
	"os"
	"os/user"

	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear-cache",
	Short: "Clears any stored credentials in the OS secret store",
	RunE:  clear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func clear(cmd *cobra.Command, args []string) error {
	currentUser, err := user.Current()
	if err != nil {
		return err
	}
	store, err := credentialexchange.NewSecretStore("", os.TempDir(), currentUser.Username, logger)
	if err != nil {
		return err
	}
	if err := store.ClearAll(); err != nil {
		return err
	}

	iniFile := credentialexchange.ConfigIniFile("")
	if _, err := os.Stat(iniFile); err == nil {
		return os.Remove(iniFile)
	}
	return nil
}
