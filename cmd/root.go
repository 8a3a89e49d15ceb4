package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgSectionName string
	accountsFile   string
	storeInProfile bool
	verbose        bool
	logger         *log.Logger
	rootCmd        = &cobra.Command{
		Use:   credentialexchange.SELF_NAME,
		Short: "CLI tool for resolving AWS temporary credentials per account/role",
		Long: `CLI tool for resolving AWS temporary credentials for a named account/role pair.
Walks a layered fallback chain - OS secret store cache, non-interactive assume,
interactive MFA or federated SAML login - validating every candidate against STS
before anything is cached or emitted. Successful resolutions print export
assignments for consumption by a parent shell.`,
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&accountsFile, "accounts-file", "c", "", "Path to the accounts ini file, defaults to the per-user config dir")
	rootCmd.PersistentFlags().StringVarP(&cfgSectionName, "cfg-section", "", "", "profile section name in the AWS shared credentials file")
	rootCmd.PersistentFlags().BoolVarP(&storeInProfile, "store-profile", "s", false, "By default the credentials are returned to stdout as export assignments. Set this flag to instead store them under a named profile section")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

func initConfig() {
	viper.SetEnvPrefix(credentialexchange.SELF_NAME)
	viper.AutomaticEnv()

	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if accountsFile == "" {
		accountsFile = viper.GetString("accounts_file")
	}
}
