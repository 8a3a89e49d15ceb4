package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/dnitsch/aws-role-creds/internal/cmdutils"
	"github.com/dnitsch/aws-role-creds/internal/config"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	"github.com/dnitsch/aws-role-creds/internal/federation"
	"github.com/dnitsch/aws-role-creds/internal/prompt"
	"github.com/spf13/cobra"
)

var ErrUnableToCreateSession = errors.New("sts - cannot create a client")

var getCmd = &cobra.Command{
	Use:   "get <account-alias>",
	Short: "Resolve AWS credentials for a configured account alias",
	Long: `Resolve AWS credentials for a configured account alias and print them
as export assignments to stdout. Reuses a still valid cached credential where
possible, otherwise runs the assume or federated login flow for the account type.`,
	Args: cobra.ExactArgs(1),
	RunE: getCreds,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func getCreds(cmd *cobra.Command, args []string) error {
	creds, conf, err := resolveForAlias(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return credentialexchange.SetCredentials(creds, conf)
}

// resolveForAlias wires the engine together for one resolution run. Shared
// by get and console.
func resolveForAlias(ctx context.Context, alias string) (*credentialexchange.AWSCredentials, credentialexchange.CredentialConfig, error) {
	conf := credentialexchange.CredentialConfig{}

	loader, err := config.Load(config.AccountsFile(accountsFile))
	if err != nil {
		return nil, conf, err
	}
	conf, err = loader.Account(alias)
	if err != nil {
		return nil, conf, err
	}
	conf.BaseConfig.StoreInProfile = storeInProfile
	conf.BaseConfig.CfgSectionName = cfgSectionName

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, conf, fmt.Errorf("%s, %w", err, ErrUnableToCreateSession)
	}
	svc := sts.NewFromConfig(awsCfg)

	currentUser, err := user.Current()
	if err != nil {
		return nil, conf, err
	}
	store, err := credentialexchange.NewSecretStore(conf.CacheKey(), os.TempDir(), currentUser.Username, logger)
	if err != nil {
		return nil, conf, err
	}

	terminal := prompt.New()
	idp, err := federation.NewIdpClient(conf.ChallengeUrl, conf.PushUrl, conf.EntrypointUrl, logger)
	if err != nil {
		return nil, conf, err
	}

	resolver := cmdutils.New(
		store,
		credentialexchange.NewDirectAssumer(svc, terminal, logger),
		federation.NewResolver(idp, svc, terminal, logger),
		credentialexchange.NewStsClientFromCreds,
		logger,
	)

	creds, err := resolver.ResolveCreds(ctx, conf)
	return creds, conf, err
}
