// config loads the per-user account configuration file and hands the engine
// a fully resolved, typed CredentialConfig.
package config

import (
	"errors"
	"fmt"
	"path"

	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	ini "gopkg.in/ini.v1"
)

var (
	ErrUnparsableConfig = errors.New("unparsable account config")
	ErrUnknownAccount   = errors.New("account alias not configured")
	ErrInvalidAccount   = errors.New("invalid account config")
)

const (
	accountsFileName = "accounts.ini"
	idpSection       = "idp"

	defaultChallengeUrl  = "https://login.idp.example.com/api/v1/authn"
	defaultPushUrl       = "https://login.idp.example.com/api/v1/push"
	defaultEntrypointUrl = "https://login.idp.example.com/app/aws/sso/saml"
)

// Loader reads the accounts ini file once; every Account call resolves
// against that single parse.
type Loader struct {
	cfg *ini.File
}

// AccountsFile is the default location of the accounts file.
func AccountsFile(basePath string) string {
	if basePath == "" {
		basePath = path.Join(credentialexchange.HomeDir(), fmt.Sprintf(".%s", credentialexchange.SELF_NAME))
	}
	return path.Join(basePath, accountsFileName)
}

func Load(file string) (*Loader, error) {
	cfg, err := ini.Load(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %s, %w", file, err, ErrUnparsableConfig)
	}
	return &Loader{cfg: cfg}, nil
}

// Account assembles the CredentialConfig for one alias. Field precedence is
// resolved here, the engine never re-reads configuration.
func (l *Loader) Account(alias string) (credentialexchange.CredentialConfig, error) {
	conf := credentialexchange.CredentialConfig{}
	if !l.cfg.HasSection(alias) {
		return conf, fmt.Errorf("%s, %w", alias, ErrUnknownAccount)
	}
	section := l.cfg.Section(alias)

	duration, err := section.Key("duration_seconds").Int()
	if err != nil || duration <= 0 {
		return conf, fmt.Errorf("%s: duration_seconds must be a positive integer, %w", alias, ErrInvalidAccount)
	}

	accountType := credentialexchange.AccountType(section.Key("type").String())
	switch accountType {
	case credentialexchange.AccountTypeDirect, credentialexchange.AccountTypeFederated:
	default:
		return conf, fmt.Errorf("%s: type %q, %w", alias, accountType, ErrInvalidAccount)
	}

	account := credentialexchange.AccountConfig{
		AccountID:     section.Key("account_id").String(),
		Role:          section.Key("role").String(),
		Type:          accountType,
		Duration:      duration,
		FederatedUser: section.Key("federated_user").String(),
		SkipNonMfa:    section.Key("skip_non_mfa").MustBool(false),
		MfaAccountID:  section.Key("mfa_account_id").String(),
	}
	if account.AccountID == "" || account.Role == "" {
		return conf, fmt.Errorf("%s: account_id and role are required, %w", alias, ErrInvalidAccount)
	}

	conf.Account = account
	conf.BaseConfig = credentialexchange.BaseConfig{Alias: alias}
	conf.ChallengeUrl = l.idpKey("challenge_url", defaultChallengeUrl)
	conf.PushUrl = l.idpKey("push_url", defaultPushUrl)
	conf.EntrypointUrl = l.idpKey("entrypoint_url", defaultEntrypointUrl)
	return conf, nil
}

func (l *Loader) idpKey(name, fallback string) string {
	if v := l.cfg.Section(idpSection).Key(name).String(); v != "" {
		return v
	}
	return fallback
}
