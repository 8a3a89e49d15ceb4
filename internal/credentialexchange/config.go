package credentialexchange

const (
	SELF_NAME        = "aws-role-creds"
	INI_CONF_SECTION = "account"
	// account that issues the virtual MFA devices used by the direct assume
	// flow. Overridable per account section - see internal/config.
	DEFAULT_MFA_ACCOUNT = "988117679554"
)

type AccountType string

const (
	AccountTypeDirect    AccountType = "direct"
	AccountTypeFederated AccountType = "federated"
)

// AccountConfig is the fully resolved, immutable configuration of a single
// account/role pair as produced by the config loader.
type AccountConfig struct {
	AccountID     string
	Role          string
	Type          AccountType
	Duration      int
	FederatedUser string
	SkipNonMfa    bool
	MfaAccountID  string
}

type BaseConfig struct {
	Alias          string
	CfgSectionName string
	StoreInProfile bool
}

// CredentialConfig carries everything a single resolution run needs,
// assembled and precedence-ordered by the caller before the engine sees it.
type CredentialConfig struct {
	BaseConfig    BaseConfig
	Account       AccountConfig
	ChallengeUrl  string
	PushUrl       string
	EntrypointUrl string
}

// CacheKey identifies one secret store slot per (alias, role) pair.
// Stable across process runs.
func (c CredentialConfig) CacheKey() string {
	return c.BaseConfig.Alias + "-" + RoleKeyConverter(c.Account.Role)
}
