package credentialexchange

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"
)

var (
	ErrInvalidMfaToken = errors.New("mfa token must be exactly 6 digits")

	mfaTokenPattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// TokenPrompter supplies the interactively entered MFA token.
type TokenPrompter interface {
	MfaToken() (string, error)
}

// DirectAssumer resolves credentials for accounts of type direct: a role
// exchange against the caller's own identity, first without MFA, then with
// an interactively supplied token.
type DirectAssumer struct {
	svc      AuthAssumeApi
	prompter TokenPrompter
	logger   *log.Logger
}

func NewDirectAssumer(svc AuthAssumeApi, prompter TokenPrompter, logger *log.Logger) *DirectAssumer {
	return &DirectAssumer{svc: svc, prompter: prompter, logger: logger}
}

// Resolve walks the non-MFA then MFA exchange steps. Access denied and
// transport failures on the non-MFA attempt are soft and advance to the MFA
// step; a malformed token entry is the one hard failure here. A nil, nil
// return means the strategy is exhausted - validation and caching are the
// orchestrator's job.
func (d *DirectAssumer) Resolve(ctx context.Context, conf CredentialConfig) (*AWSCredentials, error) {
	principal, err := CallerPrincipal(ctx, d.svc)
	if err != nil {
		return nil, err
	}

	mfaAccount := conf.Account.MfaAccountID
	if mfaAccount == "" {
		mfaAccount = DEFAULT_MFA_ACCOUNT
	}

	role := AWSRole{
		RoleARN:  RoleArn(conf.Account.AccountID, conf.Account.Role),
		Name:     SessionName(principal),
		Duration: conf.Account.Duration,
	}

	if !conf.Account.SkipNonMfa {
		creds, err := AssumeRoleInConfig(ctx, d.svc, role, "", "")
		if err == nil {
			return creds, nil
		}
		if IsAccessDenied(err) {
			d.logger.Debug("access denied without MFA, falling through", "role", role.RoleARN)
		} else {
			d.logger.Debug("non-MFA exchange failed, falling through", "role", role.RoleARN, "err", err)
		}
	}

	token, err := d.prompter.MfaToken()
	if err != nil {
		return nil, err
	}
	if !mfaTokenPattern.MatchString(token) {
		return nil, fmt.Errorf("%q: %w", token, ErrInvalidMfaToken)
	}

	creds, err := AssumeRoleInConfig(ctx, d.svc, role, MfaDeviceArn(mfaAccount, principal), token)
	if err != nil {
		d.logger.Debug("MFA exchange failed", "role", role.RoleARN, "err", err)
		return nil, nil
	}
	return creds, nil
}
