package federation

import (
	"context"
	"fmt"
	"regexp"

	"github.com/charmbracelet/log"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
)

var mfaTokenPattern = regexp.MustCompile(`^[0-9]{6}$`)

// LoginPrompter collects the federated account's secrets interactively.
// The password must never be echoed; an empty token selects the push
// approval path.
type LoginPrompter interface {
	FederatedPassword(username string) (string, error)
	OptionalMfaToken() (string, error)
}

// Resolver is the all-or-nothing federated strategy.
type Resolver struct {
	idp      *IdpClient
	svc      credentialexchange.AuthSamlApi
	prompter LoginPrompter
	logger   *log.Logger
}

func NewResolver(idp *IdpClient, svc credentialexchange.AuthSamlApi, prompter LoginPrompter, logger *log.Logger) *Resolver {
	return &Resolver{idp: idp, svc: svc, prompter: prompter, logger: logger}
}

// Resolve walks the full state machine: password submission, MFA challenge
// or push approval, entry point fetch, assertion scrape and the federated
// assume call. Any error is terminal for the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, conf credentialexchange.CredentialConfig) (*credentialexchange.AWSCredentials, error) {
	sess := &Session{Username: conf.Account.FederatedUser}

	password, err := r.prompter.FederatedPassword(sess.Username)
	if err != nil {
		return nil, err
	}
	token, err := r.prompter.OptionalMfaToken()
	if err != nil {
		return nil, err
	}

	if token == "" {
		r.logger.Debug("no token entered, waiting for push approval", "user", sess.Username)
		if err := r.idp.AwaitPushApproval(ctx, sess, password); err != nil {
			return nil, err
		}
	} else {
		if !mfaTokenPattern.MatchString(token) {
			return nil, fmt.Errorf("token %q is not a 6 digit code, %w", token, ErrAuthFailure)
		}
		if err := r.idp.StartChallenge(ctx, sess, password); err != nil {
			return nil, err
		}
		if err := r.idp.AnswerChallenge(ctx, sess, token); err != nil {
			return nil, err
		}
	}

	page, err := r.idp.EntrypointPage(ctx)
	if err != nil {
		return nil, err
	}

	assertion, err := AssertionFromPage(page)
	if err != nil {
		return nil, err
	}

	role := credentialexchange.AWSRole{
		RoleARN:      credentialexchange.RoleArn(conf.Account.AccountID, conf.Account.Role),
		PrincipalARN: credentialexchange.SamlProviderArn(conf.Account.AccountID),
		Duration:     conf.Account.Duration,
	}
	return credentialexchange.LoginStsSaml(ctx, assertion, role, r.svc)
}
