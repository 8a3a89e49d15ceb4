package cmdutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
)

var (
	ErrMissingArg      = errors.New("missing arg")
	ErrUnknownType     = errors.New("unknown account type")
	ErrUnableToResolve = errors.New("could not retrieve any credential")
)

type SecretStorageImpl interface {
	CachedCredential() *credentialexchange.AWSCredentials
	SaveCredential(cred *credentialexchange.AWSCredentials) error
	Clear() error
	ClearAll() error
}

// StrategyResolver produces a candidate credential for one account type.
// Candidates are never trusted as returned - the orchestrator validates
// every one of them.
type StrategyResolver interface {
	Resolve(ctx context.Context, conf credentialexchange.CredentialConfig) (*credentialexchange.AWSCredentials, error)
}

// Resolver owns the resolution lifecycle: cache fast path, strategy
// dispatch, the validation gate after every candidate and the sole cache
// write on success.
type Resolver struct {
	store     SecretStorageImpl
	direct    StrategyResolver
	federated StrategyResolver
	probeFn   credentialexchange.StsClientFromCreds
	logger    *log.Logger
}

func New(store SecretStorageImpl, direct, federated StrategyResolver, probeFn credentialexchange.StsClientFromCreds, logger *log.Logger) *Resolver {
	return &Resolver{
		store:     store,
		direct:    direct,
		federated: federated,
		probeFn:   probeFn,
		logger:    logger,
	}
}

// ResolveCreds is the entry point consumed by the CLI layer.
func (r *Resolver) ResolveCreds(ctx context.Context, conf credentialexchange.CredentialConfig) (*credentialexchange.AWSCredentials, error) {
	if conf.Account.Type == credentialexchange.AccountTypeFederated && conf.Account.FederatedUser == "" {
		return nil, fmt.Errorf("federated account %s requires federated_user, %w", conf.BaseConfig.Alias, ErrMissingArg)
	}

	if cached := r.store.CachedCredential(); cached != nil {
		if credentialexchange.IsValid(ctx, cached, r.probeFn, r.logger) {
			r.logger.Debug("reusing cached credential", "key", conf.CacheKey())
			return cached, nil
		}
		r.logger.Debug("cached credential no longer valid", "key", conf.CacheKey())
	}

	var (
		creds *credentialexchange.AWSCredentials
		err   error
	)
	switch conf.Account.Type {
	case credentialexchange.AccountTypeDirect:
		creds, err = r.direct.Resolve(ctx, conf)
	case credentialexchange.AccountTypeFederated:
		creds, err = r.federated.Resolve(ctx, conf)
	default:
		return nil, fmt.Errorf("%q, %w", conf.Account.Type, ErrUnknownType)
	}
	if err != nil {
		return nil, err
	}

	if !credentialexchange.IsValid(ctx, creds, r.probeFn, r.logger) {
		return nil, fmt.Errorf("%s, %w", conf.BaseConfig.Alias, ErrUnableToResolve)
	}

	if err := r.store.SaveCredential(creds); err != nil {
		return nil, err
	}
	return creds, nil
}
