package credentialexchange

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/charmbracelet/log"
)

type AuthIdentityApi interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// StsClientFromCreds builds an STS client scoped to the candidate's own
// static keys, so the probe exercises the candidate and not the ambient
// identity.
type StsClientFromCreds func(ctx context.Context, cred *AWSCredentials) (AuthIdentityApi, error)

// NewStsClientFromCreds is the default StsClientFromCreds implementation.
func NewStsClientFromCreds(ctx context.Context, cred *AWSCredentials) (AuthIdentityApi, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cred.AWSAccessKey, cred.AWSSecretKey, cred.AWSSessionToken)))
	if err != nil {
		return nil, err
	}
	return sts.NewFromConfig(cfg), nil
}

// IsValid is the sole gate for trusting a credential, whether freshly
// cached, freshly issued, or freshly federated. Absent or incomplete sets
// fail immediately; otherwise a side effect free GetCallerIdentity probe
// decides. Errors of any kind classify the candidate as unusable, they are
// never propagated.
func IsValid(ctx context.Context, cred *AWSCredentials, clientFn StsClientFromCreds, logger *log.Logger) bool {
	if !cred.IsComplete() {
		return false
	}

	svc, err := clientFn(ctx, cred)
	if err != nil {
		logger.Debug("failed to build sts client for probe", "err", err)
		return false
	}

	if _, err := svc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		logger.Debug("credential rejected by identity probe", "err", err)
		return false
	}

	return true
}
