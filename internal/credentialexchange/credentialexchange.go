package credentialexchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

var (
	ErrUnableAssume      = errors.New("unable to assume")
	ErrMissingIdentity   = errors.New("unable to establish caller identity")
	ErrAssertionRejected = errors.New("assertion does not allow assuming that role")
	ErrCredentialGap     = errors.New("provider returned an incomplete credential set")
)

// AWSCredentials is the three field temporary credential set. Validity is
// established exclusively through a live probe, no expiry is tracked.
type AWSCredentials struct {
	AWSAccessKey    string `json:"AccessKeyId"`
	AWSSecretKey    string `json:"SecretAccessKey"`
	AWSSessionToken string `json:"SessionToken"`
}

// IsComplete reports whether all three fields are populated. Anything less
// is treated as an absent credential throughout the chain.
func (c *AWSCredentials) IsComplete() bool {
	return c != nil && c.AWSAccessKey != "" && c.AWSSecretKey != "" && c.AWSSessionToken != ""
}

// AWSRole aws role attributes
type AWSRole struct {
	RoleARN      string
	PrincipalARN string
	Name         string
	Duration     int
}

type AuthSamlApi interface {
	AssumeRoleWithSAML(ctx context.Context, params *sts.AssumeRoleWithSAMLInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithSAMLOutput, error)
}

// LoginStsSaml exchanges a saml assertion for STS creds
func LoginStsSaml(ctx context.Context, samlResponse string, role AWSRole, svc AuthSamlApi) (*AWSCredentials, error) {
	params := &sts.AssumeRoleWithSAMLInput{
		PrincipalArn:    aws.String(role.PrincipalARN), // Required
		RoleArn:         aws.String(role.RoleARN),      // Required
		SAMLAssertion:   aws.String(samlResponse),      // Required
		DurationSeconds: aws.Int32(int32(role.Duration)),
	}

	resp, err := svc.AssumeRoleWithSAML(ctx, params)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidIdentityToken" {
			return nil, fmt.Errorf("%s, %w", role.RoleARN, ErrAssertionRejected)
		}
		return nil, fmt.Errorf("failed to retrieve STS credentials using SAML: %s, %w", err.Error(), ErrUnableAssume)
	}

	return credsFromStsOutput(resp.Credentials.AccessKeyId, resp.Credentials.SecretAccessKey, resp.Credentials.SessionToken)
}

type AuthAssumeApi interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AssumeRoleInConfig exchanges the caller's ambient identity for the target
// role creds. mfaSerial and token are both empty on the non-MFA attempt and
// both set on the MFA retry.
func AssumeRoleInConfig(ctx context.Context, svc AuthAssumeApi, role AWSRole, mfaSerial, token string) (*AWSCredentials, error) {
	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(role.RoleARN),
		RoleSessionName: aws.String(role.Name),
		DurationSeconds: aws.Int32(int32(role.Duration)),
	}
	if mfaSerial != "" {
		input.SerialNumber = aws.String(mfaSerial)
		input.TokenCode = aws.String(token)
	}

	resp, err := svc.AssumeRole(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve STS credentials for %s: %s, %w", role.RoleARN, err.Error(), ErrUnableAssume)
	}

	return credsFromStsOutput(resp.Credentials.AccessKeyId, resp.Credentials.SecretAccessKey, resp.Credentials.SessionToken)
}

// CallerPrincipal derives the short principal name of the current caller,
// i.e. the final path element of the GetCallerIdentity ARN.
func CallerPrincipal(ctx context.Context, svc AuthAssumeApi) (string, error) {
	resp, err := svc.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrMissingIdentity)
	}
	return principalFromArn(aws.ToString(resp.Arn)), nil
}

// IsAccessDenied classifies soft authorization failures on the non-MFA
// assume attempt.
func IsAccessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "AccessDenied" || apiErr.ErrorCode() == "AccessDeniedException"
	}
	return false
}

func credsFromStsOutput(accessKey, secretKey, sessionToken *string) (*AWSCredentials, error) {
	creds := &AWSCredentials{
		AWSAccessKey:    aws.ToString(accessKey),
		AWSSecretKey:    aws.ToString(secretKey),
		AWSSessionToken: aws.ToString(sessionToken),
	}
	if !creds.IsComplete() {
		return nil, ErrCredentialGap
	}
	return creds, nil
}
