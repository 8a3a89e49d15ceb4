package credentialexchange_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/charmbracelet/log"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
)

type mockPrompter struct {
	token   string
	err     error
	invoked int
}

func (m *mockPrompter) MfaToken() (string, error) {
	m.invoked++
	return m.token, m.err
}

func testAccountConf(skipNonMfa bool) credentialexchange.CredentialConfig {
	return credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{Alias: "dev"},
		Account: credentialexchange.AccountConfig{
			AccountID:  "111122223333",
			Role:       "some-role",
			Type:       credentialexchange.AccountTypeDirect,
			Duration:   900,
			SkipNonMfa: skipNonMfa,
		},
	}
}

func callerIdentity(m *mockStsApi) {
	m.getCallId = func(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
		return &sts.GetCallerIdentityOutput{Arn: aws.String("arn:aws:iam::999988887777:user/jdoe")}, nil
	}
}

func Test_DirectAssumer_attempts_non_mfa_exchange_before_prompting(t *testing.T) {
	m := &mockStsApi{}
	callerIdentity(m)
	m.assumeRole = func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
		if params.SerialNumber != nil {
			t.Errorf("first exchange must not carry an MFA serial, got %s", *params.SerialNumber)
		}
		return &sts.AssumeRoleOutput{Credentials: mockSuccessAwsCreds}, nil
	}
	prompter := &mockPrompter{token: "123456"}

	got, err := credentialexchange.NewDirectAssumer(m, prompter, log.New(io.Discard)).Resolve(context.TODO(), testAccountConf(false))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if got == nil || got.AWSAccessKey != *mockSuccessAwsCreds.AccessKeyId {
		t.Errorf("expected %v, got %v", mockSuccessAwsCreds, got)
	}
	if prompter.invoked != 0 {
		t.Errorf("prompter invoked %d times on a successful non-MFA exchange", prompter.invoked)
	}
}

func Test_DirectAssumer_falls_through_to_mfa_on_access_denied(t *testing.T) {
	m := &mockStsApi{}
	callerIdentity(m)
	calls := 0
	m.assumeRole = func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
		calls++
		if params.SerialNumber == nil {
			return nil, &smithyErrTyp{code: "AccessDenied"}
		}
		if aws.ToString(params.SerialNumber) != "arn:aws:iam::988117679554:mfa/jdoe" {
			t.Errorf("got serial: %s", aws.ToString(params.SerialNumber))
		}
		if aws.ToString(params.TokenCode) != "123456" {
			t.Errorf("got token: %s", aws.ToString(params.TokenCode))
		}
		return &sts.AssumeRoleOutput{Credentials: mockSuccessAwsCreds}, nil
	}
	prompter := &mockPrompter{token: "123456"}

	got, err := credentialexchange.NewDirectAssumer(m, prompter, log.New(io.Discard)).Resolve(context.TODO(), testAccountConf(false))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if got == nil {
		t.Fatal("expected credentials from the MFA retry")
	}
	if calls != 2 {
		t.Errorf("expected 2 exchange calls, got %d", calls)
	}
	if prompter.invoked != 1 {
		t.Errorf("expected 1 prompt, got %d", prompter.invoked)
	}
}

func Test_DirectAssumer_skips_non_mfa_when_configured(t *testing.T) {
	m := &mockStsApi{}
	callerIdentity(m)
	calls := 0
	m.assumeRole = func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
		calls++
		if params.SerialNumber == nil {
			t.Error("non-MFA exchange attempted despite skip_non_mfa")
		}
		return &sts.AssumeRoleOutput{Credentials: mockSuccessAwsCreds}, nil
	}

	_, err := credentialexchange.NewDirectAssumer(m, &mockPrompter{token: "654321"}, log.New(io.Discard)).Resolve(context.TODO(), testAccountConf(true))
	if err != nil {
		t.Fatalf("got %s, wanted <nil>", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 exchange call, got %d", calls)
	}
}

func Test_DirectAssumer_rejects_malformed_tokens(t *testing.T) {
	ttests := map[string]struct {
		token string
	}{
		"token with a letter": {token: "12a456"},
		"empty token":         {token: ""},
		"too short":           {token: "12345"},
		"too long":            {token: "1234567"},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			m := &mockStsApi{}
			callerIdentity(m)
			m.assumeRole = func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
				if params.SerialNumber != nil {
					t.Error("malformed token must never reach the provider call")
				}
				return nil, &smithyErrTyp{code: "AccessDenied"}
			}

			_, err := credentialexchange.NewDirectAssumer(m, &mockPrompter{token: tt.token}, log.New(io.Discard)).Resolve(context.TODO(), testAccountConf(false))
			if !errors.Is(err, credentialexchange.ErrInvalidMfaToken) {
				t.Errorf("got %v, wanted %s", err, credentialexchange.ErrInvalidMfaToken)
			}
		})
	}
}

func Test_DirectAssumer_exhausts_softly_on_mfa_exchange_error(t *testing.T) {
	m := &mockStsApi{}
	callerIdentity(m)
	m.assumeRole = func(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
		return nil, &smithyErrTyp{code: "AccessDenied"}
	}

	got, err := credentialexchange.NewDirectAssumer(m, &mockPrompter{token: "123456"}, log.New(io.Discard)).Resolve(context.TODO(), testAccountConf(false))
	if err != nil {
		t.Fatalf("got %s, wanted <nil> - strategy exhaustion is not an error here", err)
	}
	if got != nil {
		t.Errorf("expected absent credential, got %v", got)
	}
}
