package federation_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/charmbracelet/log"
	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	"github.com/dnitsch/aws-role-creds/internal/federation"
)

type mockSamlApi struct {
	assumeRoleWSaml func(ctx context.Context, params *sts.AssumeRoleWithSAMLInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithSAMLOutput, error)
}

func (m *mockSamlApi) AssumeRoleWithSAML(ctx context.Context, params *sts.AssumeRoleWithSAMLInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithSAMLOutput, error) {
	return m.assumeRoleWSaml(ctx, params, optFns...)
}

type mockLoginPrompter struct {
	password string
	token    string
}

func (m *mockLoginPrompter) FederatedPassword(username string) (string, error) {
	return m.password, nil
}

func (m *mockLoginPrompter) OptionalMfaToken() (string, error) {
	return m.token, nil
}

func fedConf() credentialexchange.CredentialConfig {
	return credentialexchange.CredentialConfig{
		BaseConfig: credentialexchange.BaseConfig{Alias: "prod"},
		Account: credentialexchange.AccountConfig{
			AccountID:     "111122223333",
			Role:          "fed-role",
			Type:          credentialexchange.AccountTypeFederated,
			Duration:      900,
			FederatedUser: "svc-jdoe",
		},
	}
}

func successSamlApi(t *testing.T) *mockSamlApi {
	return &mockSamlApi{
		assumeRoleWSaml: func(ctx context.Context, params *sts.AssumeRoleWithSAMLInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleWithSAMLOutput, error) {
			if aws.ToString(params.PrincipalArn) != "arn:aws:iam::111122223333:saml-provider/aws-role-creds" {
				t.Errorf("got principal: %s", aws.ToString(params.PrincipalArn))
			}
			if aws.ToString(params.SAMLAssertion) != "PHNhbWxwOlJlc3BvbnNlPg==" {
				t.Errorf("got assertion: %s", aws.ToString(params.SAMLAssertion))
			}
			return &sts.AssumeRoleWithSAMLOutput{
				Credentials: &types.Credentials{
					AccessKeyId:     aws.String("AKIA123"),
					SecretAccessKey: aws.String("secret456"),
					SessionToken:    aws.String("token-abcd"),
				},
			}, nil
		},
	}
}

func idpMux(t *testing.T, challengeStatus int) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/challenge", func(w http.ResponseWriter, r *http.Request) {
		if challengeStatus != http.StatusOK {
			w.WriteHeader(challengeStatus)
			return
		}
		body := map[string]any{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["answer"] == "123456" {
			json.NewEncoder(w).Encode(map[string]any{"token": "tok-1"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"challengeId": "ch-1"})
	})
	mux.HandleFunc("/push", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-push"})
	})
	mux.HandleFunc("/entrypoint", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><form action="https://signin.aws.amazon.com/saml">
			<input type="hidden" name="SAMLResponse" value="PHNhbWxwOlJlc3BvbnNlPg=="/>
			</form></body></html>`))
	})
	return mux
}

func Test_FederatedResolve_with(t *testing.T) {
	ttests := map[string]struct {
		challengeStatus int
		token           string
		expectErr       bool
		errTyp          error
	}{
		"mfa challenge path succeeds":      {challengeStatus: http.StatusOK, token: "123456"},
		"push approval path succeeds":      {challengeStatus: http.StatusOK, token: ""},
		"challenge endpoint 403 is fatal":  {challengeStatus: http.StatusForbidden, token: "123456", expectErr: true, errTyp: federation.ErrAuthFailure},
		"malformed token is an auth error": {challengeStatus: http.StatusOK, token: "12a456", expectErr: true, errTyp: federation.ErrAuthFailure},
		"short token is an auth error":     {challengeStatus: http.StatusOK, token: "123", expectErr: true, errTyp: federation.ErrAuthFailure},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			idp, _ := newTestIdp(t, idpMux(t, tt.challengeStatus))
			resolver := federation.NewResolver(idp, successSamlApi(t), &mockLoginPrompter{password: "hunter2", token: tt.token}, log.New(io.Discard))

			got, err := resolver.Resolve(context.TODO(), fedConf())

			if tt.expectErr {
				if !errors.Is(err, tt.errTyp) {
					t.Errorf("got %v, wanted %s", err, tt.errTyp)
				}
				return
			}
			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if got.AWSAccessKey != "AKIA123" {
				t.Errorf("got %v", got)
			}
		})
	}
}

func Test_FederatedResolve_missing_assertion_is_fatal(t *testing.T) {
	mux := idpMux(t, http.StatusOK)
	mux2 := http.NewServeMux()
	mux2.HandleFunc("/challenge", mux.ServeHTTP)
	mux2.HandleFunc("/push", mux.ServeHTTP)
	mux2.HandleFunc("/entrypoint", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no form here</body></html>`))
	})
	idp, _ := newTestIdp(t, mux2)
	resolver := federation.NewResolver(idp, successSamlApi(t), &mockLoginPrompter{password: "hunter2", token: "123456"}, log.New(io.Discard))

	_, err := resolver.Resolve(context.TODO(), fedConf())
	if !errors.Is(err, federation.ErrNoAssertion) {
		t.Errorf("got %v, wanted %s", err, federation.ErrNoAssertion)
	}
}

func Test_FederatedResolve_malformed_token_makes_no_idp_call(t *testing.T) {
	requests := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})
	idp, _ := newTestIdp(t, mux)
	resolver := federation.NewResolver(idp, successSamlApi(t), &mockLoginPrompter{password: "hunter2", token: "12a456"}, log.New(io.Discard))

	if _, err := resolver.Resolve(context.TODO(), fedConf()); !errors.Is(err, federation.ErrAuthFailure) {
		t.Errorf("got %v, wanted %s", err, federation.ErrAuthFailure)
	}
	if requests != 0 {
		t.Errorf("malformed token must fail before any provider call, got %d requests", requests)
	}
}
