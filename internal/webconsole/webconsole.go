// webconsole turns a resolved credential into a federated sign-in URL and
// opens it in the default browser. Thin glue over the engine.
package webconsole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dnitsch/aws-role-creds/internal/credentialexchange"
	"github.com/pkg/browser"
)

const (
	federationUrl = "https://signin.aws.amazon.com/federation"
	consoleUrl    = "https://console.aws.amazon.com/"
)

var ErrSigninToken = errors.New("unable to obtain signin token")

type httpApi interface {
	Do(req *http.Request) (*http.Response, error)
}

type Console struct {
	client httpApi
}

func New() *Console {
	return &Console{client: &http.Client{Timeout: 15 * time.Second}}
}

func (c *Console) WithClient(client httpApi) *Console {
	c.client = client
	return c
}

// SigninUrl exchanges the credential for a federation signin token and
// builds the console login URL.
func (c *Console) SigninUrl(ctx context.Context, creds *credentialexchange.AWSCredentials, duration int) (string, error) {
	sessionJson, err := json.Marshal(map[string]string{
		"sessionId":    creds.AWSAccessKey,
		"sessionKey":   creds.AWSSecretKey,
		"sessionToken": creds.AWSSessionToken,
	})
	if err != nil {
		return "", err
	}

	tokenUrl := fmt.Sprintf("%s?Action=getSigninToken&SessionDuration=%d&Session=%s",
		federationUrl, duration, url.QueryEscape(string(sessionJson)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenUrl, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrSigninToken)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("federation endpoint returned status %d, %w", resp.StatusCode, ErrSigninToken)
	}

	tokenResp := struct {
		SigninToken string `json:"SigninToken"`
	}{}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrSigninToken)
	}
	if tokenResp.SigninToken == "" {
		return "", fmt.Errorf("empty signin token, %w", ErrSigninToken)
	}

	return fmt.Sprintf("%s?Action=login&Issuer=%s&Destination=%s&SigninToken=%s",
		federationUrl, credentialexchange.SELF_NAME, url.QueryEscape(consoleUrl), url.QueryEscape(tokenResp.SigninToken)), nil
}

// Open launches the default browser on the signin URL.
func (c *Console) Open(ctx context.Context, creds *credentialexchange.AWSCredentials, duration int) error {
	signin, err := c.SigninUrl(ctx, creds, duration)
	if err != nil {
		return err
	}
	return browser.OpenURL(signin)
}
