package federation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/charmbracelet/log"
)

var (
	ErrAuthFailure  = errors.New("authentication error")
	ErrPushTimeout  = errors.New("timed out waiting for push approval")
	ErrIdpTransport = errors.New("idp unreachable")
)

// IdpClient drives the identity provider's three endpoints - challenge
// initiation, push approval and the authenticated entry point - over one
// cookie carrying HTTP session.
type IdpClient struct {
	httpClient    *http.Client
	challengeUrl  string
	pushUrl       string
	entrypointUrl string
	pollInterval  time.Duration
	logger        *log.Logger
}

func NewIdpClient(challengeUrl, pushUrl, entrypointUrl string, logger *log.Logger) (*IdpClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &IdpClient{
		httpClient:    &http.Client{Jar: jar, Timeout: 30 * time.Second},
		challengeUrl:  challengeUrl,
		pushUrl:       pushUrl,
		entrypointUrl: entrypointUrl,
		pollInterval:  DefaultPollInterval,
		logger:        logger,
	}, nil
}

func (c *IdpClient) WithHTTPClient(client *http.Client) *IdpClient {
	c.httpClient = client
	return c
}

func (c *IdpClient) WithPollInterval(interval time.Duration) *IdpClient {
	c.pollInterval = interval
	return c
}

// StartChallenge submits identity and password to the challenge endpoint
// and stores the returned challenge payload on the session.
func (c *IdpClient) StartChallenge(ctx context.Context, sess *Session, password string) error {
	body, err := c.postJson(ctx, c.challengeUrl, credentialPayload(sess.Username, password))
	if err != nil {
		return err
	}
	sess.absorb(body)
	return nil
}

// AnswerChallenge injects the user entered token into the answer slot of
// the pending challenge payload and resubmits it to the same endpoint.
func (c *IdpClient) AnswerChallenge(ctx context.Context, sess *Session, token string) error {
	sess.Payload[answerField] = token
	body, err := c.postJson(ctx, c.challengeUrl, sess.Payload)
	if err != nil {
		return err
	}
	sess.absorb(body)
	if !sess.completed() {
		return fmt.Errorf("challenge response carries no completion token, %w", ErrAuthFailure)
	}
	return nil
}

// AwaitPushApproval submits identity and password to the push endpoint and,
// until a completion token appears, replays the previous response body as
// the next request at a fixed interval. Exceeding the attempt bound is a
// timeout; any non-success status is an immediate authentication error.
func (c *IdpClient) AwaitPushApproval(ctx context.Context, sess *Session, password string) error {
	payload := credentialPayload(sess.Username, password)
	state := &PollState{MaxAttempts: MaxPollAttempts, Interval: c.pollInterval}

	for {
		body, err := c.postJson(ctx, c.pushUrl, payload)
		if err != nil {
			return err
		}
		state.Attempt++
		sess.absorb(body)
		if sess.completed() {
			return nil
		}
		if state.exhausted() {
			return fmt.Errorf("no approval after %d attempts, %w", state.MaxAttempts, ErrPushTimeout)
		}
		c.logger.Debug("push approval pending", "attempt", state.Attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(state.Interval):
		}
		payload = sess.Payload
	}
}

// EntrypointPage fetches the provider entry point over the authenticated
// session and returns the raw page for assertion scraping.
func (c *IdpClient) EntrypointPage(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entrypointUrl, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrIdpTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("entry point returned status %d, %w", resp.StatusCode, ErrAuthFailure)
	}
	return io.ReadAll(resp.Body)
}

func credentialPayload(username, password string) map[string]any {
	return map[string]any{"username": username, "password": password}
}

func (c *IdpClient) postJson(ctx context.Context, url string, payload map[string]any) (map[string]any, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrIdpTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s returned status %d, %w", url, resp.StatusCode, ErrAuthFailure)
	}

	body := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("undecodable idp response: %s, %w", err, ErrAuthFailure)
	}
	return body, nil
}
