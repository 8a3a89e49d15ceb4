package federation

import "time"

const (
	// push approval poll bounds - the only retry loop in the whole engine
	MaxPollAttempts     = 12
	DefaultPollInterval = 5 * time.Second

	// form field carrying the assertion on the entry point page
	assertionField = "SAMLResponse"
	// slot in the challenge payload the user entered token goes into
	answerField = "answer"
	// field signalling flow completion in challenge and push responses
	completionField = "token"
)

// Session is the ephemeral per-invocation state handed between the steps of
// the federated exchange. Payload is the last challenge or push response
// body, replayed verbatim where the protocol demands it. Discarded at
// process exit, never persisted.
type Session struct {
	Username string
	Payload  map[string]any
	Token    string
}

func (s *Session) completed() bool {
	return s.Token != ""
}

// absorb folds a response body into the session, lifting the completion
// token out when present.
func (s *Session) absorb(body map[string]any) {
	s.Payload = body
	if tok, ok := body[completionField].(string); ok {
		s.Token = tok
	}
}

// PollState tracks the bounded push approval loop.
type PollState struct {
	Attempt     int
	MaxAttempts int
	Interval    time.Duration
}

func (p *PollState) exhausted() bool {
	return p.Attempt >= p.MaxAttempts
}
