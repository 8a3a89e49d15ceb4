package federation_test

import (
	"errors"
	"testing"

	"github.com/dnitsch/aws-role-creds/internal/federation"
)

func Test_AssertionFromPage_with(t *testing.T) {
	ttests := map[string]struct {
		page      string
		expect    string
		expectErr bool
	}{
		"page with assertion field": {
			page: `<!DOCTYPE html><html><body>
				<form method="post" action="https://signin.aws.amazon.com/saml">
				<input type="hidden" name="SAMLResponse" value="PHNhbWxwOlJlc3BvbnNlPg=="/>
				<input type="hidden" name="RelayState" value=""/>
				</form></body></html>`,
			expect: "PHNhbWxwOlJlc3BvbnNlPg==",
		},
		"page without the field": {
			page:      `<!DOCTYPE html><html><body><div id="message">login ok</div></body></html>`,
			expectErr: true,
		},
		"field present but empty": {
			page:      `<html><body><input name="SAMLResponse" value=""/></body></html>`,
			expectErr: true,
		},
		"empty page": {
			page:      ``,
			expectErr: true,
		},
	}
	for name, tt := range ttests {
		t.Run(name, func(t *testing.T) {
			got, err := federation.AssertionFromPage([]byte(tt.page))
			if tt.expectErr {
				if !errors.Is(err, federation.ErrNoAssertion) {
					t.Errorf("got %v, wanted %s", err, federation.ErrNoAssertion)
				}
				return
			}
			if err != nil {
				t.Fatalf("got %s, wanted <nil>", err)
			}
			if got != tt.expect {
				t.Errorf("got %s, wanted %s", got, tt.expect)
			}
		})
	}
}
