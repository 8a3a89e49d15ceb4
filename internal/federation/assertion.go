package federation

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

var ErrNoAssertion = errors.New("failed getting assertion")

// AssertionFromPage scrapes the SAML assertion out of the embedded form
// field on the provider entry point page.
func AssertionFromPage(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("%s, %w", err, ErrNoAssertion)
	}

	assertion, exists := doc.Find(fmt.Sprintf("input[name=%s]", assertionField)).Attr("value")
	if !exists || assertion == "" {
		return "", ErrNoAssertion
	}
	return assertion, nil
}
