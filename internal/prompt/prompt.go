// prompt wraps the interactive terminal reads the strategies depend on.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNotATerminal = errors.New("stdin is not a terminal, cannot prompt for secrets")

type Terminal struct {
	in  *os.File
	err io.Writer
}

func New() *Terminal {
	return &Terminal{in: os.Stdin, err: os.Stderr}
}

// MfaToken prompts for the 6 digit token used by the direct assume retry.
// Pattern enforcement lives with the consumer.
func (t *Terminal) MfaToken() (string, error) {
	return t.readLine("MFA token: ")
}

// OptionalMfaToken prompts for a token in the federated flow, where an
// empty entry selects the push approval path.
func (t *Terminal) OptionalMfaToken() (string, error) {
	return t.readLine("MFA token (leave empty for push approval): ")
}

// FederatedPassword reads the federated account's password without echo.
func (t *Terminal) FederatedPassword(username string) (string, error) {
	fd := int(t.in.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotATerminal
	}
	fmt.Fprintf(t.err, "Password for %s: ", username)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(t.err)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (t *Terminal) readLine(label string) (string, error) {
	fmt.Fprint(t.err, label)
	line, err := bufio.NewReader(t.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
