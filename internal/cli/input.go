package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam.
var readPassword = term.ReadPassword

// GetSimpleText prints prompt and reads one trimmed line. A final line
// without a newline is returned as-is.
func GetSimpleText(reader *bufio.Reader, prompt string, out io.Writer) (string, error) {
	fmt.Fprintln(out, prompt)
	text, err := reader.ReadString('\n')
	if err != nil && !(err == io.EOF && text != "") {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GetPassword reads a password from the terminal without echo.
func GetPassword(out io.Writer) (string, error) {
	fmt.Fprintln(out, "-Enter password")
	b, err := readPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
