// Package term содержит интерактивные подтверждения в терминале.
package term

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

// ErrNotInteractive возвращается, если подтверждение запрошено без терминала.
var ErrNotInteractive = xerrors.New("stdin is not a terminal")

// Terminal запрашивает подтверждение опасных операций.
type Terminal struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewTerminal создает Terminal поверх stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		in:          bufio.NewReader(os.Stdin),
		out:         os.Stdout,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
}

// NewTerminalWithIO создает Terminal с заданными потоками.
func NewTerminalWithIO(in io.Reader, out io.Writer, interactive bool) *Terminal {
	return &Terminal{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// Confirm задает вопрос и ждет ответа да/нет. Любой ответ, кроме y/yes, считается отказом.
func (t *Terminal) Confirm(prompt string) (bool, error) {
	if !t.interactive {
		return false, ErrNotInteractive
	}

	fmt.Fprintf(t.out, "%s [y/N]: ", prompt)
	answer, err := t.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, xerrors.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "д", "да":
		return true, nil
	default:
		return false, nil
	}
}
