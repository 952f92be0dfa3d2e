package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// UserPrompter abstracts operator interaction so stages that confirm or ask
// can be tested without a terminal.
//
// # Description
//
// Confirm asks a yes/no question; Ask reads a line with a default applied on
// empty input. Both honor context cancellation so an interrupt during a
// prompt unwinds through the recovery controller like any other abort.
type UserPrompter interface {
	// Confirm asks a yes/no question, returning false on EOF.
	Confirm(ctx context.Context, prompt string) (bool, error)

	// Ask reads one line, returning def when the input is empty.
	Ask(ctx context.Context, prompt, def string) (string, error)
}

// InteractivePrompter reads answers from a reader (stdin in production).
// Used when the rich wizard form is unavailable (no TTY) and for the
// uninstall-style confirmations.
type InteractivePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewInteractivePrompter creates a prompter on stdin/stdout.
func NewInteractivePrompter() *InteractivePrompter {
	return NewInteractivePrompterWithIO(os.Stdin, os.Stdout)
}

// NewInteractivePrompterWithIO creates a prompter with explicit streams.
func NewInteractivePrompterWithIO(in io.Reader, out io.Writer) *InteractivePrompter {
	return &InteractivePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm asks a yes/no question. Accepts y/yes case-insensitively; anything
// else, including EOF, is no.
func (p *InteractivePrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	line, err := p.readLine(ctx, prompt+" [y/N]: ")
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Ask reads one line, returning def when the input is empty.
func (p *InteractivePrompter) Ask(ctx context.Context, prompt, def string) (string, error) {
	label := prompt
	if def != "" {
		label = fmt.Sprintf("%s [%s]", prompt, def)
	}
	line, err := p.readLine(ctx, label+": ")
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// readLine reads a line in a goroutine so a cancelled context unblocks the
// caller even while the read is pending.
func (p *InteractivePrompter) readLine(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- result{line: line, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// MockPrompter is a test double returning scripted answers in order.
type MockPrompter struct {
	// ConfirmAnswers are consumed by successive Confirm calls; when
	// exhausted, Confirm returns false.
	ConfirmAnswers []bool

	// AskAnswers are consumed by successive Ask calls; when exhausted, Ask
	// returns the default.
	AskAnswers []string

	confirms int
	asks     int
}

func (m *MockPrompter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if m.confirms < len(m.ConfirmAnswers) {
		v := m.ConfirmAnswers[m.confirms]
		m.confirms++
		return v, nil
	}
	return false, nil
}

func (m *MockPrompter) Ask(ctx context.Context, prompt, def string) (string, error) {
	if m.asks < len(m.AskAnswers) {
		v := m.AskAnswers[m.asks]
		m.asks++
		if v == "" {
			return def, nil
		}
		return v, nil
	}
	return def, nil
}

var (
	_ UserPrompter = (*InteractivePrompter)(nil)
	_ UserPrompter = (*MockPrompter)(nil)
)
