package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// QuitCommand ends the loop after it has been submitted.
const QuitCommand = "quit"

// REPL feeds console lines to a submit function.
type REPL struct {
	input   io.Reader
	output  io.Writer
	prompt  string
	history *History
	submit  func(line string)
}

// Option configures a REPL.
type Option func(*REPL)

// WithInput sets the line source. Default is stdin.
func WithInput(r io.Reader) Option {
	return func(l *REPL) { l.input = r }
}

// WithOutput sets where prompts are written. Default is stdout.
func WithOutput(w io.Writer) Option {
	return func(l *REPL) { l.output = w }
}

// WithPrompt sets the prompt printed before each line. Default is none.
func WithPrompt(p string) Option {
	return func(l *REPL) { l.prompt = p }
}

// WithHistory records submitted lines in h.
func WithHistory(h *History) Option {
	return func(l *REPL) { l.history = h }
}

// New creates a REPL that passes every non-empty line to submit.
func New(submit func(line string), opts ...Option) *REPL {
	r := &REPL{
		input:   os.Stdin,
		output:  os.Stdout,
		history: NewHistory("", 0),
		submit:  submit,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// History returns the line history.
func (r *REPL) History() *History {
	return r.history
}

// Run reads lines until "quit", end of input or ctx cancellation. The
// goroutine reading input is left blocked when ctx ends first.
func (r *REPL) Run(ctx context.Context) error {
	type result struct {
		line string
		err  error
	}
	lines := make(chan result)
	go func() {
		reader := bufio.NewReader(r.input)
		for {
			line, err := reader.ReadString('\n')
			select {
			case lines <- result{line, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		if r.prompt != "" {
			fmt.Fprint(r.output, r.prompt)
		}
		var res result
		select {
		case <-ctx.Done():
			return nil
		case res = <-lines:
		}

		line := strings.TrimSpace(res.line)
		if line != "" {
			r.history.Add(line)
			r.submit(line)
			if line == QuitCommand {
				return nil
			}
		}
		if res.err == io.EOF {
			if r.prompt != "" {
				fmt.Fprintln(r.output)
			}
			return nil
		}
		if res.err != nil {
			return res.err
		}
	}
}
