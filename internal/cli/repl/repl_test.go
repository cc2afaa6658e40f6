package repl

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestREPL_Run(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"quit stops reading", "hello\nquit\nafter\n", []string{"hello", "quit"}},
		{"EOF", "one\ntwo", []string{"one", "two"}},
		{"blank lines skipped", "\n  \nx\n", []string{"x"}},
		{"empty input", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			r := New(func(line string) { got = append(got, line) },
				WithInput(strings.NewReader(tt.input)),
				WithOutput(io.Discard))
			if err := r.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("submitted %q, want %q", got, tt.want)
			}
			if r.History().Len() != len(tt.want) {
				t.Errorf("history has %d entries, want %d", r.History().Len(), len(tt.want))
			}
		})
	}
}

func TestREPL_Prompt(t *testing.T) {
	var out bytes.Buffer
	r := New(func(string) {},
		WithInput(strings.NewReader("a\nb\n")),
		WithOutput(&out),
		WithPrompt("> "))
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(out.String(), "> "); n != 3 {
		t.Errorf("printed %d prompts, want 3: %q", n, out.String())
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestREPL_ReadError(t *testing.T) {
	r := New(func(string) {}, WithInput(failingReader{}), WithOutput(io.Discard))
	if err := r.Run(context.Background()); err == nil || err.Error() != "tty gone" {
		t.Errorf("Run() error = %v, want tty gone", err)
	}
}

func TestREPL_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	r := New(func(string) {}, WithInput(pr), WithOutput(io.Discard))
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
