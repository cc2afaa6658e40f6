package command

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/chatmesh-go/internal/client/chatclient"
	"github.com/yndnr/chatmesh-go/internal/telemetry/logger"
)

func TestConnect_ChatSession(t *testing.T) {
	srv := startServer(t, 4)
	addr := srv.ClientAddr().String()

	peer, err := chatclient.Dial(context.Background(), chatclient.Config{ServerAddr: addr}, chatclient.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = peer.Run(context.Background()) }()
	t.Cleanup(peer.Stop)

	stdin, typing := io.Pipe()
	defer typing.Close()
	out := &safeBuffer{}
	history := filepath.Join(t.TempDir(), "history")

	done := make(chan error, 1)
	go func() {
		done <- runAppTo(t, stdin, out, "--history", history, "connect", addr)
	}()

	waitFor(t, "connected banner", func() bool { return strings.Contains(out.String(), "as client 402") })

	if _, err := io.WriteString(typing, "hello mesh\n"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "peer receives", func() bool { return len(peer.History()) == 1 })
	if got := peer.History()[0]; got.Sender != 402 || got.Text != "hello mesh" {
		t.Errorf("peer received %+v", got)
	}

	if err := peer.Send("welcome"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "reply printed", func() bool { return strings.Contains(out.String(), "401: welcome\n") })

	if _, err := io.WriteString(typing, "quit\n"); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("connect returned %v", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("connect did not return after quit")
	}

	data, err := os.ReadFile(history)
	if err != nil {
		t.Fatalf("history not saved: %v", err)
	}
	if string(data) != "hello mesh\nquit\n" {
		t.Errorf("history = %q", data)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := runApp(t, strings.NewReader(""), "connect", "127.0.0.1:1")
	if err == nil || !strings.Contains(err.Error(), "connect failed") {
		t.Errorf("error = %v, want connect failed", err)
	}
}

func TestConnect_BadRule(t *testing.T) {
	srv := startServer(t, 1)
	_, err := runApp(t, strings.NewReader(""), "connect", "--intercept-rule", "bogus", srv.ClientAddr().String())
	if err == nil {
		t.Error("connect with a malformed rule should fail")
	}
}
