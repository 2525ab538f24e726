// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	gossh "golang.org/x/crypto/ssh"

	"github.com/cliboot/cliboot/internal/builtin"
	"github.com/cliboot/cliboot/internal/registry"
	"github.com/cliboot/cliboot/internal/testutil"
	"github.com/cliboot/cliboot/pkg/plugin"
)

type memHistory struct {
	mu    sync.Mutex
	lines []string
}

func (h *memHistory) Add(line string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
	return len(h.lines), nil
}

func (h *memHistory) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	if err := builtin.Register(reg); err != nil {
		t.Fatalf("builtin.Register() returned error: %v", err)
	}
	greet := func(ctx context.Context, args []string) error {
		who := "you"
		if len(args) > 1 {
			who = args[1]
		}
		_, err := fmt.Fprintf(plugin.Stdout(ctx), "hello %s\n", who)
		return err
	}
	if err := reg.Register("greet", greet); err != nil {
		t.Fatal(err)
	}
	return reg
}

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	srv := New(cfg)
	srv.SetLogger(log.New(io.Discard))
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	t.Cleanup(testutil.DeferStop(t, srv))
	return srv
}

func dial(t *testing.T, srv *Server) *gossh.Client {
	t.Helper()
	client, err := gossh.Dial("tcp", srv.Address(), &gossh.ClientConfig{
		User:            "tester",
		HostKeyCallback: gossh.InsecureIgnoreHostKey(), //nolint:gosec // loopback test server
		Timeout:         5 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to dial %s: %v", srv.Address(), err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func exitStatus(err error) int {
	var exitErr *gossh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestInteractiveSession(t *testing.T) {
	t.Parallel()

	history := &memHistory{}
	cfg := DefaultConfig()
	cfg.Registry = newTestRegistry(t)
	cfg.History = history
	srv := startServer(t, cfg)

	sess, err := dial(t, srv).NewSession()
	if err != nil {
		t.Fatalf("NewSession() returned error: %v", err)
	}
	var screen testutil.SyncBuffer
	sess.Stdout = &screen
	sess.Stderr = &screen
	stdin, err := sess.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.RequestPty("xterm", 24, 80, gossh.TerminalModes{}); err != nil {
		t.Fatalf("RequestPty() returned error: %v", err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("Shell() returned error: %v", err)
	}

	testutil.WaitFor(t, &screen, "$ ")
	_, _ = io.WriteString(stdin, "greet ssh\n")
	testutil.WaitFor(t, &screen, "hello ssh")
	_, _ = io.WriteString(stdin, "nope\n")
	testutil.WaitFor(t, &screen, "command not found: nope")
	_, _ = io.WriteString(stdin, "exit\n")

	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()
	select {
	case err := <-done:
		if code := exitStatus(err); code != 0 {
			t.Errorf("session exit status = %d (%v), want 0", code, err)
		}
	case <-time.After(testutil.DefaultWait):
		t.Fatal("session did not end after exit")
	}

	if got := strings.Join(history.snapshot(), "|"); got != "greet ssh|nope|exit" {
		t.Errorf("history = %q", got)
	}
}

func TestInteractiveSessionRequiresTerminal(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Registry = newTestRegistry(t)
	srv := startServer(t, cfg)

	sess, err := dial(t, srv).NewSession()
	if err != nil {
		t.Fatal(err)
	}
	if err := sess.Shell(); err != nil {
		t.Fatalf("Shell() returned error: %v", err)
	}
	if err := sess.Wait(); exitStatus(err) == 0 {
		t.Error("session without a terminal should fail")
	}
}

func TestExecSessionsDoNotShareState(t *testing.T) {
	t.Parallel()

	type markKey struct{}
	reg := registry.New()
	if err := reg.Register("mark", func(ctx context.Context, _ []string) error {
		plugin.SessionFrom(ctx).Store(markKey{}, "marked")
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.Register("show", func(ctx context.Context, _ []string) error {
		v := plugin.SessionFrom(ctx).Load(markKey{}, func() any { return "clean" })
		_, err := fmt.Fprintln(plugin.Stdout(ctx), v)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Registry = reg
	client := dial(t, startServer(t, cfg))

	for _, line := range []string{"mark", "show"} {
		sess, err := client.NewSession()
		if err != nil {
			t.Fatal(err)
		}
		out, err := sess.Output(line)
		if err != nil {
			t.Fatalf("Output(%s) returned error: %v", line, err)
		}
		if line == "show" && string(out) != "clean\n" {
			t.Errorf("show after mark in another session = %q, want clean", out)
		}
	}
}

func TestExecSession(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Registry = newTestRegistry(t)
	srv := startServer(t, cfg)
	client := dial(t, srv)

	sess, err := client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	out, err := sess.Output("greet exec")
	if err != nil {
		t.Fatalf("Output() returned error: %v", err)
	}
	if string(out) != "hello exec\n" {
		t.Errorf("output = %q", out)
	}

	sess, err = client.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	out, err = sess.CombinedOutput("nope")
	if code := exitStatus(err); code != 1 {
		t.Errorf("unknown command exit status = %d (%v), want 1", code, err)
	}
	if !strings.Contains(string(out), "command not found: nope") {
		t.Errorf("output = %q", out)
	}
}

func TestSessionsNeverRunHandlersConcurrently(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	reg := registry.New()
	slow := func(context.Context, []string) error {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return nil
	}
	if err := reg.Register("slow", slow); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Registry = reg
	srv := startServer(t, cfg)
	client := dial(t, srv)

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for range 4 {
		wg.Go(func() {
			sess, err := client.NewSession()
			if err != nil {
				errs <- err
				return
			}
			errs <- sess.Run("slow")
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("session failed: %v", err)
		}
	}
	if peak.Load() != 1 {
		t.Errorf("peak concurrent handlers = %d, want 1", peak.Load())
	}
}

func TestLifecycle(t *testing.T) {
	t.Parallel()

	srv := New(Config{Registry: registry.New()})
	srv.SetLogger(log.New(io.Discard))
	if srv.State() != StateCreated || srv.Address() != "" || srv.Port() != 0 {
		t.Fatalf("new server: state %s, address %q", srv.State(), srv.Address())
	}
	if srv.Host() != DefaultHost {
		t.Errorf("Host() = %q, want default", srv.Host())
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if !srv.IsRunning() || srv.Port() == 0 {
		t.Errorf("running server: state %s, port %d", srv.State(), srv.Port())
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	waited := make(chan error, 1)
	go func() { waited <- srv.Wait() }()

	if err := srv.Stop(); err != nil {
		t.Errorf("Stop() returned error: %v", err)
	}
	if srv.State() != StateStopped {
		t.Errorf("state after Stop() = %s", srv.State())
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("second Stop() returned error: %v", err)
	}
	if _, open := <-srv.Err(); open {
		t.Error("Err() channel should be closed after Stop()")
	}
	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("Wait() = %v", err)
		}
	case <-time.After(testutil.DefaultWait):
		t.Fatal("Wait() did not return after Stop()")
	}
}

func TestStartFailures(t *testing.T) {
	t.Parallel()

	if err := New(DefaultConfig()).Start(context.Background()); !errors.Is(err, ErrNoRegistry) {
		t.Errorf("Start() without registry = %v", err)
	}

	err := New(Config{Port: 70000, Registry: registry.New()}).Start(context.Background())
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Start() with bad port = %v, want ErrInvalidConfig", err)
	}

	// Serving beyond the loopback interface requires client authentication.
	exposed := New(Config{Host: "0.0.0.0", Registry: registry.New()})
	err = exposed.Start(context.Background())
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) || len(cfgErr.FieldErrors) != 1 {
		t.Errorf("Start() on 0.0.0.0 without authorized keys = %v, want one field error", err)
	}
	if exposed.State() != StateCreated {
		t.Errorf("state after rejected Start() = %s", exposed.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv := New(Config{Registry: registry.New()})
	if err := srv.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() with cancelled context = %v", err)
	}
	if srv.State() != StateCreated {
		t.Errorf("state after cancelled Start() = %s", srv.State())
	}

	// A port already in use fails the listener.
	busy := startServer(t, Config{Registry: registry.New()})
	clash := New(Config{Port: busy.Port(), Registry: registry.New()})
	clash.SetLogger(log.New(io.Discard))
	if err := clash.Start(context.Background()); err == nil {
		t.Error("Start() on a busy port should fail")
	}
	if clash.State() != StateFailed {
		t.Errorf("state = %s, want failed", clash.State())
	}
	if err := clash.Wait(); err == nil {
		t.Error("Wait() on a failed server should return its error")
	}
}

func TestHostKeyIsPersisted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	startServer(t, Config{
		HostKeyPath: dir + string(os.PathSeparator) + "host_ed25519",
		Registry:    registry.New(),
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Error("no host key written")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}

	err := Config{Host: " ", Port: -1}.Validate()
	var cfgErr *InvalidConfigError
	if !errors.As(err, &cfgErr) || len(cfgErr.FieldErrors) != 2 {
		t.Fatalf("Validate() = %v, want two field errors", err)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}

	for _, host := range []string{"127.0.0.1", "::1", "localhost"} {
		if err := (Config{Host: host}).Validate(); err != nil {
			t.Errorf("Validate() for loopback host %s = %v", host, err)
		}
	}
	if err := (Config{Host: "0.0.0.0", AuthorizedKeysPath: "authorized_keys"}).Validate(); err != nil {
		t.Errorf("Validate() with authorized keys = %v", err)
	}
	if err := (Config{Host: "192.0.2.10"}).Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Validate() for public host without keys = %v, want ErrInvalidConfig", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	tests := map[State]string{
		StateCreated:  "created",
		StateStarting: "starting",
		StateRunning:  "running",
		StateStopping: "stopping",
		StateStopped:  "stopped",
		StateFailed:   "failed",
		State(42):     "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
