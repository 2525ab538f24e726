// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func noop(context.Context, []string) error { return nil }

func TestRegisterDuplicateFails(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register("dup", noop); err != nil {
		t.Fatalf("first Register() returned error: %v", err)
	}

	err := r.Register("dup", noop)
	if !errors.Is(err, ErrDuplicateCommand) {
		t.Fatalf("expected ErrDuplicateCommand, got %v", err)
	}

	var dupErr *DuplicateCommandError
	if !errors.As(err, &dupErr) || dupErr.Name != "dup" {
		t.Errorf("expected DuplicateCommandError for %q, got %v", "dup", err)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 command after failed duplicate, got %d", r.Len())
	}
}

func TestRegisterDistinctNames(t *testing.T) {
	t.Parallel()

	r := New()
	for _, name := range []string{"b", "a", "c"} {
		if err := r.Register(name, noop); err != nil {
			t.Fatalf("Register(%q) returned error: %v", name, err)
		}
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	r := New()
	if err := r.Register("", noop); !errors.Is(err, ErrEmptyCommandName) {
		t.Errorf("expected ErrEmptyCommandName, got %v", err)
	}
	if err := r.Register("x", nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestExecuteBlankIsNoop(t *testing.T) {
	t.Parallel()

	r := New()
	called := false
	if err := r.Register("x", func(context.Context, []string) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	for _, raw := range []string{"", "   ", " "} {
		if err := r.Execute(context.Background(), raw); err != nil {
			t.Errorf("Execute(%q) returned error: %v", raw, err)
		}
	}
	if called {
		t.Error("handler must not run for blank input")
	}
}

func TestExecutePassesFullTokenVector(t *testing.T) {
	t.Parallel()

	r := New()
	var got []string
	if err := r.Register("foo", func(_ context.Context, args []string) error {
		got = args
		return nil
	}); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	if err := r.Execute(context.Background(), "foo bar baz"); err != nil {
		t.Fatalf("Execute() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"foo", "bar", "baz"}, got); diff != "" {
		t.Errorf("token vector mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	t.Parallel()

	err := New().Execute(context.Background(), "foo bar baz")
	if !errors.Is(err, ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}

	var nf *CommandNotFoundError
	if !errors.As(err, &nf) || nf.Name != "foo" {
		t.Errorf("expected CommandNotFoundError for foo, got %v", err)
	}
}

func TestExecuteHandlerFailureKeepsRegistryUsable(t *testing.T) {
	t.Parallel()

	r := New()
	boom := errors.New("boom")
	if err := r.Register("fail", func(context.Context, []string) error { return boom }); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}
	ok := 0
	if err := r.Register("ok", func(context.Context, []string) error {
		ok++
		return nil
	}); err != nil {
		t.Fatalf("Register() returned error: %v", err)
	}

	err := r.Execute(context.Background(), "fail now")
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error to propagate, got %v", err)
	}
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Name != "fail" {
		t.Errorf("expected CommandError for fail, got %v", err)
	}

	for range 2 {
		if err := r.Execute(context.Background(), "ok"); err != nil {
			t.Errorf("Execute(ok) returned error: %v", err)
		}
	}
	if ok != 2 {
		t.Errorf("expected ok to run twice, ran %d times", ok)
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 commands, got %d", r.Len())
	}
}

func TestTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: []string{}},
		{raw: "   ", want: []string{}},
		{raw: "foo", want: []string{"foo"}},
		{raw: "foo bar baz", want: []string{"foo", "bar", "baz"}},
		{raw: "foo  bar", want: []string{"foo", "", "bar"}},
		{raw: "foo bar  ", want: []string{"foo", "bar"}},
		{raw: " foo", want: []string{"", "foo"}},
		{raw: "foo\tbar", want: []string{"foo\tbar"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, Tokenize(tt.raw)); diff != "" {
				t.Errorf("Tokenize(%q) mismatch (-want +got):\n%s", tt.raw, diff)
			}
		})
	}
}
