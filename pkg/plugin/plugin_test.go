// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
)

type counter struct {
	hits int
}

func (c *counter) Inc(_ context.Context, _ []string) error {
	c.hits++
	return nil
}

func (c *counter) Show(ctx context.Context, args []string) error {
	_, err := Stdout(ctx).Write([]byte(args[0]))
	return err
}

func TestGroupBindsOneInstance(t *testing.T) {
	t.Parallel()

	var built *counter
	typ := Group("test.Counter", func() *counter {
		built = &counter{}
		return built
	},
		Command("inc", (*counter).Inc),
		Command("show", (*counter).Show),
	)

	if !typ.IsGroup() {
		t.Fatal("expected Group to declare a command group")
	}
	if typ.ID() != "test.Counter" {
		t.Errorf("ID() = %q, want %q", typ.ID(), "test.Counter")
	}

	inst, err := typ.New(context.Background())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}

	entries := inst.EntryPoints()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entry points, got %d", len(entries))
	}

	for range 3 {
		if err := entries[0].Handler(context.Background(), []string{"inc"}); err != nil {
			t.Fatalf("inc returned error: %v", err)
		}
	}
	if built.hits != 3 {
		t.Errorf("expected 3 hits on the activated instance, got %d", built.hits)
	}

	var out bytes.Buffer
	ctx := WithIO(context.Background(), IO{Stdout: &out})
	if err := entries[1].Handler(ctx, []string{"show"}); err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	if out.String() != "show" {
		t.Errorf("show wrote %q, want %q", out.String(), "show")
	}
}

func TestGroupNilConstructorUsesZeroValue(t *testing.T) {
	t.Parallel()

	typ := Group[counter]("test.Zero", nil, Command("inc", (*counter).Inc))
	inst, err := typ.New(context.Background())
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	if got := len(inst.EntryPoints()); got != 1 {
		t.Errorf("expected 1 entry point, got %d", got)
	}
}

func TestGroupConstructorFailures(t *testing.T) {
	t.Parallel()

	nilCtor := Group("test.Nil", func() *counter { return nil })
	if _, err := nilCtor.New(context.Background()); err == nil {
		t.Error("expected error when constructor returns nil")
	}

	panicking := Group("test.Panic", func() *counter { panic("boom") })
	if _, err := panicking.New(context.Background()); err == nil {
		t.Error("expected error when constructor panics")
	}
}

func TestPlainIsNotGroup(t *testing.T) {
	t.Parallel()

	typ := Plain("test.Helper")
	if typ.IsGroup() {
		t.Error("expected Plain type not to be a command group")
	}
	if _, err := typ.New(context.Background()); err == nil {
		t.Error("expected New() on a plain type to fail")
	}
}

func TestCatalogDeclare(t *testing.T) {
	t.Parallel()

	c := NewCatalog()
	if err := c.Declare(Plain("b.Two")); err != nil {
		t.Fatalf("Declare() returned error: %v", err)
	}
	if err := c.Declare(Plain("a.One")); err != nil {
		t.Fatalf("Declare() returned error: %v", err)
	}

	err := c.Declare(Plain("a.One"))
	if !errors.Is(err, ErrAlreadyDeclared) {
		t.Errorf("expected ErrAlreadyDeclared, got %v", err)
	}

	if err := c.Declare(Plain("")); err == nil {
		t.Error("expected error for empty identifier")
	}

	if _, ok := c.Lookup("a.One"); !ok {
		t.Error("expected a.One to be declared")
	}
	if _, ok := c.Lookup("missing"); ok {
		t.Error("expected missing to be absent")
	}

	ids := c.IDs()
	if len(ids) != 2 || ids[0] != "a.One" || ids[1] != "b.Two" {
		t.Errorf("IDs() = %v, want [a.One b.Two]", ids)
	}
}

func TestStreamsFallBackToProcess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if Stdout(ctx) != os.Stdout {
		t.Error("expected Stdout to fall back to os.Stdout")
	}
	if Stderr(ctx) != os.Stderr {
		t.Error("expected Stderr to fall back to os.Stderr")
	}
	if Stdin(ctx) != os.Stdin {
		t.Error("expected Stdin to fall back to os.Stdin")
	}
}

func TestTerminateUsesAttachedTerminator(t *testing.T) {
	t.Parallel()

	code := -1
	ctx := WithTerminator(context.Background(), func(c int) { code = c })
	Terminate(ctx, 3)
	if code != 3 {
		t.Errorf("terminator received %d, want 3", code)
	}
}

func TestSessionValues(t *testing.T) {
	t.Parallel()

	if SessionFrom(context.Background()) != nil {
		t.Fatal("SessionFrom() without a session should be nil")
	}

	sess := NewSession()
	ctx := WithSession(context.Background(), sess)
	if SessionFrom(ctx) != sess {
		t.Fatal("SessionFrom() did not return the attached session")
	}

	type key struct{}
	calls := 0
	initial := func() any {
		calls++
		return "start"
	}
	if v := sess.Load(key{}, initial); v != "start" {
		t.Errorf("Load() = %v", v)
	}
	sess.Store(key{}, "moved")
	if v := sess.Load(key{}, initial); v != "moved" || calls != 1 {
		t.Errorf("Load() = %v after Store, init called %d times", v, calls)
	}

	if v := NewSession().Load(key{}, initial); v != "start" {
		t.Errorf("fresh session Load() = %v", v)
	}
}
