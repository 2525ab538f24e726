// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"fmt"
)

type (
	// Method is a command implementation declared on a group type T.
	Method[T any] func(g *T, ctx context.Context, args []string) error

	// Declaration is a command entry point declared on a group type T.
	Declaration[T any] struct {
		Command string
		Method  Method[T]
	}

	groupType[T any] struct {
		id    string
		ctor  func() *T
		decls []Declaration[T]
	}

	plainType struct {
		id string
	}

	groupInstance struct {
		entries []EntryPoint
	}
)

// Command declares an entry point named name backed by method m.
func Command[T any](name string, m Method[T]) Declaration[T] {
	return Declaration[T]{Command: name, Method: m}
}

// Group declares a command group type. ctor is its default constructor; a
// nil ctor means the zero value of T is used.
func Group[T any](id string, ctor func() *T, decls ...Declaration[T]) Type {
	return &groupType[T]{id: id, ctor: ctor, decls: decls}
}

// Plain declares a type that is not a command group. Units resolving to it
// are skipped by the scanner.
func Plain(id string) Type {
	return plainType{id: id}
}

func (g *groupType[T]) ID() string { return g.id }

func (g *groupType[T]) IsGroup() bool { return true }

func (g *groupType[T]) New(_ context.Context) (inst Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor of %s panicked: %v", g.id, r)
		}
	}()

	var v *T
	if g.ctor != nil {
		v = g.ctor()
	} else {
		v = new(T)
	}
	if v == nil {
		return nil, fmt.Errorf("constructor of %s returned nil", g.id)
	}

	entries := make([]EntryPoint, 0, len(g.decls))
	for _, d := range g.decls {
		m := d.Method
		entries = append(entries, EntryPoint{
			Command: d.Command,
			Handler: func(ctx context.Context, args []string) error {
				return m(v, ctx, args)
			},
		})
	}
	return &groupInstance{entries: entries}, nil
}

func (i *groupInstance) EntryPoints() []EntryPoint { return i.entries }

func (p plainType) ID() string { return p.id }

func (p plainType) IsGroup() bool { return false }

func (p plainType) New(context.Context) (Instance, error) {
	return nil, fmt.Errorf("%s is not a command group", p.id)
}
