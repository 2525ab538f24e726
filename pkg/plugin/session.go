// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"sync"
)

type sessionContextKey struct{}

// Session holds values scoped to one session. Command instances are shared
// by every session a process serves; state that belongs to a single user,
// such as a working directory, lives here instead of on the instance.
type Session struct {
	mu     sync.Mutex
	values map[any]any
}

// NewSession returns an empty session.
func NewSession() *Session {
	return &Session{values: make(map[any]any)}
}

// WithSession attaches s to ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, s)
}

// SessionFrom returns the session attached to ctx, or nil.
func SessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey{}).(*Session)
	return s
}

// Load returns the value stored under key. On first use the value is
// created with init and stored.
func (s *Session) Load(key any, init func() any) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.values[key]; ok {
		return v
	}
	v := init()
	s.values[key] = v
	return v
}

// Store replaces the value under key.
func (s *Session) Store(key, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
