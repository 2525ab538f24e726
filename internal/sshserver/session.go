// SPDX-License-Identifier: MPL-2.0

package sshserver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"

	"github.com/cliboot/cliboot/internal/shell"
	"github.com/cliboot/cliboot/pkg/plugin"
)

// sessionMiddleware routes each session. A session that names a command runs
// that single line and exits with its status; any other session must hold a
// terminal and gets its own dispatch loop.
func (s *Server) sessionMiddleware() wish.Middleware {
	interactive := activeterm.Middleware()(s.runLoop)
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			s.sessions.Add(1)
			defer s.sessions.Add(-1)

			logger := s.sessionLogger(sess)
			logger.Debug("session opened")
			defer logger.Debug("session closed")

			if len(sess.Command()) > 0 {
				s.runLine(sess, logger)
			} else {
				interactive(sess)
			}
			next(sess)
		}
	}
}

func (s *Server) sessionLogger(sess ssh.Session) *log.Logger {
	return s.logger.With("user", sess.User(), "remote", sess.RemoteAddr().String())
}

func (s *Server) runLoop(sess ssh.Session) {
	logger := s.sessionLogger(sess)
	var exited atomic.Bool
	loop := &shell.Loop{
		Registry: s.cfg.Registry,
		In:       sess,
		Out:      sess,
		Err:      sess.Stderr(),
		History:  s.cfg.History,
		Lock:     &s.execMu,
		Logger:   slog.New(logger),
		Terminate: func(code int) {
			// Exit closes the channel, so the loop's next read ends it.
			exited.Store(true)
			_ = sess.Exit(code)
		},
	}
	err := loop.Run(sess.Context())
	if exited.Load() {
		return
	}
	if err != nil && !errors.Is(err, sess.Context().Err()) {
		logger.Warn("session loop failed", "error", err)
		_ = sess.Exit(1)
		return
	}
	_ = sess.Exit(0)
}

// runLine executes the session's command line once under the shared lock.
func (s *Server) runLine(sess ssh.Session, logger *log.Logger) {
	line := sess.RawCommand()
	if s.cfg.History != nil {
		if _, err := s.cfg.History.Add(line); err != nil {
			logger.Warn("failed to record history", "error", err)
		}
	}

	exitCode := 0
	ctx := plugin.WithIO(sess.Context(), plugin.IO{Stdin: sess, Stdout: sess, Stderr: sess.Stderr()})
	ctx = plugin.WithTerminator(ctx, func(code int) { exitCode = code })
	ctx = plugin.WithSession(ctx, plugin.NewSession())

	if err := s.execute(ctx, line); err != nil {
		style := lipgloss.NewRenderer(sess.Stderr()).NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		_, _ = sess.Stderr().Write([]byte(style.Render(err.Error()) + "\n"))
		exitCode = 1
	}
	_ = sess.Exit(exitCode)
}

// execute runs line under the shared lock, reporting a panic as an error.
func (s *Server) execute(ctx context.Context, line string) (err error) {
	s.execMu.Lock()
	defer s.execMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = &shell.PanicError{Line: line, Value: r}
		}
	}()

	return s.cfg.Registry.Execute(ctx, line)
}
