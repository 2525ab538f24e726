// SPDX-License-Identifier: MPL-2.0

// Package shell implements the interactive dispatch loop: it prompts, reads
// one line at a time and executes each non-blank line against the command
// registry. Command failures are printed and never end the loop.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/cliboot/cliboot/pkg/plugin"
)

// Prompt is the literal printed before every read.
const Prompt = "$ "

// unknownErrorMessage is printed for failures that carry no message.
const unknownErrorMessage = "unknown error executing command"

type (
	// Executor runs one raw input line.
	Executor interface {
		Execute(ctx context.Context, line string) error
	}

	// History records the lines entered in the loop.
	History interface {
		Add(line string) (int, error)
	}

	// Loop is a read-execute loop over a line-oriented input stream.
	Loop struct {
		// Registry executes each line.
		Registry Executor
		// In is read line by line. Nil means no input: Run returns at once.
		In io.Reader
		// Out receives the prompt and is the stdout of executed commands.
		Out io.Writer
		// Err receives failure messages and is the stderr of executed commands.
		Err io.Writer
		// Prompt overrides the default prompt when non-empty.
		Prompt string
		// History, when set, records every non-blank line before it runs.
		History History
		// Terminate, when set, is the terminator commands reach through
		// plugin.Terminate.
		Terminate func(code int)
		// Lock, when set, is held around each execution so loops sharing a
		// registry never run handlers concurrently.
		Lock sync.Locker
		// Logger receives diagnostics. Nil uses slog.Default().
		Logger *slog.Logger
	}

	// PanicError is reported when a handler panics.
	PanicError struct {
		Line  string
		Value any
	}

	readResult struct {
		line string
		err  error
	}
)

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic executing %q: %v", e.Line, e.Value)
}

// Run prompts and executes lines until the input is exhausted or ctx is
// cancelled. End of input returns nil; cancellation returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l.In == nil {
		return nil
	}

	out := l.Out
	if out == nil {
		out = io.Discard
	}
	errOut := l.Err
	if errOut == nil {
		errOut = io.Discard
	}
	prompt := l.Prompt
	if prompt == "" {
		prompt = Prompt
	}
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	errStyle := lipgloss.NewRenderer(errOut).NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	// Commands read their input through the loop's buffer so no typed-ahead
	// bytes are lost between lines.
	reader := bufio.NewReader(l.In)
	execCtx := plugin.WithIO(ctx, plugin.IO{Stdin: reader, Stdout: out, Stderr: errOut})
	if plugin.SessionFrom(execCtx) == nil {
		execCtx = plugin.WithSession(execCtx, plugin.NewSession())
	}
	if l.Terminate != nil {
		execCtx = plugin.WithTerminator(execCtx, l.Terminate)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := io.WriteString(out, prompt); err != nil {
			return fmt.Errorf("failed to write prompt: %w", err)
		}

		line, err := readLine(ctx, reader)
		if err != nil {
			if errors.Is(err, io.EOF) && line == "" {
				return nil
			}
			if !errors.Is(err, io.EOF) {
				return err
			}
		}

		if strings.TrimSpace(line) != "" {
			if l.History != nil {
				if _, histErr := l.History.Add(line); histErr != nil {
					logger.Warn("failed to record history", "error", histErr)
				}
			}

			if execErr := l.execute(execCtx, line); execErr != nil {
				logger.Debug("command failed", "line", line, "error", execErr)
				msg := execErr.Error()
				if msg == "" {
					msg = unknownErrorMessage
				}
				_, _ = fmt.Fprintln(errOut, errStyle.Render(msg))
			}
		}

		// A final line without a newline is still executed before the loop ends.
		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}

// execute runs line, converting a handler panic into a PanicError.
func (l *Loop) execute(ctx context.Context, line string) (err error) {
	if l.Lock != nil {
		l.Lock.Lock()
		defer l.Lock.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Line: line, Value: r}
		}
	}()

	return l.Registry.Execute(ctx, line)
}

// readLine reads one line without its terminator. The read itself cannot be
// interrupted; on cancellation the pending read is abandoned.
func readLine(ctx context.Context, r *bufio.Reader) (string, error) {
	ch := make(chan readResult, 1)
	go func() {
		line, err := r.ReadString('\n')
		ch <- readResult{line: strings.TrimRight(line, "\r\n"), err: err}
	}()

	select {
	case res := <-ch:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
