// SPDX-License-Identifier: MPL-2.0

package plugin

import (
	"context"
	"io"
	"os"
)

type (
	ioContextKey        struct{}
	terminateContextKey struct{}

	// IO holds the streams of the session that issued a command.
	IO struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}
)

// WithIO attaches session streams to ctx.
func WithIO(ctx context.Context, streams IO) context.Context {
	return context.WithValue(ctx, ioContextKey{}, streams)
}

func streamsFrom(ctx context.Context) IO {
	streams, _ := ctx.Value(ioContextKey{}).(IO)
	return streams
}

// Stdout returns the session output stream, or os.Stdout when none is attached.
func Stdout(ctx context.Context) io.Writer {
	if w := streamsFrom(ctx).Stdout; w != nil {
		return w
	}
	return os.Stdout
}

// Stderr returns the session error stream, or os.Stderr when none is attached.
func Stderr(ctx context.Context) io.Writer {
	if w := streamsFrom(ctx).Stderr; w != nil {
		return w
	}
	return os.Stderr
}

// Stdin returns the session input stream, or os.Stdin when none is attached.
func Stdin(ctx context.Context) io.Reader {
	if r := streamsFrom(ctx).Stdin; r != nil {
		return r
	}
	return os.Stdin
}

// WithTerminator attaches the function that ends the session to ctx.
func WithTerminator(ctx context.Context, fn func(code int)) context.Context {
	return context.WithValue(ctx, terminateContextKey{}, fn)
}

// Terminate ends the session that issued the command. Without an attached
// terminator it exits the process.
func Terminate(ctx context.Context, code int) {
	if fn, ok := ctx.Value(terminateContextKey{}).(func(int)); ok && fn != nil {
		fn(code)
		return
	}
	os.Exit(code)
}
