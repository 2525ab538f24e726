// SPDX-License-Identifier: MPL-2.0

// Package sys is a bundled command group. Importing it declares the
// "sys.Tools" group in the process plugin catalog; a scan root containing
// sys/Tools.unit then registers its commands.
package sys

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/cliboot/cliboot/pkg/plugin"
)

const (
	// ToolsID is the identifier the group is declared under.
	ToolsID = "sys.Tools"
	// HelpersID names a declared type that is not a command group.
	HelpersID = "sys.helpers"
)

// ErrNoScript is returned by sh when no script text is given.
var ErrNoScript = errors.New("sh: missing script")

// Tools is the instance behind the group's commands. Its directory is the
// starting point; every session attached to a command's context moves its
// own copy with cd.
type Tools struct {
	dir string
}

type dirKey struct{}

func init() {
	plugin.Register(Type())
	plugin.Register(plugin.Plain(HelpersID))
}

// Type returns the declaration of the tools group.
func Type() plugin.Type {
	return plugin.Group(ToolsID, NewTools,
		plugin.Command("echo", (*Tools).Echo),
		plugin.Command("pwd", (*Tools).Pwd),
		plugin.Command("cd", (*Tools).Cd),
		plugin.Command("sh", (*Tools).Sh),
	)
}

// NewTools starts in the process working directory.
func NewTools() *Tools {
	dir, err := os.Getwd()
	if err != nil {
		dir = "."
	}
	return &Tools{dir: dir}
}

// Echo prints its arguments separated by single spaces.
func (t *Tools) Echo(ctx context.Context, args []string) error {
	_, err := fmt.Fprintln(plugin.Stdout(ctx), strings.Join(args[1:], " "))
	return err
}

// Pwd prints the working directory.
func (t *Tools) Pwd(ctx context.Context, _ []string) error {
	_, err := fmt.Fprintln(plugin.Stdout(ctx), t.workdir(ctx))
	return err
}

// Cd changes the working directory used by pwd and sh. Without an argument
// it changes to the user's home directory.
func (t *Tools) Cd(ctx context.Context, args []string) error {
	var target string
	if len(args) < 2 || args[1] == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cd: %w", err)
		}
		target = home
	} else {
		target = args[1]
		if !filepath.IsAbs(target) {
			target = filepath.Join(t.workdir(ctx), target)
		}
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cd: %s: not a directory", target)
	}
	t.setWorkdir(ctx, filepath.Clean(target))
	return nil
}

// Sh runs the rest of the line as a POSIX shell script in the built-in
// interpreter. A non-zero exit status is returned as an error.
func (t *Tools) Sh(ctx context.Context, args []string) error {
	script := strings.Join(args[1:], " ")
	if strings.TrimSpace(script) == "" {
		return ErrNoScript
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(script), "sh")
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(t.workdir(ctx)),
		interp.Env(expand.ListEnviron(os.Environ()...)),
		interp.StdIO(plugin.Stdin(ctx), plugin.Stdout(ctx), plugin.Stderr(ctx)),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return fmt.Errorf("exit status %d", int(exitStatus))
		}
		return fmt.Errorf("script execution failed: %w", err)
	}
	return nil
}

// workdir returns the directory of the session issuing the command, or the
// instance's directory when no session is attached.
func (t *Tools) workdir(ctx context.Context) string {
	sess := plugin.SessionFrom(ctx)
	if sess == nil {
		return t.dir
	}
	return sess.Load(dirKey{}, func() any { return t.dir }).(string)
}

func (t *Tools) setWorkdir(ctx context.Context, dir string) {
	if sess := plugin.SessionFrom(ctx); sess != nil {
		sess.Store(dirKey{}, dir)
		return
	}
	t.dir = dir
}
