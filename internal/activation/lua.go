// SPDX-License-Identifier: MPL-2.0

package activation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/cliboot/cliboot/internal/discovery"
	"github.com/cliboot/cliboot/pkg/plugin"
)

// unsafeGlobals are base library functions removed from every state.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

type (
	// LuaActivator runs Lua scripts and exposes the table they return as a
	// command group. A script is a group when its result has a "commands"
	// table mapping command names to functions of (self, args); an optional
	// "new" function constructs the instance passed as self. Any other
	// result makes the unit a non-group type.
	//
	// Each group script keeps its own Lua state for the life of the
	// activator. Close releases them.
	LuaActivator struct {
		mu     sync.Mutex
		states []*luaState
	}

	// luaState serializes access to one gopher-lua state, which is not
	// goroutine-safe.
	luaState struct {
		mu     sync.Mutex
		L      *lua.LState
		path   string
		closed bool
	}

	luaType struct {
		id       string
		state    *luaState
		module   *lua.LTable
		commands []luaCommand
	}

	luaCommand struct {
		name string
		fn   *lua.LFunction
	}

	luaInstance struct {
		entries []plugin.EntryPoint
	}
)

// NewLuaActivator creates a Lua activator.
func NewLuaActivator() *LuaActivator {
	return &LuaActivator{}
}

// Resolve implements discovery.Activator.
func (a *LuaActivator) Resolve(ctx context.Context, unit discovery.Unit) (plugin.Type, error) {
	src, err := fs.ReadFile(unit.FS, unit.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", unit.Path, err)
	}

	st := newLuaState(unit.Path)
	var result lua.LValue
	err = st.with(ctx, func(L *lua.LState) error {
		chunk, loadErr := L.Load(bytes.NewReader(src), unit.Path)
		if loadErr != nil {
			return loadErr
		}
		if callErr := L.CallByParam(lua.P{Fn: chunk, NRet: 1, Protect: true}); callErr != nil {
			return callErr
		}
		result = L.Get(-1)
		L.Pop(1)
		return nil
	})
	if err != nil {
		st.close()
		return nil, &ScriptError{Path: unit.Path, Err: err}
	}

	module, ok := result.(*lua.LTable)
	if !ok {
		st.close()
		return plugin.Plain(unit.ID), nil
	}
	commands, ok := module.RawGetString("commands").(*lua.LTable)
	if !ok {
		st.close()
		return plugin.Plain(unit.ID), nil
	}

	t := &luaType{id: unit.ID, state: st, module: module}
	commands.ForEach(func(k, v lua.LValue) {
		name, isName := k.(lua.LString)
		fn, isFn := v.(*lua.LFunction)
		if !isName || !isFn {
			slog.Debug("ignoring non-function entry in lua commands table", "unit", unit.ID, "key", k.String())
			return
		}
		t.commands = append(t.commands, luaCommand{name: string(name), fn: fn})
	})
	sort.Slice(t.commands, func(i, j int) bool { return t.commands[i].name < t.commands[j].name })

	a.mu.Lock()
	a.states = append(a.states, st)
	a.mu.Unlock()

	return t, nil
}

// Close releases every Lua state created by the activator.
func (a *LuaActivator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, st := range a.states {
		st.close()
	}
	a.states = nil
	return nil
}

func newLuaState(path string) *luaState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetTop(0)
	return &luaState{L: L, path: path}
}

// with runs fn while holding the state. print writes to the invocation's
// stdout and ctx cancellation interrupts the running script.
func (s *luaState) with(ctx context.Context, fn func(L *lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("lua state for %s is closed", s.path)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	s.L.SetContext(ctx)
	defer s.L.RemoveContext()
	s.L.SetGlobal("print", s.L.NewFunction(printTo(plugin.Stdout(ctx))))

	return fn(s.L)
}

func (s *luaState) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.L.Close()
		s.closed = true
	}
}

// printTo mirrors the base print function: arguments are converted with
// tostring, separated by tabs and followed by a newline.
func printTo(w io.Writer) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		_, _ = fmt.Fprintln(w, strings.Join(parts, "\t"))
		return 0
	}
}

func (t *luaType) ID() string { return t.id }

func (t *luaType) IsGroup() bool { return true }

// New builds the instance by calling the module's new function, or, when
// there is none, from an empty table that inherits from the module.
func (t *luaType) New(ctx context.Context) (plugin.Instance, error) {
	var self lua.LValue
	err := t.state.with(ctx, func(L *lua.LState) error {
		ctor, ok := t.module.RawGetString("new").(*lua.LFunction)
		if !ok {
			tbl := L.NewTable()
			meta := L.NewTable()
			meta.RawSetString("__index", t.module)
			L.SetMetatable(tbl, meta)
			self = tbl
			return nil
		}

		if err := L.CallByParam(lua.P{Fn: ctor, NRet: 1, Protect: true}); err != nil {
			return err
		}
		self = L.Get(-1)
		L.Pop(1)
		if self == lua.LNil {
			return errors.New("new() returned nil")
		}
		return nil
	})
	if err != nil {
		return nil, &ScriptError{Path: t.state.path, Err: err}
	}

	inst := &luaInstance{entries: make([]plugin.EntryPoint, 0, len(t.commands))}
	for _, c := range t.commands {
		inst.entries = append(inst.entries, plugin.EntryPoint{
			Command: c.name,
			Handler: t.handler(self, c.fn),
		})
	}
	return inst, nil
}

// handler calls fn(self, args) where args is a sequence holding the token
// vector, command name first. A function signals failure by raising an
// error or by returning a falsy value followed by a message.
func (t *luaType) handler(self lua.LValue, fn *lua.LFunction) plugin.Handler {
	return func(ctx context.Context, args []string) error {
		return t.state.with(ctx, func(L *lua.LState) error {
			argv := L.NewTable()
			for _, arg := range args {
				argv.Append(lua.LString(arg))
			}

			if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, self, argv); err != nil {
				return err
			}
			status, detail := L.Get(-2), L.Get(-1)
			L.Pop(2)

			if msg, isMsg := detail.(lua.LString); isMsg && !lua.LVAsBool(status) {
				return errors.New(string(msg))
			}
			return nil
		})
	}
}

func (i *luaInstance) EntryPoints() []plugin.EntryPoint { return i.entries }
