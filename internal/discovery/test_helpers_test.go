// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cliboot/cliboot/pkg/plugin"
)

type (
	// testType is a plugin type whose commands print "<id>:<command>".
	testType struct {
		id       string
		group    bool
		commands []string
		newErr   error
	}

	testInstance struct {
		entries []plugin.EntryPoint
	}

	// fakeActivator resolves units from a fixed table and records every unit
	// it was asked about.
	fakeActivator struct {
		types map[string]plugin.Type
		seen  []Unit
	}
)

func (t *testType) ID() string    { return t.id }
func (t *testType) IsGroup() bool { return t.group }

func (t *testType) New(context.Context) (plugin.Instance, error) {
	if t.newErr != nil {
		return nil, t.newErr
	}
	inst := &testInstance{}
	for _, name := range t.commands {
		label := t.id + ":" + name
		inst.entries = append(inst.entries, plugin.EntryPoint{
			Command: name,
			Handler: func(ctx context.Context, _ []string) error {
				_, err := io.WriteString(plugin.Stdout(ctx), label)
				return err
			},
		})
	}
	return inst, nil
}

func (i *testInstance) EntryPoints() []plugin.EntryPoint { return i.entries }

func newFakeActivator(types ...plugin.Type) *fakeActivator {
	a := &fakeActivator{types: make(map[string]plugin.Type)}
	for _, t := range types {
		a.types[t.ID()] = t
	}
	return a
}

func (a *fakeActivator) Resolve(_ context.Context, unit Unit) (plugin.Type, error) {
	a.seen = append(a.seen, unit)
	t, ok := a.types[unit.ID]
	if !ok {
		return nil, fmt.Errorf("no type named %s", unit.ID)
	}
	return t, nil
}

func group(id string, commands ...string) *testType {
	return &testType{id: id, group: true, commands: commands}
}

func plain(id string) *testType {
	return &testType{id: id}
}

// writeTree creates files (slash paths relative to root) with empty content.
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", f, err)
		}
		if err := os.WriteFile(path, []byte("unit "+f), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}
}

// writeArchive creates a zip at path containing files (slash paths), plus
// explicit directory entries for each parent.
func writeArchive(t *testing.T, path string, files ...string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create archive: %v", err)
	}
	zw := zip.NewWriter(out)

	dirs := make(map[string]bool)
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)
	for _, f := range sorted {
		for dir := filepath.ToSlash(filepath.Dir(f)); dir != "." && !dirs[dir]; dir = filepath.ToSlash(filepath.Dir(dir)) {
			dirs[dir] = true
			if _, err := zw.Create(dir + "/"); err != nil {
				t.Fatalf("failed to add dir entry %s: %v", dir, err)
			}
		}
		w, err := zw.Create(f)
		if err != nil {
			t.Fatalf("failed to add %s: %v", f, err)
		}
		if _, err := io.WriteString(w, "unit "+f); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("failed to close archive: %v", err)
	}
}
