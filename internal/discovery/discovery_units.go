// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"
	"log/slog"
)

// ScanUnit resolves one unit and registers the commands it declares.
// It returns the number of commands registered.
//
// A resolution or activation failure is fatal and returned as-is; so is a
// duplicate command name. Units that do not resolve to a command group are
// recorded as info diagnostics and contribute nothing.
func (s *Scanner) ScanUnit(ctx context.Context, unit Unit) (int, error) {
	s.report.Units++

	t, err := s.activator.Resolve(ctx, unit)
	if err != nil {
		return 0, &ResolutionError{UnitID: unit.ID, Path: unit.Path, Err: err}
	}
	if t == nil {
		return 0, &ResolutionError{UnitID: unit.ID, Path: unit.Path, Err: fmt.Errorf("activator returned no type")}
	}

	if !t.IsGroup() {
		slog.Debug("skipping unit that is not a command group", "unit", unit.ID, "path", unit.Path)
		s.report.Diagnostics = append(s.report.Diagnostics, Diagnostic{
			Severity: SeverityInfo,
			Code:     "unit_not_group",
			Message:  fmt.Sprintf("%s is not a command group", unit.ID),
			Path:     unit.Path,
		})
		return 0, nil
	}

	inst, err := t.New(ctx)
	if err != nil {
		return 0, &ActivationError{UnitID: unit.ID, Err: err}
	}
	s.report.Groups = append(s.report.Groups, unit.ID)

	registered := 0
	for _, ep := range inst.EntryPoints() {
		if err := s.registry.Register(ep.Command, ep.Handler); err != nil {
			return registered, fmt.Errorf("register command %q from %s: %w", ep.Command, unit.ID, err)
		}
		registered++
		s.report.Commands++
		slog.Debug("registered plugin command", "command", ep.Command, "unit", unit.ID)
	}

	return registered, nil
}
