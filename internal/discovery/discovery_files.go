// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Scan classifies root and scans it: a regular file is read as a zip
// archive, a directory is walked recursively. Any other root, including a
// missing one, fails with an UnknownRootTypeError.
func (s *Scanner) Scan(ctx context.Context, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return &UnknownRootTypeError{Root: root, Err: err}
	}

	switch {
	case info.Mode().IsRegular():
		return s.ScanArchive(ctx, root)
	case info.IsDir():
		return s.ScanDir(ctx, root)
	default:
		return &UnknownRootTypeError{Root: root}
	}
}

// ScanDir walks root depth-first and scans every regular file whose name
// ends in a unit extension. Unreadable subdirectories are skipped with a
// warning diagnostic. A root that is a symbolic link is resolved first;
// links below the root are not followed.
func (s *Scanner) ScanDir(ctx context.Context, root string) error {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return &InvalidRootError{Root: root, Reason: "not a directory"}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		slog.Warn("failed to resolve absolute path for scan root", "root", root, "error", err)
		absRoot = root
	}

	s.report.Root = absRoot
	s.report.Source = SourceDirectory

	walkRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return &InvalidRootError{Root: root, Reason: err.Error()}
	}
	fsys := os.DirFS(walkRoot)

	return filepath.WalkDir(walkRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == walkRoot {
				return &InvalidRootError{Root: root, Reason: walkErr.Error()}
			}
			s.report.Diagnostics = append(s.report.Diagnostics, Diagnostic{
				Severity: SeverityWarning,
				Code:     "walk_failed",
				Message:  "skipping unreadable path",
				Path:     path,
				Cause:    walkErr,
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if !d.Type().IsRegular() {
			return nil
		}

		ext, ok := s.matchExtension(d.Name())
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(walkRoot, path)
		if err != nil {
			return fmt.Errorf("failed to relativize %s: %w", path, err)
		}
		slashPath := filepath.ToSlash(rel)

		_, err = s.ScanUnit(ctx, Unit{
			ID:   unitID(slashPath, ext),
			Path: slashPath,
			Ext:  ext,
			FS:   fsys,
		})
		return err
	})
}

// ScanArchive iterates the entry index of the zip archive once and
// scans every entry whose name ends in a unit extension. The archive is
// closed before returning on every path.
func (s *Scanner) ScanArchive(ctx context.Context, archive string) (err error) {
	info, statErr := os.Stat(archive)
	if statErr != nil || !info.Mode().IsRegular() {
		return &InvalidRootError{Root: archive, Reason: "not a regular file"}
	}

	absPath, absErr := filepath.Abs(archive)
	if absErr != nil {
		absPath = archive
	}
	s.report.Root = absPath
	s.report.Source = SourceArchive

	zipReader, err := zip.OpenReader(archive)
	if err != nil {
		return &InvalidRootError{Root: archive, Reason: fmt.Sprintf("failed to open archive: %v", err)}
	}
	defer func() {
		if closeErr := zipReader.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close archive %s: %w", archive, closeErr)
		}
	}()

	for _, file := range zipReader.File {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if file.FileInfo().IsDir() {
			continue
		}

		ext, ok := s.matchExtension(path.Base(file.Name))
		if !ok {
			continue
		}

		if _, err = s.ScanUnit(ctx, Unit{
			ID:   unitID(file.Name, ext),
			Path: file.Name,
			Ext:  ext,
			FS:   &zipReader.Reader,
		}); err != nil {
			return err
		}
	}

	return nil
}

// unitID turns a slash-separated relative path into a qualified identifier.
func unitID(slashPath, ext string) string {
	return strings.ReplaceAll(strings.TrimSuffix(slashPath, ext), "/", ".")
}
