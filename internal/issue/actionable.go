// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError is a fatal error annotated for the user: the operation
	// that failed, the root or file it failed on, the catalog issue that
	// explains it and what to try next.
	//
	//	return issue.Annotate("scan plugins").
	//		On(root).
	//		As(issue.InvalidRootId).
	//		Try("Check that the archive is a valid zip file").
	//		Wrap(err)
	ActionableError struct {
		// Operation is a verb phrase such as "scan plugins" or "load configuration".
		Operation string

		// Resource is the scan root, config file or address involved (optional).
		Resource string

		// Issue is the catalog page describing the failure, zero when none applies.
		Issue Id

		// Suggestions are short hints printed below the message (optional).
		Suggestions []string

		// Cause is the underlying error.
		Cause error
	}

	// Annotation collects the context of a failing operation until the
	// cause is known.
	Annotation struct {
		err ActionableError
	}
)

// Annotate starts an annotation for operation.
func Annotate(operation string) *Annotation {
	return &Annotation{err: ActionableError{Operation: operation}}
}

// On records the resource the operation failed on. An empty resource is
// left out of the message.
func (a *Annotation) On(resource string) *Annotation {
	a.err.Resource = resource
	return a
}

// As links the failure to a catalog issue.
func (a *Annotation) As(id Id) *Annotation {
	a.err.Issue = id
	return a
}

// Try appends hints for the user.
func (a *Annotation) Try(hints ...string) *Annotation {
	a.err.Suggestions = append(a.err.Suggestions, hints...)
	return a
}

// Wrap completes the annotation with cause. A nil cause yields nil.
func (a *Annotation) Wrap(cause error) error {
	if cause == nil {
		return nil
	}
	e := a.err
	e.Suggestions = append([]string(nil), a.err.Suggestions...)
	e.Cause = cause
	return &e
}

// IdOf returns the catalog issue of the outermost ActionableError in err's
// chain that names one.
func IdOf(err error) (Id, bool) {
	for err != nil {
		var ae *ActionableError
		if !errors.As(err, &ae) {
			return 0, false
		}
		if ae.Issue != 0 {
			return ae.Issue, true
		}
		err = ae.Cause
	}
	return 0, false
}

// Error implements the error interface as
// "failed to <operation>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the cause.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the message followed by the suggestions as a bullet list.
// In verbose mode the numbered chain of causes is appended.
func (e *ActionableError) Format(verbose bool) string {
	lines := []string{e.Error()}

	if len(e.Suggestions) > 0 {
		lines = append(lines, "")
		for _, hint := range e.Suggestions {
			lines = append(lines, "  • "+hint)
		}
	}

	if verbose && e.Cause != nil {
		lines = append(lines, "", "Error chain:")
		for depth, err := 1, e.Cause; err != nil; depth, err = depth+1, unwrapOne(err) {
			lines = append(lines, fmt.Sprintf("  %d. %s", depth, err))
		}
	}

	return strings.Join(lines, "\n")
}

// unwrapOne steps one level down err's chain. Joined errors are followed
// through their last element.
func unwrapOne(err error) error {
	switch u := err.(type) {
	case interface{ Unwrap() error }:
		return u.Unwrap()
	case interface{ Unwrap() []error }:
		if errs := u.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1]
		}
	}
	return nil
}
