// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Fatal errors are built with Annotate into an ActionableError that may link
// a catalog issue. The catalog holds Markdown guidance for each fatal
// condition, rendered for the terminal with glamour.
package issue
