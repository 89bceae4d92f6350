// Package testing is blank-imported by test files that exercise
// runtime entry points, so the test-mode flag is set before any
// package init can read it.
package testing

import (
	_ "github.com/Order-My-Saddle/saddle-oms/internal/testing/guard"
)
