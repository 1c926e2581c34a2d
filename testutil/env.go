// Package testutil holds helpers shared by the package tests: an in-memory
// database, account and order fixtures, a recording notifier and signed
// request helpers.
package testutil

import (
	"os"
	"testing"
)

// RequireTestEnvironment fails the test unless GO_ENV is "test"
func RequireTestEnvironment(t *testing.T) {
	t.Helper()

	if env := os.Getenv("GO_ENV"); env != "test" {
		t.Fatalf("SAFETY CHECK FAILED: tests must run with GO_ENV=test, current GO_ENV=%q", env)
	}
}

// EnsureTestEnvironment sets GO_ENV=test when it is unset and reports whether
// the process may run tests. Meant for TestMain.
func EnsureTestEnvironment() bool {
	switch os.Getenv("GO_ENV") {
	case "":
		return os.Setenv("GO_ENV", "test") == nil
	case "test":
		return true
	}
	return false
}
