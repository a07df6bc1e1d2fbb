package handlers

import (
	"testing"

	"go.uber.org/goleak"
)

// Handlers never start goroutines of their own; lock waiters and timeouts
// must all be gone when a request returns.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
