package testsupport

import (
	"testing"

	"casebook/internal/config"
	"casebook/internal/projectstore"
)

// MustOpenStore opens a projectstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *projectstore.Store {
	t.Helper()

	store, err := projectstore.Open(cfg)
	if err != nil {
		t.Fatalf("projectstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
