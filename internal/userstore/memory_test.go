package userstore

import "testing"

func TestMemoryStore_Suite(t *testing.T) {
	runStoreSuite(t, func() Store {
		return NewMemoryStore()
	})
}
