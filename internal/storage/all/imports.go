// Package all wires every built-in ledger backend into the storage factory.
//
// It exists purely for side effects: a blank import runs the init functions
// of each backend, which register their factories with storage.Register.
// After importing it, these ledger kinds are available:
//
//   - "postgres" (phaeton/internal/storage/postgres)
//   - "sqlite"   (phaeton/internal/storage/sqlite)
//
// A binary that needs only one backend can import that package directly
// instead.
package all

import (
	_ "phaeton/internal/storage/postgres"
	_ "phaeton/internal/storage/sqlite"
)
