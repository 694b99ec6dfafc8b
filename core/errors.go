package core

import "errors"

// ErrNotFound is returned by State and ledger lookups for keys that have
// never been written.
var ErrNotFound = errors.New("core: not found")
