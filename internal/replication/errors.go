package replication

import "errors"

// ErrNotPrimary is returned by Set/Delete/BulkSet when the engine's current
// role is secondary. Secondaries are read-only for client traffic; they only
// accept writes through ApplyReplicate* (from their primary) or cluster
// promotion.
var ErrNotPrimary = errors.New("replication: not primary")
