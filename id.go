package tally

import "github.com/xraph/tally/id"

// ID is the identifier type for runs and audit events.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
