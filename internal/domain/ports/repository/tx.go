package repository

// Tx is a backend-specific transaction handle (pgx.Tx for Postgres).
// Repositories must accept a nil Tx and fall back to their pool.
type Tx interface{}

var NoTX interface{}
