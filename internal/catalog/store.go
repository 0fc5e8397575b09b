package catalog

// Store defines the catalog surface the agent and status server depend
// on. Consumers should take this interface rather than *DB so tests can
// substitute in-memory fakes.
type Store interface {
	Insert(r Row) error
	Recent(limit int) ([]Row, error)
	BySHA256(sha string) ([]Row, error)
	CountByRule(runID string) (map[string]int64, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
