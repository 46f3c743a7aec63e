package dialect

// Dialect abstracts the database-specific SQL the entity store needs.
type Dialect interface {
	Name() string

	// Schema
	CreateTableQueries() []string
	IsAlreadyExists(err error) bool // CREATE TABLE on an existing table

	// Query Generation
	InsertQuery(table string, cols []string) string
	TruncateQuery(table string) string
	Placeholder(index int) string // Returns ?, $1, @p1, :1 (index is 0-based)
}

// Table names used by the entity store.
const (
	EntitiesTable   = "pump_entities"
	UniqueKeysTable = "pump_unique_keys"
)
