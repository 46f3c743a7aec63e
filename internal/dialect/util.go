package dialect

import (
	"fmt"
	"strings"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed and a function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(i)
	}
	return strings.Join(placeholders, ", ")
}

// SelectQuery builds "SELECT cols FROM table WHERE w1 = ? AND w2 = ?".
func SelectQuery(d Dialect, table string, cols, where []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(cols, ", "), table, conditions(d, where, 0))
}

// UpdateQuery builds "UPDATE table SET s1 = ? WHERE w1 = ?"; set
// placeholders come first.
func UpdateQuery(d Dialect, table string, set, where []string) string {
	assignments := make([]string, len(set))
	for i, c := range set {
		assignments[i] = fmt.Sprintf("%s = %s", c, d.Placeholder(i))
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, strings.Join(assignments, ", "), conditions(d, where, len(set)))
}

// DeleteQuery builds "DELETE FROM table WHERE w1 = ?".
func DeleteQuery(d Dialect, table string, where []string) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s", table, conditions(d, where, 0))
}

func conditions(d Dialect, where []string, offset int) string {
	parts := make([]string, len(where))
	for i, c := range where {
		parts[i] = fmt.Sprintf("%s = %s", c, d.Placeholder(offset+i))
	}
	return strings.Join(parts, " AND ")
}

func defaultInsert(d Dialect, table string, cols []string) string {
	vals := GeneratePlaceholders(len(cols), d.Placeholder)
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), vals)
}

// storeTables renders the two entity store tables. keyType is a format with
// one %d for the length.
func storeTables(ifNotExists, keyType, textType string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE %s%s (
	entity_kind %s NOT NULL,
	natural_key %s NOT NULL,
	target_id %s NOT NULL,
	attrs %s,
	created_at %s,
	PRIMARY KEY (entity_kind, natural_key)
)`, ifNotExists, EntitiesTable, fmt.Sprintf(keyType, 32), fmt.Sprintf(keyType, 255), fmt.Sprintf(keyType, 36), textType, fmt.Sprintf(keyType, 40)),
		fmt.Sprintf(`CREATE TABLE %s%s (
	entity_kind %s NOT NULL,
	attr_name %s NOT NULL,
	attr_value %s NOT NULL,
	natural_key %s NOT NULL,
	PRIMARY KEY (entity_kind, attr_name, attr_value)
)`, ifNotExists, UniqueKeysTable, fmt.Sprintf(keyType, 32), fmt.Sprintf(keyType, 64), fmt.Sprintf(keyType, 255), fmt.Sprintf(keyType, 255)),
	}
}

func containsAny(err error, needles ...string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, n := range needles {
		if strings.Contains(msg, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
