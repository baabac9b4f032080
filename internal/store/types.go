package store

// Record is one result row. Columns keeps the order reported by the
// driver; Values[i] belongs to Columns[i].
type Record struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column and whether it exists.
// Duplicate column names resolve to the first occurrence.
func (r Record) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}
