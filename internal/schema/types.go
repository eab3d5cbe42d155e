package schema

// Schema is a decomposition: the normalized tables with their keys and
// inferred references
type Schema struct {
	Tables []Table
}

// Table represents one decomposed relation
type Table struct {
	Name          string
	Columns       []Column
	Relations     []Relation
	PrimaryKey    []string
	CandidateKeys [][]string
	SuperKeys     [][]string
	Rows          [][]string
}

// Column represents a table column
type Column struct {
	Name     string
	Type     string
	Prime    bool // member of some candidate key
	IsUnique bool // a candidate key on its own
}

// Relation represents an inferred foreign key. It is name-based and never
// checked against the data.
type Relation struct {
	SourceColumn string
	TargetTable  string
	TargetColumn string
	Rule         string // name-matching rule that produced the link
	Cardinality  string // N:1
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// IsPrimary reports whether column is part of the primary key.
func (t *Table) IsPrimary(column string) bool {
	for _, pk := range t.PrimaryKey {
		if pk == column {
			return true
		}
	}
	return false
}

// Reference returns the relation whose source is column, if any.
func (t *Table) Reference(column string) (Relation, bool) {
	for _, r := range t.Relations {
		if r.SourceColumn == column {
			return r, true
		}
	}
	return Relation{}, false
}

// Table looks a table up by name.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}
