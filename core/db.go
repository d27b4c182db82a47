package core

import "strings"

// DBOrdering is a single ORDER BY term, bound from the `ordering` query param.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderClause renders orderings into an ORDER BY clause, dropping any field
// not present in allowed (param name -> column). Never trust user-provided
// field names in SQL.
func OrderClause(ords []DBOrdering, allowed map[string]string) string {
	terms := make([]string, 0, len(ords))
	for _, ord := range ords {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		terms = append(terms, DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	return strings.Join(terms, ", ")
}
