package storage

import "strings"

// selectQuery builds a parameterized SELECT statement from composable
// fragments. Table and column names are supplied only by this package;
// every client-influenced value is bound positionally, never spliced into
// the statement text.
type selectQuery struct {
	table   string
	columns []string
	preds   []string
	args    []any
	orderBy string
	limit   int
}

func newSelect(table string, columns ...string) *selectQuery {
	return &selectQuery{table: table, columns: columns}
}

// Where adds a predicate fragment with its bound values. Multiple predicates
// are ANDed together.
func (q *selectQuery) Where(clause string, args ...any) *selectQuery {
	q.preds = append(q.preds, clause)
	q.args = append(q.args, args...)
	return q
}

// Search adds a substring predicate ORed across the given columns. The term
// is bound as %term% with LIKE wildcards escaped, so input can only match
// literally. SQLite LIKE is case-insensitive for ASCII.
func (q *selectQuery) Search(term string, columns ...string) *selectQuery {
	if term == "" || len(columns) == 0 {
		return q
	}
	pattern := "%" + escapeLike(term) + "%"
	frags := make([]string, len(columns))
	for i, col := range columns {
		frags[i] = col + ` LIKE ? ESCAPE '\'`
		q.args = append(q.args, pattern)
	}
	q.preds = append(q.preds, "("+strings.Join(frags, " OR ")+")")
	return q
}

func (q *selectQuery) OrderBy(column string, descending bool) *selectQuery {
	q.orderBy = column + " ASC"
	if descending {
		q.orderBy = column + " DESC"
	}
	return q
}

// Limit caps the result count. Applied in SQL after filtering and ordering;
// non-positive values mean no limit.
func (q *selectQuery) Limit(n int) *selectQuery {
	q.limit = n
	return q
}

// SQL renders the statement and its bound arguments.
func (q *selectQuery) SQL() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.table)

	args := append([]any(nil), q.args...)

	if len(q.preds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.preds, " AND "))
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}
	if q.limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.limit)
	}
	return b.String(), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// sortSpec maps an API sort key to its column. Recognized keys sort
// descending; anything else falls back to the default column ascending.
type sortSpec struct {
	keys       map[string]string
	defaultCol string
}

func (s sortSpec) resolve(sortBy string) (column string, descending bool) {
	if col, ok := s.keys[sortBy]; ok {
		return col, true
	}
	return s.defaultCol, false
}
