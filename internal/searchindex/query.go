package searchindex

import (
	"fmt"
	"strings"
)

// Operator is one of the six search operators defined in spec §4.4.
type Operator string

const (
	OpContains   Operator = "contains"
	OpEquals     Operator = "equals"
	OpStartsWith Operator = "startsWith"
	OpEndsWith   Operator = "endsWith"
	OpNot        Operator = "not"
	OpRegex      Operator = "regex"
)

// SearchField is one (column, value, operator) leaf of a search call; all
// fields are ANDed together.
type SearchField struct {
	Column   string
	Value    string
	Operator Operator
}

// RowRef is a (row_index, position) result pair.
type RowRef struct {
	RowIndex int64
	Position int64
}

// resolveColumnIndex maps a filter column name to its col0..col5 slot using
// the file's searchable-column order; names beyond index 5 or absent from
// searchable columns are ignored, per spec.
func resolveColumnIndex(searchable []string, name string) (int, bool) {
	for i, c := range searchable {
		if i > 5 {
			break
		}
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return -1, false
}

func colExpr(i int) string { return fmt.Sprintf("col%d", i) }

// buildContainsClause builds the simple col LIKE %v% WHERE fragment used by
// count/page filters (treated as substring matches).
func buildContainsClause(searchable []string, filters map[string]string) (string, []interface{}) {
	var clauses []string
	var args []interface{}
	for name, value := range filters {
		idx, ok := resolveColumnIndex(searchable, name)
		if !ok {
			continue
		}
		clauses = append(clauses, colExpr(idx)+" LIKE ?")
		args = append(args, "%"+strings.ToLower(value)+"%")
	}
	return strings.Join(clauses, " AND "), args
}

// buildOperatorClause renders one field's operator into a SQL fragment and
// its bind argument(s), per the exact operator-to-SQL-shape rules in §4.4.
func buildOperatorClause(colIdx int, value string, op Operator) (string, []interface{}) {
	col := colExpr(colIdx)
	v := strings.ToLower(value)
	switch op {
	case OpContains:
		return col + " LIKE ?", []interface{}{"%" + v + "%"}
	case OpEquals:
		return col + " = ?", []interface{}{v}
	case OpStartsWith:
		return col + " LIKE ?", []interface{}{v + "%"}
	case OpEndsWith:
		return col + " LIKE ?", []interface{}{"%" + v}
	case OpNot:
		return "(" + col + " IS NULL OR " + col + " NOT LIKE ?)", []interface{}{"%" + v + "%"}
	case OpRegex:
		pattern := regexToLike(v)
		return col + " LIKE ?", []interface{}{pattern}
	default:
		return col + " LIKE ?", []interface{}{"%" + v + "%"}
	}
}

// regexToLike applies the lossy regex-to-LIKE translation described in
// spec §4.4: lowercase, ".*" -> "%", "." -> "_", strip anchors, and wrap in
// wildcards if none remain.
func regexToLike(v string) string {
	v = strings.TrimPrefix(v, "^")
	v = strings.TrimSuffix(v, "$")
	v = strings.ReplaceAll(v, ".*", "%")
	v = strings.ReplaceAll(v, ".", "_")
	if !strings.ContainsAny(v, "%_") {
		v = "%" + v + "%"
	}
	return v
}

// Count returns the number of search rows for fileID matching filters
// (plain substring semantics, as used by page's WHERE clause).
func (idx *Index) Count(fileID string, searchable []string, filters map[string]string) (int64, error) {
	clause, args := buildContainsClause(searchable, filters)
	query := "SELECT COUNT(*) FROM search WHERE file_id = ?"
	allArgs := append([]interface{}{fileID}, args...)
	if clause != "" {
		query += " AND " + clause
	}
	var count int64
	if err := idx.db.QueryRow(query, allArgs...).Scan(&count); err != nil {
		return 0, fmt.Errorf("searchindex: count: %w", err)
	}
	return count, nil
}

// Page returns one page of (row_index, position) pairs ordered by
// row_index, along with the total matching count.
func (idx *Index) Page(fileID string, searchable []string, page, limit int, filters map[string]string) ([]RowRef, int64, error) {
	total, err := idx.Count(fileID, searchable, filters)
	if err != nil {
		return nil, 0, err
	}

	clause, args := buildContainsClause(searchable, filters)
	query := "SELECT row_index, position FROM search WHERE file_id = ?"
	allArgs := append([]interface{}{fileID}, args...)
	if clause != "" {
		query += " AND " + clause
	}
	query += " ORDER BY row_index LIMIT ? OFFSET ?"
	allArgs = append(allArgs, limit, (page-1)*limit)

	rows, err := idx.db.Query(query, allArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("searchindex: page: %w", err)
	}
	defer rows.Close()

	var out []RowRef
	for rows.Next() {
		var r RowRef
		if err := rows.Scan(&r.RowIndex, &r.Position); err != nil {
			return nil, 0, fmt.Errorf("searchindex: scan page row: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Search returns one page of (row_index, position) pairs matching fields
// (each rendered per its operator and ANDed), along with the total count.
func (idx *Index) Search(fileID string, searchable []string, fields []SearchField, page, limit int) ([]RowRef, int64, error) {
	var clauses []string
	var args []interface{}
	for _, f := range fields {
		idxCol, ok := resolveColumnIndex(searchable, f.Column)
		if !ok {
			continue
		}
		clause, clauseArgs := buildOperatorClause(idxCol, f.Value, f.Operator)
		clauses = append(clauses, clause)
		args = append(args, clauseArgs...)
	}

	whereExtra := ""
	if len(clauses) > 0 {
		whereExtra = " AND " + strings.Join(clauses, " AND ")
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM search WHERE file_id = ?" + whereExtra
	countArgs := append([]interface{}{fileID}, args...)
	if err := idx.db.QueryRow(countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("searchindex: search count: %w", err)
	}

	pageQuery := "SELECT row_index, position FROM search WHERE file_id = ?" + whereExtra +
		" ORDER BY row_index LIMIT ? OFFSET ?"
	pageArgs := append(append([]interface{}{fileID}, args...), limit, (page-1)*limit)

	rows, err := idx.db.Query(pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("searchindex: search: %w", err)
	}
	defer rows.Close()

	var out []RowRef
	for rows.Next() {
		var r RowRef
		if err := rows.Scan(&r.RowIndex, &r.Position); err != nil {
			return nil, 0, fmt.Errorf("searchindex: scan search row: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
