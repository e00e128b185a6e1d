package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// listQuery accumulates WHERE conditions for a paginated SELECT. Conditions
// use "?" for their single argument; it is rewritten to the next placeholder.
type listQuery struct {
	selectSQL string
	countSQL  string
	orderBy   string
	where     []string
	args      []any
}

func (q *listQuery) filter(cond string, arg any) {
	q.args = append(q.args, arg)
	q.where = append(q.where, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(q.args))))
}

func (q *listQuery) whereSQL() string {
	if len(q.where) == 0 {
		return "TRUE"
	}
	return strings.Join(q.where, " AND ")
}

func runList[T any](ctx context.Context, db dbtx, q listQuery, page Page, scan func(pgx.Row) (T, error)) (ListResult[T], error) {
	whereSQL := q.whereSQL()

	var total int
	if err := db.QueryRow(ctx, fmt.Sprintf("%s WHERE %s", q.countSQL, whereSQL), q.args...).Scan(&total); err != nil {
		return ListResult[T]{}, fmt.Errorf("count: %w", err)
	}

	result := ListResult[T]{Items: []T{}, Total: total}
	if total == 0 || page.Limit <= 0 {
		return result, nil
	}

	args := append(append([]any{}, q.args...), page.Limit, page.Offset())
	query := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d",
		q.selectSQL, whereSQL, q.orderBy, len(args)-1, len(args))

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return ListResult[T]{}, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, scanErr := scan(rows)
		if scanErr != nil {
			return ListResult[T]{}, fmt.Errorf("scan: %w", scanErr)
		}
		result.Items = append(result.Items, item)
	}
	if err := rows.Err(); err != nil {
		return ListResult[T]{}, fmt.Errorf("iterate: %w", err)
	}

	return result, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
