package postgres

import (
	"fmt"

	"github.com/alanyoungcy/fxscalper/internal/domain"
)

// listQuery appends the ListOpts filters to base, using timeCol for the
// time range and, when statusCol is set, filtering on opts.Status.
func listQuery(base, timeCol, statusCol string, opts domain.ListOpts) (string, []any) {
	query := base + " WHERE 1=1"
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if opts.Since != nil {
		query += " AND " + timeCol + " >= " + arg(*opts.Since)
	}
	if opts.Until != nil {
		query += " AND " + timeCol + " <= " + arg(*opts.Until)
	}
	if statusCol != "" && opts.Status != "" {
		query += " AND " + statusCol + " = " + arg(string(opts.Status))
	}
	query += " ORDER BY " + timeCol + " DESC"
	if opts.Limit > 0 {
		query += " LIMIT " + arg(opts.Limit)
	}
	if opts.Offset > 0 {
		query += " OFFSET " + arg(opts.Offset)
	}
	return query, args
}
