package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/stockrecon/internal/domain"
)

const defaultRunLimit = 50

// buildRunFilterClause constructs the WHERE additions for sync run listings
func buildRunFilterClause(filter domain.RunFilter, alias string, startIndex int) (string, []interface{}) {
	alias = normalizeAlias(alias)

	var (
		clauses []string
		args    []interface{}
	)
	idx := startIndex

	tenants := make([]string, 0, len(filter.Tenants))
	for _, t := range filter.Tenants {
		if t = strings.TrimSpace(t); t != "" {
			tenants = append(tenants, t)
		}
	}
	if len(tenants) > 0 {
		placeholders := make([]string, len(tenants))
		for i, t := range tenants {
			placeholders[i] = fmt.Sprintf("$%d", idx)
			args = append(args, t)
			idx++
		}
		clauses = append(clauses, fmt.Sprintf("%stenant IN (%s)", alias, strings.Join(placeholders, ",")))
	}

	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("%sstatus = $%d", alias, idx))
		args = append(args, filter.Status)
		idx++
	}

	if filter.Quality != "" {
		clauses = append(clauses, fmt.Sprintf("%squality = $%d", alias, idx))
		args = append(args, filter.Quality)
		idx++
	}

	if !filter.Since.IsZero() {
		clauses = append(clauses, fmt.Sprintf("%ssnapshot_date >= $%d", alias, idx))
		args = append(args, filter.Since)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

func runLimit(limit int) int {
	if limit <= 0 {
		return defaultRunLimit
	}
	return limit
}
