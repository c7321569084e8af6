package typesense

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/issuesync/internal/core/domain"
)

// staleFilter renders q as a filter_by expression.
func staleFilter(q domain.StaleQuery) string {
	var clauses []string
	if q.State != "" {
		clauses = append(clauses, fmt.Sprintf("state:=%s", escape(string(q.State))))
	}
	if !q.UpdatedBefore.IsZero() {
		clauses = append(clauses, fmt.Sprintf("updated_at:<%d", q.UpdatedBefore.Unix()))
	}
	return strings.Join(clauses, " && ")
}

// escape wraps values containing filter syntax in backticks.
func escape(v string) string {
	if strings.ContainsAny(v, " ,:&|()[]`") {
		return "`" + strings.ReplaceAll(v, "`", "") + "`"
	}
	return v
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
