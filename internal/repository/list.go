package repository

import "strings"

// Pagination defaults for listings.
const (
	DefaultPerPage = 6
	MaxPerPage     = 100
	// MaxPage keeps the row offset far below the integer limits.
	MaxPage = 1_000_000
)

// ListQuery selects one page of a listing. Page is 1-based. Search is a
// free-text filter; Role only applies to users.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Role    string
}

// Normalize clamps the paging values into their valid ranges.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q ListQuery) offset() uint64 { return uint64((q.Page - 1) * q.PerPage) }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns s into a LIKE pattern matching s anywhere.
func containsPattern(s string) string { return "%" + likeEscaper.Replace(s) + "%" }
