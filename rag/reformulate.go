package rag

import "strings"

// IdentityReformulator re-issues the identical query on every attempt.
// This is the default policy: the reference system documents iterative
// retrieval but no reformulation algorithm, so broadening happens through
// top-k widening instead (see TopKConfig.WidenBy).
type IdentityReformulator struct{}

// Reformulate returns the original query text unchanged.
func (IdentityReformulator) Reformulate(query Query, attempt int, last *QualityVerdict) string {
	return query.Text
}

// ExpandingReformulator appends expansion terms to the query on retries,
// one extra term per failed attempt.
type ExpandingReformulator struct {
	// Terms are appended cumulatively: attempt 2 adds Terms[0], attempt 3
	// adds Terms[0] and Terms[1], and so on.
	Terms []string
}

// Reformulate returns the query text, expanded on attempts after the first.
func (r ExpandingReformulator) Reformulate(query Query, attempt int, last *QualityVerdict) string {
	if attempt <= 1 || len(r.Terms) == 0 {
		return query.Text
	}

	n := attempt - 1
	if n > len(r.Terms) {
		n = len(r.Terms)
	}
	return query.Text + " " + strings.Join(r.Terms[:n], " ")
}
