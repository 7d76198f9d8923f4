// Package audit persists invocation records: one append-only row per
// processed query with its attempts, verdicts and outcome. Recorders are
// best-effort collaborators of the pipeline; they never influence the
// decision flow.
package audit
