// Package generate produces grounded answers from sufficient evidence.
// Generators answer strictly from the supplied passages and refuse when
// the passages cannot support an answer; the Validator applies a second
// quality gate to the generated answer itself.
package generate
