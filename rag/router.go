package rag

// Decision is the loop router's verdict on what the loop does next.
type Decision int

const (
	// Continue - run another retrieval+evaluation iteration.
	Continue Decision = iota

	// StopSufficient - evidence is sufficient, hand off to generation.
	StopSufficient

	// StopExhausted - the attempt budget is spent without sufficiency.
	StopExhausted
)

// String returns the string representation of a Decision.
func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case StopSufficient:
		return "stop_sufficient"
	case StopExhausted:
		return "stop_exhausted"
	default:
		return "unknown"
	}
}

// Route is the pure routing function consulted after each loop iteration.
// Sufficiency wins over the budget check, so a sufficient verdict on the
// final allowed attempt still stops sufficient.
func Route(sufficient bool, attempt, maxAttempts int) Decision {
	if sufficient {
		return StopSufficient
	}
	if attempt >= maxAttempts {
		return StopExhausted
	}
	return Continue
}

// Router binds Route to a validated attempt budget.
type Router struct {
	maxAttempts int
}

// NewRouter creates a Router. Fails with a *ConfigurationError when
// maxAttempts is not a positive integer.
func NewRouter(maxAttempts int) (*Router, error) {
	if maxAttempts < 1 {
		return nil, &ConfigurationError{
			Field:  "max_attempts",
			Reason: "router requires a positive attempt budget",
		}
	}
	return &Router{maxAttempts: maxAttempts}, nil
}

// Route applies the routing rules against the configured budget.
func (r *Router) Route(sufficient bool, attempt int) Decision {
	return Route(sufficient, attempt, r.maxAttempts)
}

// MaxAttempts returns the configured attempt budget.
func (r *Router) MaxAttempts() int {
	return r.maxAttempts
}
