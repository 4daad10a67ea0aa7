package solver

// status tags a dual coefficient against its box [0, C].
type status uint8

const (
	statusLower status = iota // alpha == 0
	statusUpper               // alpha == C
	statusFree                // 0 < alpha < C
)

func statusOf(alpha, c float64) status {
	switch {
	case alpha >= c:
		return statusUpper
	case alpha <= 0:
		return statusLower
	default:
		return statusFree
	}
}

func (s status) String() string {
	switch s {
	case statusLower:
		return "lower"
	case statusUpper:
		return "upper"
	default:
		return "free"
	}
}

// inUp reports membership in I_up: alpha can still move so that y·alpha grows.
func inUp(y float64, s status) bool {
	if y > 0 {
		return s != statusUpper
	}
	return s != statusLower
}

// inLow reports membership in I_low: alpha can still move so that y·alpha shrinks.
func inLow(y float64, s status) bool {
	if y > 0 {
		return s != statusLower
	}
	return s != statusUpper
}
