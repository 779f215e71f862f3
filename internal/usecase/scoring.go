package usecase

const (
	pointsExact   = 3
	pointsOutcome = 1
	pointsMiss    = 0
)

// Score awards points for one prediction against the final result.
// Exact score: 3. Correct outcome (win/draw/loss) with wrong score: 1.
// Anything else: 0. Pure and deterministic; also used to re-derive expected
// values in the post-commit verification step.
func Score(predHome, predAway, actualHome, actualAway int) int {
	if predHome == actualHome && predAway == actualAway {
		return pointsExact
	}
	if sign(predHome-predAway) == sign(actualHome-actualAway) {
		return pointsOutcome
	}
	return pointsMiss
}

func sign(diff int) int {
	switch {
	case diff > 0:
		return 1
	case diff < 0:
		return -1
	default:
		return 0
	}
}
