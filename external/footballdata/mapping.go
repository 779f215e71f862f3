package footballdata

import (
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

// statusCodeTable is the only place provider status codes are understood.
// Everything past this boundary works with the internal state enum.
var statusCodeTable = map[string]fixture.MatchState{
	"NS":        fixture.StateNotStarted,
	"TBA":       fixture.StateNotStarted,
	"1H":        fixture.StateFirstHalf,
	"INPLAY_1H": fixture.StateFirstHalf,
	"HT":        fixture.StateHalftime,
	"BREAK":     fixture.StateHalftime,
	"2H":        fixture.StateSecondHalf,
	"INPLAY_2H": fixture.StateSecondHalf,
	"ET":        fixture.StateExtraTime,
	"INPLAY_ET": fixture.StateExtraTime,
	"PEN_LIVE":  fixture.StatePenalties,
	"FT":        fixture.StateFinished,
	"AET":       fixture.StateFinishedAET,
	"FT_PEN":    fixture.StateFinishedPen,
	"POSTP":     fixture.StatePostponed,
	"CANCL":     fixture.StateCancelled,
	"ABAN":      fixture.StateAbandoned,
	"SUSP":      fixture.StateAbandoned,
}

// MapStatusCode translates a provider status code into the internal match
// state. The second return is false for codes the table does not know;
// callers must then keep whatever state they already have.
func MapStatusCode(code string) (fixture.MatchState, bool) {
	state, ok := statusCodeTable[strings.ToUpper(strings.TrimSpace(code))]
	return state, ok
}
