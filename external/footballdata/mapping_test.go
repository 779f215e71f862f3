package footballdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

func TestMapStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code  string
		want  fixture.MatchState
		known bool
	}{
		{"NS", fixture.StateNotStarted, true},
		{"1H", fixture.StateFirstHalf, true},
		{"HT", fixture.StateHalftime, true},
		{"2H", fixture.StateSecondHalf, true},
		{"ET", fixture.StateExtraTime, true},
		{"PEN_LIVE", fixture.StatePenalties, true},
		{"FT", fixture.StateFinished, true},
		{"AET", fixture.StateFinishedAET, true},
		{"FT_PEN", fixture.StateFinishedPen, true},
		{"POSTP", fixture.StatePostponed, true},
		{"CANCL", fixture.StateCancelled, true},
		{"SUSP", fixture.StateAbandoned, true},
		{"ft", fixture.StateFinished, true},
		{"  FT  ", fixture.StateFinished, true},
		{"WEATHER_DELAY", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		state, known := MapStatusCode(tc.code)
		assert.Equal(t, tc.known, known, "code %q", tc.code)
		if tc.known {
			assert.Equal(t, tc.want, state, "code %q", tc.code)
		}
	}
}
