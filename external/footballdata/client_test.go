package footballdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/prediction-league/internal/domain/fixture"
)

func TestFetchFixture_MapsKnownStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/fixtures/9001") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_token") != "secret" {
			t.Errorf("missing api token on request")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":9001,"status_code":"2H","starting_at":"2026-03-07T15:00:00Z","venue":{"name":"Arena"},"scores":{"home":2,"away":1}}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "secret"})

	snap, err := client.FetchFixture(context.Background(), 9001)
	if err != nil {
		t.Fatalf("FetchFixture: %v", err)
	}
	if snap.State != fixture.StateSecondHalf || !snap.StateKnown {
		t.Fatalf("state=%s known=%v, want SECOND_HALF known", snap.State, snap.StateKnown)
	}
	if snap.HomeScore == nil || *snap.HomeScore != 2 || snap.AwayScore == nil || *snap.AwayScore != 1 {
		t.Fatalf("scores=%v/%v, want 2/1", snap.HomeScore, snap.AwayScore)
	}
	if snap.Venue != "Arena" {
		t.Fatalf("venue=%q, want Arena", snap.Venue)
	}
	if snap.KickoffAt.IsZero() {
		t.Fatalf("kickoff not parsed")
	}
}

func TestFetchFixture_UnknownStatusKeepsStateUnknown(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":42,"status_code":"WEATHER_DELAY","scores":{}}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "secret"})

	snap, err := client.FetchFixture(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchFixture: %v", err)
	}
	if snap.StateKnown {
		t.Fatalf("expected unknown status code to report StateKnown=false")
	}
	if snap.RawStatus != "WEATHER_DELAY" {
		t.Fatalf("raw status=%q, want WEATHER_DELAY", snap.RawStatus)
	}
}

func TestFetchFixture_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":7,"status_code":"FT","scores":{"home":0,"away":0}}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "secret", MaxRetries: 2})

	snap, err := client.FetchFixture(context.Background(), 7)
	if err != nil {
		t.Fatalf("FetchFixture after retry: %v", err)
	}
	if snap.State != fixture.StateFinished {
		t.Fatalf("state=%s, want FINISHED", snap.State)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls=%d, want 2", calls.Load())
	}
}

func TestFetchFixture_NonRetryableStatusFailsFast(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Token: "secret", MaxRetries: 3})

	if _, err := client.FetchFixture(context.Background(), 7); err == nil {
		t.Fatalf("expected error for 401 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d, want 1 (no retries on auth failure)", calls.Load())
	}
}

func TestMapStatusCode_Table(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code  string
		state fixture.MatchState
		known bool
	}{
		{"NS", fixture.StateNotStarted, true},
		{"1H", fixture.StateFirstHalf, true},
		{"ht", fixture.StateHalftime, true},
		{" FT ", fixture.StateFinished, true},
		{"AET", fixture.StateFinishedAET, true},
		{"FT_PEN", fixture.StateFinishedPen, true},
		{"POSTP", fixture.StatePostponed, true},
		{"SUSP", fixture.StateAbandoned, true},
		{"MYSTERY", "", false},
	}
	for _, tc := range cases {
		state, known := MapStatusCode(tc.code)
		if known != tc.known {
			t.Fatalf("MapStatusCode(%q) known=%v, want %v", tc.code, known, tc.known)
		}
		if known && state != tc.state {
			t.Fatalf("MapStatusCode(%q)=%s, want %s", tc.code, state, tc.state)
		}
	}
}
