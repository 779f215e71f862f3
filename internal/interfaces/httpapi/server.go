package httpapi

import (
	"net/http"

	"github.com/riskibarqy/prediction-league/internal/platform/logging"
)

func NewRouter(handler *Handler, logger *logging.Logger, internalJobToken string) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler)
	registerPublicRoutes(mux, handler)
	registerInternalRoutes(mux, handler, internalJobToken)

	return RequestTracing(RequestLogging(logger, recoverPanic(logger, mux)))
}

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/fixtures/{fixtureID}/predictions", handler.ListFixturePredictions)
	mux.HandleFunc("GET /v1/groups/{groupID}/standings", handler.GroupStandings)
}

func registerInternalRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	internal := func(h http.HandlerFunc) http.Handler {
		return RequireInternalJobToken(internalJobToken, h)
	}

	mux.Handle("GET /v1/internal/engine/status", internal(handler.EngineStatus))
	mux.Handle("POST /v1/internal/engine/start", internal(handler.EngineStart))
	mux.Handle("POST /v1/internal/engine/stop", internal(handler.EngineStop))
	mux.Handle("POST /v1/internal/engine/run-cycle", internal(handler.RunCycle))
	mux.Handle("POST /v1/internal/fixtures/{fixtureID}/emergency-sync", internal(handler.EmergencySyncFixture))
	mux.Handle("POST /v1/internal/bonuses/apply", internal(handler.ApplyWeeklyBonuses))
	mux.Handle("POST /v1/internal/rivalries/assign", internal(handler.AssignRivalries))
	mux.Handle("POST /v1/internal/rivalries/outcomes", internal(handler.ResolveRivalryOutcomes))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
