package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/prediction-league/internal/platform/logging"
	"github.com/riskibarqy/prediction-league/internal/usecase"
)

const maxRequestBodySize = 1 << 20

type Handler struct {
	scheduler       *usecase.SchedulerService
	lifecycle       *usecase.LifecycleService
	bonuses         *usecase.BonusService
	rivalries       *usecase.RivalryService
	standings       *usecase.StandingsService
	predictionQuery *usecase.PredictionQueryService
	logger          *logging.Logger
	validator       *validator.Validate
}

func NewHandler(
	scheduler *usecase.SchedulerService,
	lifecycle *usecase.LifecycleService,
	bonuses *usecase.BonusService,
	rivalries *usecase.RivalryService,
	standings *usecase.StandingsService,
	predictionQuery *usecase.PredictionQueryService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		scheduler:       scheduler,
		lifecycle:       lifecycle,
		bonuses:         bonuses,
		rivalries:       rivalries,
		standings:       standings,
		predictionQuery: predictionQuery,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) EngineStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EngineStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.scheduler.Status(ctx))
}

// EngineStart is also the manual restart path after a breaker halt.
func (h *Handler) EngineStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EngineStart")
	defer span.End()

	if err := h.scheduler.Start(); err != nil {
		h.logger.ErrorContext(ctx, "engine start failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.scheduler.Status(ctx))
}

func (h *Handler) EngineStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EngineStop")
	defer span.End()

	if err := h.scheduler.Stop(); err != nil {
		h.logger.ErrorContext(ctx, "engine stop failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, h.scheduler.Status(ctx))
}

type runCycleRequest struct {
	WithProviderCheck bool `json:"with_provider_check"`
}

func (h *Handler) RunCycle(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunCycle")
	defer span.End()

	var req runCycleRequest
	if err := decodeOptionalJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.scheduler.RunCycleOnce(ctx, req.WithProviderCheck)
	if err != nil {
		h.logger.WarnContext(ctx, "manual cycle failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) EmergencySyncFixture(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EmergencySyncFixture")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	if fixtureID == "" {
		writeError(ctx, w, fmt.Errorf("%w: fixture id is required", usecase.ErrInvalidInput))
		return
	}

	processed, err := h.lifecycle.EmergencySync(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "emergency sync failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]any{
		"fixture_id": fixtureID,
		"processed":  processed,
	})
}

type groupWeekRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Season  string `json:"season" validate:"required"`
	Week    int    `json:"week" validate:"required,min=1"`
}

func (h *Handler) ApplyWeeklyBonuses(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApplyWeeklyBonuses")
	defer span.End()

	req, err := h.decodeGroupWeekRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := h.bonuses.ApplyWeeklyBonuses(ctx, req.Season, req.Week, req.GroupID)
	if err != nil {
		h.logger.WarnContext(ctx, "apply weekly bonuses failed",
			"group_id", req.GroupID, "season", req.Season, "week", req.Week, "error", err)
		writeError(ctx, w, err)
		return
	}
	h.standings.InvalidateGroup(ctx, req.GroupID)
	writeSuccess(ctx, w, http.StatusOK, summary)
}

func (h *Handler) AssignRivalries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AssignRivalries")
	defer span.End()

	req, err := h.decodeGroupWeekRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.rivalries.AssignRivalries(ctx, req.GroupID, req.Season, req.Week)
	if err != nil {
		h.logger.WarnContext(ctx, "assign rivalries failed",
			"group_id", req.GroupID, "season", req.Season, "week", req.Week, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) ResolveRivalryOutcomes(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveRivalryOutcomes")
	defer span.End()

	req, err := h.decodeGroupWeekRequest(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.rivalries.CheckRivalryOutcomes(ctx, req.GroupID, req.Season, req.Week)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve rivalry outcomes failed",
			"group_id", req.GroupID, "season", req.Season, "week", req.Week, "error", err)
		writeError(ctx, w, err)
		return
	}
	// Winner bonuses land in the season totals, so cached standings are stale.
	h.standings.InvalidateGroup(ctx, req.GroupID)
	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) GroupStandings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GroupStandings")
	defer span.End()

	groupID := strings.TrimSpace(r.PathValue("groupID"))
	season := strings.TrimSpace(r.URL.Query().Get("season"))
	if groupID == "" || season == "" {
		writeError(ctx, w, fmt.Errorf("%w: group id and season are required", usecase.ErrInvalidInput))
		return
	}

	rows, err := h.standings.GroupSeasonStandings(ctx, groupID, season)
	if err != nil {
		h.logger.WarnContext(ctx, "group standings failed", "group_id", groupID, "season", season, "error", err)
		writeError(ctx, w, err)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, rows)
}

type predictionDTO struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	FixtureID     string     `json:"fixtureId"`
	HomeScore     int        `json:"homeScore"`
	AwayScore     int        `json:"awayScore"`
	State         string     `json:"state"`
	Points        *int       `json:"points,omitempty"`
	BonusType     string     `json:"bonusType,omitempty"`
	BonusPoints   int        `json:"bonusPoints,omitempty"`
	IsRivalryWeek bool       `json:"isRivalryWeek"`
	ProcessedAt   *time.Time `json:"processedAt,omitempty"`
}

type fixturePredictionsDTO struct {
	FixtureID   string          `json:"fixtureId"`
	Visible     bool            `json:"visible"`
	Reason      string          `json:"reason"`
	Predictions []predictionDTO `json:"predictions"`
}

func (h *Handler) ListFixturePredictions(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListFixturePredictions")
	defer span.End()

	fixtureID := strings.TrimSpace(r.PathValue("fixtureID"))
	result, err := h.predictionQuery.ListForFixture(ctx, fixtureID)
	if err != nil {
		h.logger.WarnContext(ctx, "list fixture predictions failed", "fixture_id", fixtureID, "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]predictionDTO, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		items = append(items, predictionDTO{
			ID:            p.ID,
			UserID:        p.UserID,
			FixtureID:     p.FixtureID,
			HomeScore:     p.PredHome,
			AwayScore:     p.PredAway,
			State:         string(p.State),
			Points:        p.Points,
			BonusType:     string(p.BonusType),
			BonusPoints:   p.BonusPoints,
			IsRivalryWeek: p.IsRivalryWeek,
			ProcessedAt:   p.ProcessedAt,
		})
	}

	writeSuccess(ctx, w, http.StatusOK, fixturePredictionsDTO{
		FixtureID:   result.FixtureID,
		Visible:     result.Visible,
		Reason:      result.Reason,
		Predictions: items,
	})
}

func (h *Handler) decodeGroupWeekRequest(r *http.Request) (groupWeekRequest, error) {
	var req groupWeekRequest
	if err := decodeJSONBody(r, &req); err != nil {
		return groupWeekRequest{}, err
	}
	if err := h.validator.Struct(req); err != nil {
		return groupWeekRequest{}, fmt.Errorf("%w: %s", usecase.ErrInvalidInput, err.Error())
	}
	return req, nil
}

func decodeJSONBody(r *http.Request, target any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return fmt.Errorf("%w: read request body", usecase.ErrInvalidInput)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fmt.Errorf("%w: request body is required", usecase.ErrInvalidInput)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: malformed JSON body", usecase.ErrInvalidInput)
	}
	return nil
}

// decodeOptionalJSONBody treats an empty body as the zero request.
func decodeOptionalJSONBody(r *http.Request, target any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return fmt.Errorf("%w: read request body", usecase.ErrInvalidInput)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("%w: malformed JSON body", usecase.ErrInvalidInput)
	}
	return nil
}
