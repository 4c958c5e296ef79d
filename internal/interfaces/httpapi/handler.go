package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/riskibarqy/sportsync/internal/domain/audit"
	"github.com/riskibarqy/sportsync/internal/domain/game"
	"github.com/riskibarqy/sportsync/internal/domain/mapping"
	"github.com/riskibarqy/sportsync/internal/domain/player"
	"github.com/riskibarqy/sportsync/internal/domain/review"
	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/domain/syncjob"
	"github.com/riskibarqy/sportsync/internal/platform/logging"
	"github.com/riskibarqy/sportsync/internal/usecase"
)

type Handler struct {
	gameMatcher    *usecase.GameMatcherService
	playerResolver *usecase.PlayerResolverService
	reviewService  *usecase.ReviewService
	syncStatus     *usecase.SyncStatusService
	auditService   *usecase.AuditService
	logger         *logging.Logger
	validator      *validator.Validate

	// Set via WithJobRunner; internal job routes report 503 when absent.
	orchestrator   *usecase.SyncOrchestratorService
	reconciliation *usecase.ReconciliationService
}

func NewHandler(
	gameMatcher *usecase.GameMatcherService,
	playerResolver *usecase.PlayerResolverService,
	reviewService *usecase.ReviewService,
	syncStatus *usecase.SyncStatusService,
	auditService *usecase.AuditService,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		gameMatcher:    gameMatcher,
		playerResolver: playerResolver,
		reviewService:  reviewService,
		syncStatus:     syncStatus,
		auditService:   auditService,
		logger:         logger,
		validator:      validator.New(),
	}
}

func (h *Handler) WithJobRunner(orchestrator *usecase.SyncOrchestratorService, reconciliation *usecase.ReconciliationService) *Handler {
	h.orchestrator = orchestrator
	h.reconciliation = reconciliation
	return h
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ResolveGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolveGame")
	defer span.End()

	rec, err := h.decodeGameRecord(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.gameMatcher.Resolve(ctx, rec)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve game failed", "source", rec.Source, "source_id", rec.SourceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, resolutionStatusCode(res), resolutionToDTO(res))
}

func (h *Handler) ResolvePlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResolvePlayer")
	defer span.End()

	rec, err := h.decodePlayerRecord(ctx, r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	res, err := h.playerResolver.Resolve(ctx, rec)
	if err != nil {
		h.logger.WarnContext(ctx, "resolve player failed", "source", rec.Source, "source_id", rec.SourceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, resolutionStatusCode(res), resolutionToDTO(res))
}

func (h *Handler) LookupGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LookupGame")
	defer span.End()

	sport := r.PathValue("sport")
	source := r.PathValue("source")
	sourceID := r.PathValue("sourceID")

	g, m, err := h.gameMatcher.Lookup(ctx, sport, source, sourceID)
	if err != nil {
		h.logger.WarnContext(ctx, "lookup game failed", "source", source, "source_id", sourceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, gameLookupDTO{
		Game:    gameToDTO(g),
		Mapping: mappingToDTO(m),
	})
}

func (h *Handler) LookupPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LookupPlayer")
	defer span.End()

	sport := r.PathValue("sport")
	source := r.PathValue("source")
	sourceID := r.PathValue("sourceID")

	p, m, err := h.playerResolver.Lookup(ctx, sport, source, sourceID)
	if err != nil {
		h.logger.WarnContext(ctx, "lookup player failed", "source", source, "source_id", sourceID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerLookupDTO{
		Player:  playerToDTO(p),
		Mapping: mappingToDTO(m),
	})
}

func (h *Handler) ListPendingReviews(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPendingReviews")
	defer span.End()

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: invalid limit %q", usecase.ErrInvalidInput, raw))
			return
		}
		limit = parsed
	}

	items, err := h.reviewService.ListPending(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list pending reviews failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]reviewItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, reviewItemToDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ApproveReview")
	defer span.End()

	itemID := strings.TrimSpace(r.PathValue("itemID"))

	var req reviewApproveRequest
	if err := h.decodeBody(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.reviewService.Approve(ctx, itemID, req.CanonicalID, req.Reviewer)
	if err != nil {
		h.logger.WarnContext(ctx, "approve review failed", "item_id", itemID, "reviewer", req.Reviewer, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reviewItemToDTO(item))
}

func (h *Handler) RejectReview(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RejectReview")
	defer span.End()

	itemID := strings.TrimSpace(r.PathValue("itemID"))

	var req reviewRejectRequest
	if err := h.decodeBody(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.reviewService.Reject(ctx, itemID, req.Reviewer)
	if err != nil {
		h.logger.WarnContext(ctx, "reject review failed", "item_id", itemID, "reviewer", req.Reviewer, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reviewItemToDTO(item))
}

func (h *Handler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncStatus")
	defer span.End()

	status, err := h.syncStatus.Status(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "get sync status failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	jobs := make([]syncJobDTO, 0, len(status.Jobs))
	for _, j := range status.Jobs {
		jobs = append(jobs, syncJobToDTO(j))
	}

	writeSuccess(ctx, w, http.StatusOK, syncStatusDTO{
		Health: string(status.Health),
		Jobs:   jobs,
	})
}

func (h *Handler) GetSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSyncJob")
	defer span.End()

	source := r.PathValue("source")
	dataType := r.PathValue("dataType")

	job, err := h.syncStatus.JobStatus(ctx, source, dataType)
	if err != nil {
		h.logger.WarnContext(ctx, "get sync job failed", "source", source, "data_type", dataType, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, syncJobToDTO(job))
}

func (h *Handler) GetAuditHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetAuditHistory")
	defer span.End()

	entityType := r.PathValue("entityType")
	entityID := r.PathValue("entityID")

	entries, err := h.auditService.History(ctx, entityType, entityID)
	if err != nil {
		h.logger.WarnContext(ctx, "get audit history failed", "entity_type", entityType, "entity_id", entityID, "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]auditEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryToDTO(e))
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) decodeGameRecord(ctx context.Context, r *http.Request) (sourcerecord.Record, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return sourcerecord.Record{}, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}

	var req gameResolveRequest
	if err := unmarshalStrict(body, &req); err != nil {
		return sourcerecord.Record{}, err
	}
	if err := h.validateRequest(ctx, req); err != nil {
		return sourcerecord.Record{}, err
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return sourcerecord.Record{}, fmt.Errorf("%w: invalid scheduledAt %q", usecase.ErrInvalidInput, req.ScheduledAt)
	}

	return sourcerecord.Record{
		Source:   req.Source,
		Sport:    req.Sport,
		Kind:     sourcerecord.KindGame,
		SourceID: req.SourceID,
		Game: &sourcerecord.GameFields{
			HomeKey:     req.HomeKey,
			AwayKey:     req.AwayKey,
			HomeName:    req.HomeName,
			AwayName:    req.AwayName,
			ScheduledAt: scheduledAt,
			Status:      req.Status,
			Venue:       req.Venue,
		},
		RawPayload: body,
	}, nil
}

func (h *Handler) decodePlayerRecord(ctx context.Context, r *http.Request) (sourcerecord.Record, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return sourcerecord.Record{}, fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}

	var req playerResolveRequest
	if err := unmarshalStrict(body, &req); err != nil {
		return sourcerecord.Record{}, err
	}
	if err := h.validateRequest(ctx, req); err != nil {
		return sourcerecord.Record{}, err
	}

	return sourcerecord.Record{
		Source:   req.Source,
		Sport:    req.Sport,
		Kind:     sourcerecord.KindPlayer,
		SourceID: req.SourceID,
		Player: &sourcerecord.PlayerFields{
			Name:     req.Name,
			TeamKey:  req.TeamKey,
			TeamName: req.TeamName,
			Position: req.Position,
		},
		RawPayload: body,
	}, nil
}

func (h *Handler) decodeBody(ctx context.Context, r *http.Request, dst any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("%w: read request body: %v", usecase.ErrInvalidInput, err)
	}
	if len(body) == 0 {
		return nil
	}
	return unmarshalStrict(body, dst)
}

func unmarshalStrict(body []byte, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(bytes.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// resolutionStatusCode distinguishes a freshly created canonical entity
// from a match against an existing one.
func resolutionStatusCode(res usecase.Resolution) int {
	if res.Created {
		return http.StatusCreated
	}
	return http.StatusOK
}

type gameResolveRequest struct {
	Source      string `json:"source" validate:"required"`
	Sport       string `json:"sport" validate:"required"`
	SourceID    string `json:"sourceId" validate:"required"`
	HomeKey     string `json:"homeKey"`
	AwayKey     string `json:"awayKey"`
	HomeName    string `json:"homeName"`
	AwayName    string `json:"awayName"`
	ScheduledAt string `json:"scheduledAt" validate:"required"`
	Status      string `json:"status"`
	Venue       string `json:"venue"`
}

type playerResolveRequest struct {
	Source   string `json:"source" validate:"required"`
	Sport    string `json:"sport" validate:"required"`
	SourceID string `json:"sourceId" validate:"required"`
	Name     string `json:"name" validate:"required"`
	TeamKey  string `json:"teamKey"`
	TeamName string `json:"teamName"`
	Position string `json:"position"`
}

type reviewApproveRequest struct {
	CanonicalID string `json:"canonicalId"`
	Reviewer    string `json:"reviewer" validate:"required"`
}

type reviewRejectRequest struct {
	Reviewer string `json:"reviewer" validate:"required"`
}

type resolutionDTO struct {
	CanonicalID  string  `json:"canonicalId,omitempty"`
	Confidence   float64 `json:"confidence"`
	Status       string  `json:"status"`
	Method       string  `json:"method"`
	Created      bool    `json:"created"`
	ReviewItemID string  `json:"reviewItemId,omitempty"`
}

type gameDTO struct {
	ID          string `json:"id"`
	Sport       string `json:"sport"`
	ScheduledAt string `json:"scheduledAt"`
	HomeCode    string `json:"homeCode"`
	AwayCode    string `json:"awayCode"`
	Status      string `json:"status"`
	StatsGameID string `json:"statsGameId,omitempty"`
	OddsEventID string `json:"oddsEventId,omitempty"`
	NewsGameKey string `json:"newsGameKey,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type playerDTO struct {
	ID             string `json:"id"`
	Sport          string `json:"sport"`
	CanonicalName  string `json:"canonicalName"`
	NormalizedName string `json:"normalizedName"`
	Suffix         string `json:"suffix,omitempty"`
	TeamCode       string `json:"teamCode,omitempty"`
	Position       string `json:"position,omitempty"`
	StatsPlayerID  string `json:"statsPlayerId,omitempty"`
	OddsPlayerID   string `json:"oddsPlayerId,omitempty"`
	NewsPlayerKey  string `json:"newsPlayerKey,omitempty"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type mappingDTO struct {
	Sport       string  `json:"sport"`
	Kind        string  `json:"kind"`
	Source      string  `json:"source"`
	SourceID    string  `json:"sourceId"`
	CanonicalID string  `json:"canonicalId,omitempty"`
	Confidence  float64 `json:"confidence"`
	Method      string  `json:"method"`
	Status      string  `json:"status"`
	UpdatedAt   string  `json:"updatedAt"`
}

type gameLookupDTO struct {
	Game    gameDTO    `json:"game"`
	Mapping mappingDTO `json:"mapping"`
}

type playerLookupDTO struct {
	Player  playerDTO  `json:"player"`
	Mapping mappingDTO `json:"mapping"`
}

type reviewItemDTO struct {
	ID         string             `json:"id"`
	Sport      string             `json:"sport"`
	Kind       string             `json:"kind"`
	Source     string             `json:"source"`
	SourceID   string             `json:"sourceId"`
	Candidates []review.Candidate `json:"candidates"`
	Status     string             `json:"status"`
	ResolvedBy string             `json:"resolvedBy,omitempty"`
	CreatedAt  string             `json:"createdAt"`
	ResolvedAt string             `json:"resolvedAt,omitempty"`
}

type syncJobDTO struct {
	Source     string `json:"source"`
	DataType   string `json:"dataType"`
	State      string `json:"state"`
	Processed  int    `json:"processed"`
	Matched    int    `json:"matched"`
	Created    int    `json:"created"`
	Queued     int    `json:"queued"`
	Failed     int    `json:"failed"`
	LastError  string `json:"lastError,omitempty"`
	StartedAt  string `json:"startedAt,omitempty"`
	FinishedAt string `json:"finishedAt,omitempty"`
	DurationMs int64  `json:"durationMs"`
}

type syncStatusDTO struct {
	Health string       `json:"health"`
	Jobs   []syncJobDTO `json:"jobs"`
}

type auditEntryDTO struct {
	ID            int64  `json:"id"`
	EntityType    string `json:"entityType"`
	EntityID      string `json:"entityId"`
	Action        string `json:"action"`
	PreviousState any    `json:"previousState,omitempty"`
	NewState      any    `json:"newState,omitempty"`
	MatchDetails  any    `json:"matchDetails,omitempty"`
	Actor         string `json:"actor"`
	CreatedAt     string `json:"createdAt"`
}

func resolutionToDTO(res usecase.Resolution) resolutionDTO {
	return resolutionDTO{
		CanonicalID:  res.CanonicalID,
		Confidence:   res.Confidence,
		Status:       string(res.Status),
		Method:       string(res.Method),
		Created:      res.Created,
		ReviewItemID: res.ReviewItemID,
	}
}

func gameToDTO(g game.Game) gameDTO {
	return gameDTO{
		ID:          g.ID,
		Sport:       g.Sport,
		ScheduledAt: g.ScheduledAt.UTC().Format(time.RFC3339),
		HomeCode:    g.HomeCode,
		AwayCode:    g.AwayCode,
		Status:      g.Status,
		StatsGameID: g.StatsGameID,
		OddsEventID: g.OddsEventID,
		NewsGameKey: g.NewsGameKey,
		CreatedAt:   g.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func playerToDTO(p player.Player) playerDTO {
	return playerDTO{
		ID:             p.ID,
		Sport:          p.Sport,
		CanonicalName:  p.CanonicalName,
		NormalizedName: p.NormalizedName,
		Suffix:         p.Suffix,
		TeamCode:       p.TeamCode,
		Position:       p.Position,
		StatsPlayerID:  p.StatsPlayerID,
		OddsPlayerID:   p.OddsPlayerID,
		NewsPlayerKey:  p.NewsPlayerKey,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func mappingToDTO(m mapping.Mapping) mappingDTO {
	return mappingDTO{
		Sport:       m.Sport,
		Kind:        string(m.Kind),
		Source:      m.Source,
		SourceID:    m.SourceID,
		CanonicalID: m.CanonicalID,
		Confidence:  m.Confidence,
		Method:      string(m.Method),
		Status:      string(m.Status),
		UpdatedAt:   m.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func reviewItemToDTO(item review.Item) reviewItemDTO {
	dto := reviewItemDTO{
		ID:         item.ID,
		Sport:      item.Sport,
		Kind:       string(item.Kind),
		Source:     item.Record.Source,
		SourceID:   item.Record.SourceID,
		Candidates: item.Candidates,
		Status:     string(item.Status),
		ResolvedBy: item.ResolvedBy,
		CreatedAt:  item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.ResolvedAt != nil {
		dto.ResolvedAt = item.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func syncJobToDTO(j syncjob.Job) syncJobDTO {
	dto := syncJobDTO{
		Source:     j.Source,
		DataType:   j.DataType,
		State:      string(j.State),
		Processed:  j.Counts.Processed,
		Matched:    j.Counts.Matched,
		Created:    j.Counts.Created,
		Queued:     j.Counts.Queued,
		Failed:     j.Counts.Failed,
		LastError:  j.LastError,
		DurationMs: j.DurationMs,
	}
	if j.StartedAt != nil {
		dto.StartedAt = j.StartedAt.UTC().Format(time.RFC3339)
	}
	if j.FinishedAt != nil {
		dto.FinishedAt = j.FinishedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func auditEntryToDTO(e audit.Entry) auditEntryDTO {
	return auditEntryDTO{
		ID:            e.ID,
		EntityType:    e.EntityType,
		EntityID:      e.EntityID,
		Action:        string(e.Action),
		PreviousState: rawJSON(e.PreviousState),
		NewState:      rawJSON(e.NewState),
		MatchDetails:  rawJSON(e.MatchDetails),
		Actor:         e.Actor,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// rawJSON re-emits stored JSON blobs inline instead of base64 encoding them.
func rawJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	var v any
	if err := sonic.Unmarshal(b, &v); err != nil {
		return string(b)
	}
	return v
}
