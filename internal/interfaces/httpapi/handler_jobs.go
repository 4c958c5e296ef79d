package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/sportsync/internal/domain/sourcerecord"
	"github.com/riskibarqy/sportsync/internal/usecase"
)

func (h *Handler) RunSyncJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSyncJob")
	defer span.End()

	if h.orchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalSyncJobRequest
	if err := h.decodeBody(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	report, err := h.orchestrator.RunJob(ctx, req.Source, req.Sport, req.DataType)
	if err != nil {
		h.logger.WarnContext(ctx, "run sync job failed",
			"source", req.Source,
			"sport", req.Sport,
			"data_type", req.DataType,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, jobReportToDTO(report))
}

func (h *Handler) RunResync(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunResync")
	defer span.End()

	if h.orchestrator == nil {
		writeError(ctx, w, fmt.Errorf("%w: sync orchestrator is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	var req internalResyncRequest
	if err := h.decodeBody(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.orchestrator.ResyncEntity(ctx, usecase.ResyncInput{
		Sport:    req.Sport,
		Kind:     sourcerecord.Kind(req.Kind),
		Source:   req.Source,
		SourceID: req.SourceID,
		DryRun:   req.DryRun,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "resync entity failed",
			"source", req.Source,
			"source_id", req.SourceID,
			"kind", req.Kind,
			"dry_run", req.DryRun,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	dto := resyncResultDTO{
		Record: recordToDTO(result.Record),
		DryRun: result.DryRun,
	}
	if !result.DryRun {
		res := resolutionToDTO(result.Resolution)
		dto.Resolution = &res
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) RunReconciliation(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunReconciliation")
	defer span.End()

	if h.reconciliation == nil {
		writeError(ctx, w, fmt.Errorf("%w: reconciliation job is not configured", usecase.ErrDependencyUnavailable))
		return
	}

	report, err := h.reconciliation.Run(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "reconciliation run failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, reconciliationReportDTO{
		GameGroups:    report.GameGroups,
		GamesMerged:   report.GamesMerged,
		PlayerGroups:  report.PlayerGroups,
		PlayersMerged: report.PlayersMerged,
		Skipped:       report.Skipped,
	})
}

type internalSyncJobRequest struct {
	Source   string `json:"source" validate:"required"`
	Sport    string `json:"sport" validate:"required"`
	DataType string `json:"dataType" validate:"required"`
}

type internalResyncRequest struct {
	Sport    string `json:"sport" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=game player"`
	Source   string `json:"source" validate:"required"`
	SourceID string `json:"sourceId" validate:"required"`
	DryRun   bool   `json:"dryRun"`
}

type jobReportDTO struct {
	Source     string `json:"source"`
	DataType   string `json:"dataType"`
	State      string `json:"state"`
	Processed  int    `json:"processed"`
	Matched    int    `json:"matched"`
	Created    int    `json:"created"`
	Queued     int    `json:"queued"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"durationMs"`
}

type sourceRecordDTO struct {
	Source     string `json:"source"`
	Sport      string `json:"sport"`
	Kind       string `json:"kind"`
	SourceID   string `json:"sourceId"`
	Payload    any    `json:"payload,omitempty"`
	IngestedAt string `json:"ingestedAt"`
}

type resyncResultDTO struct {
	Record     sourceRecordDTO `json:"record"`
	Resolution *resolutionDTO  `json:"resolution,omitempty"`
	DryRun     bool            `json:"dryRun"`
}

type reconciliationReportDTO struct {
	GameGroups    int `json:"gameGroups"`
	GamesMerged   int `json:"gamesMerged"`
	PlayerGroups  int `json:"playerGroups"`
	PlayersMerged int `json:"playersMerged"`
	Skipped       int `json:"skipped"`
}

func jobReportToDTO(report usecase.JobReport) jobReportDTO {
	return jobReportDTO{
		Source:     report.Source,
		DataType:   report.DataType,
		State:      string(report.State),
		Processed:  report.Counts.Processed,
		Matched:    report.Counts.Matched,
		Created:    report.Counts.Created,
		Queued:     report.Counts.Queued,
		Failed:     report.Counts.Failed,
		DurationMs: report.Duration.Milliseconds(),
	}
}

func recordToDTO(rec sourcerecord.Record) sourceRecordDTO {
	return sourceRecordDTO{
		Source:     rec.Source,
		Sport:      rec.Sport,
		Kind:       string(rec.Kind),
		SourceID:   rec.SourceID,
		Payload:    rawJSON(rec.RawPayload),
		IngestedAt: rec.IngestedAt.UTC().Format(time.RFC3339),
	}
}
