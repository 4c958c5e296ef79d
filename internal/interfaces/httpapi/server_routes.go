package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerResolutionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/resolve/games", handler.ResolveGame)
	mux.HandleFunc("POST /v1/resolve/players", handler.ResolvePlayer)
	mux.HandleFunc("GET /v1/games/{sport}/{source}/{sourceID}", handler.LookupGame)
	mux.HandleFunc("GET /v1/players/{sport}/{source}/{sourceID}", handler.LookupPlayer)
	mux.HandleFunc("GET /v1/audit/{entityType}/{entityID}", handler.GetAuditHistory)
}

func registerReviewRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/reviews", handler.ListPendingReviews)
	mux.HandleFunc("POST /v1/reviews/{itemID}/approve", handler.ApproveReview)
	mux.HandleFunc("POST /v1/reviews/{itemID}/reject", handler.RejectReview)
}

func registerSyncRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/sync/status", handler.GetSyncStatus)
	mux.HandleFunc("GET /v1/sync/jobs/{source}/{dataType}", handler.GetSyncJob)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunSyncJob)))
	mux.Handle("POST /v1/internal/jobs/resync", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunResync)))
	mux.Handle("POST /v1/internal/jobs/reconcile", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunReconciliation)))
}
