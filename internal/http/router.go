package http

import (
	"net/http"

	"rota/internal/approval"
	"rota/internal/auth"
	"rota/internal/config"
	"rota/internal/http/handler"
	mw "rota/internal/http/middleware"
	"rota/internal/notify"
	"rota/internal/schedule"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

func NewRouter(cfg config.Config, db *gorm.DB, jwtSvc *auth.JWT, dispatcher notify.Dispatcher) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ah := &handler.AuthHandler{DB: db, JWT: jwtSvc}
	r.Post("/auth/register", ah.Register)
	r.Post("/auth/login", ah.Login)

	store := &schedule.GormStore{DB: db}
	applier := &schedule.Applier{Store: store}
	matcher := &schedule.Matcher{Store: store}
	orch := &approval.Orchestrator{
		Ledger:     &approval.GormLedger{DB: db},
		Applier:    applier,
		Store:      store,
		Dispatcher: dispatcher,
	}

	me := &handler.MeHandler{}
	weekH := &handler.WeekHandler{Store: store}
	changeH := &handler.ChangeHandler{Orchestrator: orch, Matcher: matcher, Applier: applier, Store: store}
	reviewH := &handler.ReviewHandler{Orchestrator: orch, Store: store}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtSvc, db))

		r.Get("/me", me.Me)

		r.Get("/weeks", weekH.List)
		r.Get("/weeks/{number}", weekH.Get)
		r.Get("/weeks/{number}/pending", reviewH.ListPending)
		r.Post("/weeks/{number}/pending/approve-all", reviewH.ApproveAll)
		r.Post("/weeks/{number}/pending/reject-all", reviewH.RejectAll)

		r.Post("/changes", changeH.Propose)
		r.Get("/changes/duplicates", changeH.Duplicates)
		r.Post("/changes/{id}/approve", reviewH.Approve)
		r.Post("/changes/{id}/reject", reviewH.Reject)
		r.Post("/changes/{id}/cancel", reviewH.Cancel)

		r.Get("/rejected", reviewH.ListRejected)
		r.Post("/rejected/{id}/read", reviewH.MarkRead)
		r.Post("/rejected/read-all", reviewH.MarkAllRead)

		r.Post("/activities/{id}/reorder", changeH.Reorder)
	})

	return r
}
