package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	intakeHandler "github.com/quillforge/proposalgen/internal/handler/intake"
	proposalHandler "github.com/quillforge/proposalgen/internal/handler/proposal"
	wsHandler "github.com/quillforge/proposalgen/internal/handler/ws"
	middlewarePkg "github.com/quillforge/proposalgen/internal/middleware"
	plannerService "github.com/quillforge/proposalgen/internal/service/planner"
	proposalService "github.com/quillforge/proposalgen/internal/service/proposal"
	"github.com/quillforge/proposalgen/internal/store"
	"github.com/quillforge/proposalgen/internal/validation"
	"github.com/quillforge/proposalgen/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions store.SessionStore, plannerSvc *plannerService.Service, proposalSvc *proposalService.Service, evaluator *validation.Evaluator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	intake := intakeHandler.New(sessions, plannerSvc, evaluator)
	proposals := proposalHandler.New(proposalSvc)
	liveIntake := wsHandler.New(sessions, plannerSvc)

	r.Route("/api", func(api chi.Router) {
		intake.RegisterRoutes(api)
		proposals.RegisterRoutes(api)
		liveIntake.RegisterRoutes(api)

		// Operational visibility for the degrade-and-continue storage
		// policy: callers never see storage errors, so health is the one
		// place degradation shows up.
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":   "ok",
				"storage":  sessions.Mode(),
				"degraded": sessions.Degraded(),
			})
		})
	})

	return r
}
