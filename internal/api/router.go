package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/designwheel/engine/internal/api/handlers"
	mw "github.com/designwheel/engine/internal/api/middleware"
	"github.com/designwheel/engine/internal/services"
)

type Dependencies struct {
	Auth            services.AuthService
	AuthHandler     *handlers.AuthHandler
	ProjectsHandler *handlers.ProjectsHandler
	StagesHandler   *handlers.StagesHandler
	AssetsHandler   *handlers.AssetsHandler
	RosterHandler   *handlers.RosterHandler
	AIHandler       *handlers.AIHandler
	HealthHandler   *handlers.HealthHandler
	// RateLimit is requests per second per client ip; zero disables limiting.
	RateLimit float64
	RateBurst int
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.RateLimit > 0 {
		r.Use(mw.RateLimit(dep.RateLimit, dep.RateBurst))
	}
	r.Use(chimid.Compress(5))

	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	authn := mw.Auth(dep.Auth)
	instructor := mw.RequireRole(services.RoleInstructor)
	student := mw.RequireRole(services.RoleStudent)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/auth/instructor/login", dep.AuthHandler.InstructorLogin)
		// content refs are unguessable hashes, so browsers may fetch them without a token
		api.Get("/assets/*", dep.AssetsHandler.Content)

		api.Route("/projects", func(pr chi.Router) {
			pr.Post("/", dep.ProjectsHandler.Setup)

			pr.Group(func(pp chi.Router) {
				pp.Use(authn)
				pp.With(instructor).Get("/", dep.ProjectsHandler.List)
				pp.Route("/{id}", func(p chi.Router) {
					p.Get("/", dep.ProjectsHandler.Get)
					p.With(instructor).Patch("/active", dep.ProjectsHandler.SetActive)
					p.Route("/stages/{stage}", func(s chi.Router) { stageRoutes(s, dep, instructor) })
				})
			})
		})

		api.Group(func(protected chi.Router) {
			protected.Use(authn)

			protected.Post("/auth/logout", dep.AuthHandler.Logout)
			protected.Get("/stages", dep.ProjectsHandler.Stages)

			protected.With(student).Route("/me", func(me chi.Router) {
				me.Get("/", dep.RosterHandler.Me)
				me.Patch("/", dep.RosterHandler.UpdateMe)
				me.Get("/projects", dep.ProjectsHandler.Mine)
			})

			protected.With(instructor).Route("/roster", func(ro chi.Router) {
				ro.Get("/users", dep.RosterHandler.Users)
				ro.Get("/allow-list", dep.RosterHandler.AllowList)
				ro.Post("/allow-list", dep.RosterHandler.ImportAllowList)
				ro.Get("/export", dep.RosterHandler.Export)
			})
		})
	})

	return r
}

func stageRoutes(s chi.Router, dep Dependencies, instructor func(http.Handler) http.Handler) {
	s.Post("/submit", dep.StagesHandler.Submit)
	s.Post("/reopen", dep.StagesHandler.Reopen)
	s.With(instructor).Post("/verdict", dep.StagesHandler.Verdict)
	s.With(instructor).Put("/score", dep.StagesHandler.Score)
	s.With(instructor).Put("/feedback", dep.StagesHandler.Feedback)
	s.Post("/checklist/{itemID}/toggle", dep.StagesHandler.ToggleChecklist)
	s.Post("/suggestions", dep.AIHandler.Suggest)
	s.Get("/analysis", dep.AIHandler.Analysis)

	s.Post("/options", dep.StagesHandler.AddOption)
	s.Route("/options/{optionID}", func(o chi.Router) {
		o.Patch("/", dep.StagesHandler.UpdateOption)
		o.Post("/assets", dep.AssetsHandler.Upload)
		o.Route("/assets/{assetID}", func(a chi.Router) {
			a.Delete("/", dep.AssetsHandler.Remove)
			a.Route("/annotations", func(an chi.Router) {
				an.Use(instructor)
				an.Put("/", dep.AssetsHandler.ReplaceAnnotations)
				an.Post("/", dep.AssetsHandler.AddAnnotation)
				an.Patch("/{annotationID}", dep.AssetsHandler.UpdateAnnotation)
				an.Delete("/{annotationID}", dep.AssetsHandler.RemoveAnnotation)
			})
		})
	})
}
