package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))

			r.Route("/projects", func(r chi.Router) {
				r.Post("/", h.CreateProject)
				r.Get("/", h.ListProjects)
				r.Get("/{id}", h.GetProject)
				r.Put("/{id}", h.UpdateProject)
				r.Delete("/{id}", h.DeleteProject)
			})

			r.Route("/quests", func(r chi.Router) {
				r.Post("/", h.CreateQuest)
				r.Get("/", h.ListQuests)
				r.Get("/{id}", h.GetQuest)
				r.Put("/{id}", h.UpdateQuest)
				r.Delete("/{id}", h.DeleteQuest)
				r.Get("/{id}/chain", h.QuestChain)
			})

			r.Route("/lore", func(r chi.Router) {
				r.Post("/", h.CreateLore)
				r.Post("/bulk", h.BulkCreateLore)
				r.Get("/", h.ListLore)
				r.Get("/{id}", h.GetLore)
				r.Put("/{id}", h.UpdateLore)
				r.Delete("/{id}", h.DeleteLore)
			})

			r.Get("/search", h.Search)

			r.Route("/npcs", func(r chi.Router) {
				r.Post("/", h.CreateNPC)
				r.Get("/", h.ListNPCs)
				r.Get("/{id}", h.GetNPC)
				r.Put("/{id}", h.UpdateNPC)
				r.Delete("/{id}", h.DeleteNPC)
				r.Post("/{id}/voice", h.GenerateVoice)
				r.Post("/{id}/model", h.GenerateModel)
				r.Get("/{id}/model/{jobID}", h.ModelJobStatus)
			})

			r.Route("/manifests", func(r chi.Router) {
				r.Post("/", h.CreateManifest)
				r.Get("/", h.ListManifests)
				r.Get("/diff", h.ManifestDiff)
				r.Get("/{id}", h.GetManifest)
			})

			r.Route("/assets/voice", func(r chi.Router) {
				r.Get("/", h.ListVoiceAssets)
				r.Get("/{id}", h.GetVoiceAsset)
				r.Delete("/{id}", h.DeleteVoiceAsset)
			})

			r.Post("/generate/lore", h.GenerateLore)
			r.Post("/generate/dialogue", h.GenerateDialogue)

			r.Get("/usage", h.Usage)
			r.Get("/usage/limits", h.UsageLimits)
		})
	})

	return r
}
