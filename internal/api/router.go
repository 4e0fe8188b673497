package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mlenko/lagerdb/internal/inventory"
	"github.com/mlenko/lagerdb/internal/labels"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc *inventory.Service, gen labels.Generator, logger *zap.Logger) http.Handler {
	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Logger: logger}
	overviewsHandler := &OverviewsHandler{DB: db, Logger: logger}
	itemsHandler := &ItemsHandler{DB: db, Service: svc, Labels: gen, Logger: logger}
	historyHandler := &HistoryHandler{DB: db, Service: svc, Logger: logger}
	taxonomyHandler := &TaxonomyHandler{DB: db, Logger: logger}
	usersHandler := &UsersHandler{DB: db, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)

		// Authenticated routes.
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(jwtSecret, db))

			r.Put("/auth/password", authHandler.ChangePassword)

			r.Get("/overviews", overviewsHandler.List)
			r.Get("/overviews/{id}", overviewsHandler.Get)
			r.Get("/overviews/{id}/items", itemsHandler.Query)
			r.Get("/overviews/{id}/items/export", itemsHandler.Export)
			r.Post("/overviews/{id}/items", itemsHandler.Create)

			r.Get("/items/{id}", itemsHandler.Get)
			r.Get("/items/barcode/{code}", itemsHandler.GetByBarcode)
			r.Put("/items/{id}", itemsHandler.Update)
			r.Post("/items/{id}/adjust", itemsHandler.Adjust)
			r.Post("/items/{id}/move", itemsHandler.Move)
			r.Post("/items/{id}/borrow", itemsHandler.Borrow)
			r.Get("/items/{id}/borrows", itemsHandler.ListBorrows)
			r.Get("/items/{id}/history", itemsHandler.History)
			r.Get("/items/{id}/labels/{kind}", itemsHandler.Label)

			r.Post("/borrows/{id}/return", itemsHandler.Return)

			r.Get("/categories", taxonomyHandler.ListCategories)
			r.Get("/tags", taxonomyHandler.ListTags)
			r.Get("/tag-types", taxonomyHandler.ListTagTypes)
			r.Get("/storage-locations", taxonomyHandler.ListLocations)

			// Admin routes.
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/admin/overviews", overviewsHandler.ListAll)
				r.Post("/overviews", overviewsHandler.Create)
				r.Put("/overviews/{id}", overviewsHandler.Update)

				r.Get("/history", historyHandler.List)
				r.Get("/history/{id}", historyHandler.Get)
				r.Post("/history/{id}/rollback", historyHandler.Rollback)

				r.Post("/categories", taxonomyHandler.CreateCategory)
				r.Put("/categories/{id}", taxonomyHandler.UpdateCategory)
				r.Delete("/categories/{id}", taxonomyHandler.DeleteCategory)
				r.Post("/tags", taxonomyHandler.CreateTag)
				r.Put("/tags/{id}", taxonomyHandler.UpdateTag)
				r.Delete("/tags/{id}", taxonomyHandler.DeleteTag)
				r.Post("/tag-types", taxonomyHandler.CreateTagType)
				r.Post("/storage-locations", taxonomyHandler.CreateLocation)
				r.Put("/storage-locations/{id}", taxonomyHandler.UpdateLocation)
				r.Delete("/storage-locations/{id}", taxonomyHandler.DeleteLocation)

				r.Get("/users", usersHandler.List)
				r.Post("/users", usersHandler.Create)
				r.Get("/users/{id}", usersHandler.Get)
				r.Put("/users/{id}/password", usersHandler.ResetPassword)
				r.Delete("/users/{id}", usersHandler.Delete)
				r.Get("/users/{id}/overviews", usersHandler.GetAllowedOverviews)
				r.Put("/users/{id}/overviews", usersHandler.SetAllowedOverviews)
			})
		})
	})

	return r
}
