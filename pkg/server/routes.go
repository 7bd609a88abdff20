package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/thakonkawin/deep-search-products/pkg/auth"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thakonkawin/deep-search-products/pkg/models"
)

const ReadHeaderTimeout = 5 * time.Second

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) *http.Server {
	router := setupRouter(appState)
	return &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			appState.Config.Server.Host,
			appState.Config.Server.Port,
		),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

// @title						DeepSearch Products REST API
// @version					0.x
// @license.name				Apache 2.0
// @license.url				http://www.apache.org/licenses/LICENSE-2.0.html
// @BasePath					/api/v1
// @schemes					http https
// @securityDefinitions.apikey	Bearer
// @in							header
// @name						Authorization
// @description				Type "Bearer" followed by a space and JWT token.
func setupRouter(appState *models.AppState) *chi.Mux {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))

	if appState.Config.Auth.Required {
		log.Info("JWT authentication required")
		router.Use(auth.JWTVerifier(appState.Config))
		router.Use(jwtauth.Authenticator)
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Product catalog routes
		r.Get("/products", ListProductsHandler(appState))
		r.Post("/products", CreateProductHandler(appState))
		r.Get("/products/statistics", GetStatisticsHandler(appState))
		r.Route("/products/image/{imageUUID}", func(r chi.Router) {
			r.Get("/", GetProductImageHandler(appState))
			r.Delete("/", DeleteProductImageHandler(appState))
		})
		r.Route("/products/{productCode}", func(r chi.Router) {
			r.Get("/", GetProductHandler(appState))
			r.Put("/", UpdateProductHandler(appState))
			r.Delete("/", DeleteProductHandler(appState))
		})

		// Image ingestion route
		r.Post("/products-vectors", CreateProductImagesHandler(appState))

		// Similarity search route
		r.Post("/search", SearchHandler(appState))
	})

	return router
}
