package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var localDevOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS returns middleware that applies the API's allowed origin policy. The
// storefront origin comes from config so deployments do not need a rebuild.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	origins := append([]string{}, localDevOrigins...)
	if frontendURL != "" {
		origins = append(origins, frontendURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
