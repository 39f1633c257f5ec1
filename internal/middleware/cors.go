package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS builds a standard net/http middleware allowing the given origins
// to call the survey endpoints from a browser, mirroring the
// credentialed, header-permissive policy browser clients need.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler
}
