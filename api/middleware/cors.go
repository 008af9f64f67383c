package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// Terminals and displays run on the same LAN as the backend, usually served
// from a local dev server or the kiosk browser itself.
var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://*.local",
	"http://192.168.*",
	"http://10.*",
}

// CORS returns middleware that applies the allowed origin policy for the
// terminal and display frontends.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
