package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"builtf/backend/internal/logging"
)

func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	// no configured origins means allow everything, for local development
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	logging.L().Info("cors configured", zap.Strings("origins", allowedOrigins))

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
