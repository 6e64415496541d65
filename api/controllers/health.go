package controllers

import (
	"net/http"

	"github.com/angelmondragon/cartsync/api/responses"
	"github.com/angelmondragon/cartsync/pkg/config"
	"github.com/angelmondragon/cartsync/pkg/logger"
)

const envHeader = "X-Cartsync-Env"

func Health(cfg *config.Config, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if logg != nil {
			ctx := logg.WithField(r.Context(), "env", cfg.App.Env)
			logg.Debug(ctx, "health.check")
		}

		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}
