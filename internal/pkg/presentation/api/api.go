package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	appauth "github.com/smartfarm/farm-mgmt/internal/pkg/application/auth"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/farming"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/ingest"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/records"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/internal/pkg/presentation/api/auth"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("farm-mgmt/api")

// RegisterHandlers mounts the full REST surface on the router. Routes
// under the guard require a valid access token; everything else is
// open so sensor units and dashboards can talk without provisioning.
func RegisterHandlers(
	log zerolog.Logger,
	router *chi.Mux,
	farm farming.Service,
	authSvc appauth.Service,
	reg *records.Registry,
	reconciler *database.Reconciler,
	importer *ingest.Importer,
) *chi.Mux {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	guard := auth.RequireToken(authSvc.Tokens())

	router.Route("/api", func(r chi.Router) {
		r.Get("/environment", environmentHandler(log, farm))
		r.Get("/statistics", statisticsHandler(log, farm))
		r.Post("/statistics/init", initTablesHandler(log, reconciler))

		r.Get("/plots", listPlotsHandler(log, farm))
		r.Post("/plots", createPlotHandler(log, farm))
		r.Put("/plots/{plotID}", updatePlotHandler(log, farm))
		r.Delete("/plots/{plotID}", deletePlotHandler(log, farm))

		// Both spellings are live because deployed firmware uses the
		// singular form.
		for _, prefix := range []string{"/devices", "/device"} {
			r.Get(prefix+"/{deviceName}", deviceStatusHandler(log, farm))
			r.Put(prefix+"/{deviceName}", setDeviceStatusHandler(log, farm))
			r.Get(prefix+"/{deviceName}/logs", deviceLogsHandler(log, farm))
			r.Get(prefix+"/{deviceName}/schedules", deviceSchedulesHandler(log, farm))
		}

		r.Get("/sensor/latest", latestValueHandler(log, farm))
		r.Post("/sensor/init", initTablesHandler(log, reconciler))
		r.Post("/sensor", addSensorDataHandler(log, farm))
		r.Get("/sensor-logs", sensorLogsHandler(log, farm))

		r.Group(func(protected chi.Router) {
			protected.Use(guard)
			protected.Get("/sensor/data", latestSensorDataHandler(log, farm))
			protected.Get("/sensor/history", sensorHistoryHandler(log, farm))
			protected.Put("/sensor/{dataID}", updateSensorDataHandler(log, farm))
			protected.Delete("/sensor/cleanup", cleanupSensorDataHandler(log, farm))
			protected.Put("/user/profile", updateProfileHandler(log, authSvc))
		})

		r.Post("/auth/register", registerHandler(log, authSvc))
		r.Post("/auth/login", loginHandler(log, authSvc))
		r.Post("/auth/refresh", refreshHandler(log, authSvc))
		r.Post("/auth/check", checkUsernameHandler(log, authSvc))
		r.Post("/auth/init-db", initTablesHandler(log, reconciler))

		r.Post("/import", importHandler(log, importer))

		r.Post("/predictions", addPredictionHandler(log, farm))
		r.Get("/predictions", listPredictionsHandler(log, farm))

		mountFamily(r, log, reg.BinData, nil)
		mountFamily(r, log, reg.Weather, nil)
		mountFamily(r, log, reg.Maintenance, nil)
		mountFamily(r, log, reg.CropHealth, nil)
		mountFamily(r, log, reg.DeviceHistory, nil)
		mountFamily(r, log, reg.DeviceLogs, nil)

		// Alert creation bypasses the generic create handler so new
		// alerts also reach the mirror and the event bus.
		mountFamily(r, log, reg.Alerts, createAlertHandler(log, reg))
		r.Put("/alerts/{alertID}/resolve", resolveAlertHandler(log, reg))
	})

	return router
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	bytes, err := json.Marshal(body)
	if err != nil {
		return
	}
	w.Write(bytes)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func internalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "Internal server error")
}
