package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/farming"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/ingest"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
)

// initTablesHandler backs every init endpoint. The reconciler is
// idempotent, so the endpoints can be hit freely by provisioning
// scripts; the response lists what each run did.
func initTablesHandler(log zerolog.Logger, reconciler *database.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "init-tables")
		defer span.End()

		messages := reconciler.Reconcile(ctx)

		log.Info().Int("steps", len(messages)).Msg("reconciliation run finished")

		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"messages": messages,
		})
	}
}

func addSensorDataHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "add-sensor-data")
		defer span.End()

		var data database.SensorData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := farm.AddSensorData(ctx, &data); err != nil {
			log.Error().Err(err).Msg("sensor data insert failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"data_id": data.DataID,
		})
	}
}

func latestSensorDataHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-sensor-data")
		defer span.End()

		data, found, err := farm.LatestSensorData(ctx, intQuery(r, "device_id", 1))
		if err != nil {
			log.Error().Err(err).Msg("sensor data query failed")
			internalError(w)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "No sensor data found")
			return
		}

		writeJSON(w, http.StatusOK, data)
	}
}

func sensorHistoryHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-sensor-history")
		defer span.End()

		rows, err := farm.SensorHistory(ctx, intQuery(r, "device_id", 1), intQuery(r, "limit", 100))
		if err != nil {
			log.Error().Err(err).Msg("sensor history query failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, rows)
	}
}

func updateSensorDataHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "update-sensor-data")
		defer span.End()

		dataID, err := strconv.Atoi(chi.URLParam(r, "dataID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid data id")
			return
		}

		var data database.SensorData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		err = farm.UpdateSensorData(ctx, dataID, data)
		if err != nil {
			if errors.Is(err, farming.ErrSensorDataNotFound) {
				writeError(w, http.StatusNotFound, "Sensor data not found")
				return
			}
			log.Error().Err(err).Int("data_id", dataID).Msg("sensor data update failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func cleanupSensorDataHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "cleanup-sensor-data")
		defer span.End()

		days := intQuery(r, "days", 30)

		deleted, err := farm.CleanupSensorData(ctx, days)
		if err != nil {
			log.Error().Err(err).Msg("sensor data cleanup failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"deleted": deleted,
			"days":    days,
		})
	}
}

func importHandler(log zerolog.Logger, importer *ingest.Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "import-feed")
		defer span.End()

		inserted, err := importer.Run(ctx)
		if err != nil {
			log.Error().Err(err).Msg("import run failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"inserted": inserted,
		})
	}
}
