package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/farming"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/pkg/types"
)

func environmentHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-environment")
		defer span.End()

		env, err := farm.Environment(ctx)
		if err != nil {
			log.Error().Err(err).Msg("environment query failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, env)
	}
}

func statisticsHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-statistics")
		defer span.End()

		stats, err := farm.Statistics(ctx, intQuery(r, "hours", 24))
		if err != nil {
			log.Error().Err(err).Msg("statistics query failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func latestValueHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-latest-value")
		defer span.End()

		sensorType := r.URL.Query().Get("type")

		value, err := farm.LatestValue(ctx, sensorType)
		if err != nil {
			if errors.Is(err, farming.ErrUnknownSensorType) {
				writeError(w, http.StatusBadRequest, "Unknown sensor type")
				return
			}
			log.Error().Err(err).Str("type", sensorType).Msg("latest value query failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, value)
	}
}

func sensorLogsHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-sensor-logs")
		defer span.End()

		logs, err := farm.SensorLogs(ctx, intQuery(r, "limit", 100))
		if err != nil {
			log.Error().Err(err).Msg("sensor log list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, logs)
	}
}

func listPlotsHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-plots")
		defer span.End()

		plots, err := farm.Plots(ctx)
		if err != nil {
			log.Error().Err(err).Msg("plot list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, plots)
	}
}

func createPlotHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "create-plot")
		defer span.End()

		var req types.PlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		plot, err := farm.CreatePlot(ctx, req)
		if err != nil {
			if req.PlotName == "" {
				writeError(w, http.StatusBadRequest, "plot_name is required")
				return
			}
			log.Error().Err(err).Msg("plot create failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, plot)
	}
}

func updatePlotHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "update-plot")
		defer span.End()

		plotID, err := strconv.Atoi(chi.URLParam(r, "plotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid plot id")
			return
		}

		var req types.PlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.PlotName == "" {
			writeError(w, http.StatusBadRequest, "plot_name is required")
			return
		}

		err = farm.UpdatePlot(ctx, plotID, req)
		if err != nil {
			if errors.Is(err, farming.ErrPlotNotFound) {
				writeError(w, http.StatusNotFound, "Plot not found")
				return
			}
			log.Error().Err(err).Int("plot_id", plotID).Msg("plot update failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func deletePlotHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "delete-plot")
		defer span.End()

		plotID, err := strconv.Atoi(chi.URLParam(r, "plotID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid plot id")
			return
		}

		if err := farm.DeletePlot(ctx, plotID); err != nil {
			log.Error().Err(err).Int("plot_id", plotID).Msg("plot delete failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func deviceStatusHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "get-device-status")
		defer span.End()

		status, err := farm.DeviceStatus(ctx, chi.URLParam(r, "deviceName"))
		if err != nil {
			log.Error().Err(err).Msg("device status query failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func setDeviceStatusHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "set-device-status")
		defer span.End()

		var body struct {
			Status bool   `json:"status"`
			Source string `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		status, err := farm.SetDeviceStatus(ctx, chi.URLParam(r, "deviceName"), body.Status, body.Source)
		if err != nil {
			log.Error().Err(err).Msg("device status update failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, status)
	}
}

func deviceLogsHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-device-logs")
		defer span.End()

		logs, err := farm.DeviceLogs(ctx, chi.URLParam(r, "deviceName"), intQuery(r, "limit", 100))
		if err != nil {
			log.Error().Err(err).Msg("device log list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, logs)
	}
}

func deviceSchedulesHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-device-schedules")
		defer span.End()

		schedules, err := farm.DeviceSchedules(ctx, chi.URLParam(r, "deviceName"))
		if err != nil {
			log.Error().Err(err).Msg("device schedule list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, schedules)
	}
}

func addPredictionHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "add-prediction")
		defer span.End()

		var pred database.StressPrediction
		if err := json.NewDecoder(r.Body).Decode(&pred); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		err := farm.AddPrediction(ctx, &pred)
		if err != nil {
			if errors.Is(err, farming.ErrInvalidPrediction) {
				writeError(w, http.StatusBadRequest, "target_time must be after pred_time")
				return
			}
			log.Error().Err(err).Msg("prediction create failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, pred)
	}
}

func listPredictionsHandler(log zerolog.Logger, farm farming.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-predictions")
		defer span.End()

		preds, err := farm.Predictions(ctx, intQuery(r, "plot_id", 0), intQuery(r, "limit", 100))
		if err != nil {
			log.Error().Err(err).Msg("prediction list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, preds)
	}
}
