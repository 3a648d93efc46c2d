package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/records"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
)

// mountFamily wires the {init, create, list} trio for one fact table.
// A non-nil create handler replaces the generic one for families that
// need side effects beyond the insert.
func mountFamily[T any](r chi.Router, log zerolog.Logger, family *records.Family[T], create http.HandlerFunc) {
	if create == nil {
		create = createRecordHandler(log, family)
	}

	r.Post("/"+family.Name()+"/init", initFamilyHandler(log, family))
	r.Post("/"+family.Name(), create)
	r.Get("/"+family.Name(), listRecordsHandler(log, family))
}

func initFamilyHandler[T any](log zerolog.Logger, family *records.Family[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "init-"+family.Name())
		defer span.End()

		err := family.Init(ctx)
		if err != nil {
			log.Error().Err(err).Str("family", family.Name()).Msg("table init failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": family.Name() + " table initialized",
		})
	}
}

func createRecordHandler[T any](log zerolog.Logger, family *records.Family[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "create-"+family.Name())
		defer span.End()

		var record T
		if err := json.NewDecoder(r.Body).Decode(&record); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if err := family.Add(ctx, &record); err != nil {
			log.Error().Err(err).Str("family", family.Name()).Msg("record create failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, record)
	}
}

func listRecordsHandler[T any](log zerolog.Logger, family *records.Family[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "list-"+family.Name())
		defer span.End()

		scope := r.URL.Query().Get(family.ScopeColumn())
		limit := intQuery(r, "limit", 100)

		rows, err := family.List(ctx, scope, limit)
		if err != nil {
			log.Error().Err(err).Str("family", family.Name()).Msg("record list failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, rows)
	}
}

func createAlertHandler(log zerolog.Logger, reg *records.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "create-alert")
		defer span.End()

		var alert database.AlertLog
		if err := json.NewDecoder(r.Body).Decode(&alert); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if alert.AlertType == "" {
			writeError(w, http.StatusBadRequest, "alert_type is required")
			return
		}

		if err := reg.AddAlert(ctx, &alert); err != nil {
			log.Error().Err(err).Msg("alert create failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusCreated, alert)
	}
}

func resolveAlertHandler(log zerolog.Logger, reg *records.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "resolve-alert")
		defer span.End()

		alertID, err := strconv.ParseInt(chi.URLParam(r, "alertID"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid alert id")
			return
		}

		err = reg.ResolveAlert(ctx, alertID)
		if err != nil {
			if errors.Is(err, records.ErrRecordNotFound) {
				writeError(w, http.StatusNotFound, "Alert not found")
				return
			}
			log.Error().Err(err).Int64("alert_id", alertID).Msg("alert resolve failed")
			internalError(w)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return n
}
