package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	appauth "github.com/smartfarm/farm-mgmt/internal/pkg/application/auth"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/events"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/farming"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/ingest"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/records"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/router"
)

func setupServer(t *testing.T, feedBody string) *httptest.Server {
	is := is.New(t)
	log := zerolog.Nop()

	feedServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(feedBody))
	}))
	t.Cleanup(feedServer.Close)

	db, err := database.NewSQLiteConnector()()
	is.NoErr(err)

	reconciler := database.NewReconciler(db, log, nil)
	reconciler.Reconcile(context.Background())

	users := database.NewUserRepository(db)
	plots := database.NewPlotRepository(db)
	devices := database.NewDeviceRepository(db)
	sensors := database.NewSensorRepository(db)
	predictions := database.NewPredictionRepository(db)

	tokens := appauth.NewTokens("test-secret", 30*time.Minute, time.Hour)
	authSvc := appauth.New(users, tokens)

	farmSvc := farming.New(plots, devices, sensors, predictions, mirror.Disabled(), events.Noop(), log)
	registry := records.NewRegistry(db, mirror.Disabled(), events.Noop(), log)

	feed := ingest.NewFeedClient(feedServer.URL, "1", "k", 100)
	importer := ingest.NewImporter(feed, sensors, mirror.Disabled(), 1, log)

	r := router.New("farm-mgmt-test", []string{"*"}, log)
	RegisterHandlers(log, r, farmSvc, authSvc, registry, reconciler, importer)

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server
}

func doJSON(t *testing.T, method, url, token string, body any) (int, map[string]any) {
	is := is.New(t)

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		is.NoErr(err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	is.NoErr(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	decoded := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&decoded)

	return resp.StatusCode, decoded
}

func TestHealthEndpoint(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	resp, err := http.Get(server.URL + "/health")
	is.NoErr(err)
	resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusNoContent)
}

func TestRegisterLoginAndDuplicate(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	creds := map[string]string{"username": "greta", "password": "hunter2"}

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", creds)
	is.Equal(status, http.StatusCreated)
	is.True(body["access_token"] != "")

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/register", "", creds)
	is.Equal(status, http.StatusConflict)
	is.Equal(body["error"], "Username already exists")

	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", creds)
	is.Equal(status, http.StatusOK)

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "greta", "password": "wrong"})
	is.Equal(status, http.StatusUnauthorized)
	is.Equal(body["error"], "Invalid credentials")
}

func TestSeededAdminCanLogin(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "admin", "password": "admin123"})
	is.Equal(status, http.StatusOK)

	user := body["user"].(map[string]any)
	is.Equal(user["user_type"], "admin")
}

func TestEnvironmentReturnsZerosWithoutData(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/environment", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["air_temp"], 0.0)
	is.Equal(body["humidity"], 0.0)
	is.Equal(body["lux"], 0.0)
	is.Equal(body["leaf_temp"], 0.0)
}

func TestPlotCreateDefaultsOwner(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/plots", "",
		map[string]any{"plot_name": "North Field"})
	is.Equal(status, http.StatusCreated)
	is.Equal(body["user_id"], 1.0)
	is.Equal(body["plot_name"], "North Field")

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/plots", "", map[string]any{})
	is.Equal(status, http.StatusBadRequest)
	is.Equal(body["error"], "plot_name is required")
}

func TestDeviceReadAndUpsert(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	// Unknown devices answer with the zero shape, not 404.
	status, body := doJSON(t, http.MethodGet, server.URL+"/api/devices/Sprinkler", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["status"], false)
	is.Equal(body["online"], false)

	status, body = doJSON(t, http.MethodPut, server.URL+"/api/devices/Sprinkler", "",
		map[string]any{"status": true, "source": "app"})
	is.Equal(status, http.StatusOK)
	is.Equal(body["status"], true)
	is.Equal(body["online"], true)

	// The singular alias serves the same state.
	status, body = doJSON(t, http.MethodGet, server.URL+"/api/device/Sprinkler", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["status"], true)
}

func TestLatestValueTypeMapping(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/sensor/latest?type=lux", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["value"], 0.0)

	status, _ = doJSON(t, http.MethodGet, server.URL+"/api/sensor/latest?type=password", "", nil)
	is.Equal(status, http.StatusBadRequest)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/sensor/data", "", nil)
	is.Equal(status, http.StatusUnauthorized)
	is.Equal(body["error"], "Token is missing")

	status, body = doJSON(t, http.MethodGet, server.URL+"/api/sensor/data", "garbage", nil)
	is.Equal(status, http.StatusUnauthorized)
	is.Equal(body["error"], "Invalid token")
}

func TestSensorDataRoundTrip(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	_, login := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "admin", "password": "admin123"})
	token := login["access_token"].(string)

	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/sensor", "",
		map[string]any{"temperature_air": 24.5, "humidity": 55})
	is.Equal(status, http.StatusCreated)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/sensor/data", token, nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["temperature_air"], 24.5)

	status, _ = doJSON(t, http.MethodGet, server.URL+"/api/sensor/history?device_id=1", token, nil)
	is.Equal(status, http.StatusOK)
}

func TestImportEndpointDeduplicates(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[
		{"created_at":"2026-03-01T12:00:00Z","entry_id":1,"field1":"25.5","field2":"60","field3":"23","field5":"1500"}
	]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/import", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["inserted"], 1.0)

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/import", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["inserted"], 0.0)

	status, env := doJSON(t, http.MethodGet, server.URL+"/api/environment", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(env["air_temp"], 25.5)
	is.Equal(env["lux"], 1500.0)
}

func TestInitDBReturnsStepMessages(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/init-db", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["success"], true)

	messages := body["messages"].([]any)
	is.True(len(messages) > 0)
}

func TestAlertLifecycle(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/alerts", "",
		map[string]any{"plot_id": 1, "alert_type": "high_temp", "severity": "warning", "message": "hot"})
	is.Equal(status, http.StatusCreated)

	alertID := int(body["id"].(float64))
	is.True(alertID > 0)

	status, _ = doJSON(t, http.MethodPut, server.URL+"/api/alerts/"+strconv.Itoa(alertID)+"/resolve", "", nil)
	is.Equal(status, http.StatusOK)

	status, _ = doJSON(t, http.MethodPut, server.URL+"/api/alerts/99999/resolve", "", nil)
	is.Equal(status, http.StatusNotFound)

	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/alerts", "",
		map[string]any{"plot_id": 1})
	is.Equal(status, http.StatusBadRequest)
}

func TestWeatherFamilyEndpoints(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/weather/init", "", nil)
	is.Equal(status, http.StatusOK)

	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/weather", "",
		map[string]any{"plot_id": 1, "temp": 21.5, "condition": "cloudy"})
	is.Equal(status, http.StatusCreated)

	resp, err := http.Get(server.URL + "/api/weather?plot_id=1")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	rows := []map[string]any{}
	is.NoErr(json.NewDecoder(resp.Body).Decode(&rows))
	is.Equal(len(rows), 1)
	is.Equal(rows[0]["condition"], "cloudy")
}

func TestDeviceLogsFamilyEndpoints(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, _ := doJSON(t, http.MethodPost, server.URL+"/api/device-logs/init", "", nil)
	is.Equal(status, http.StatusOK)

	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/device-logs", "",
		map[string]any{"device_id": 1, "action": "ON", "source": "manual"})
	is.Equal(status, http.StatusCreated)

	resp, err := http.Get(server.URL + "/api/device-logs?device_id=1")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	rows := []map[string]any{}
	is.NoErr(json.NewDecoder(resp.Body).Decode(&rows))
	// Seeding writes one log for the first device; the insert above
	// adds a second.
	is.Equal(len(rows), 2)
}

func TestDeviceLogReadEndpoints(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, _ := doJSON(t, http.MethodPut, server.URL+"/api/devices/Water%20Pump", "",
		map[string]any{"status": false, "source": "app"})
	is.Equal(status, http.StatusOK)

	resp, err := http.Get(server.URL + "/api/devices/Water%20Pump/logs")
	is.NoErr(err)
	defer resp.Body.Close()
	is.Equal(resp.StatusCode, http.StatusOK)

	logs := []map[string]any{}
	is.NoErr(json.NewDecoder(resp.Body).Decode(&logs))
	is.Equal(len(logs), 2)

	resp2, err := http.Get(server.URL + "/api/devices/Water%20Pump/schedules")
	is.NoErr(err)
	defer resp2.Body.Close()
	is.Equal(resp2.StatusCode, http.StatusOK)

	schedules := []map[string]any{}
	is.NoErr(json.NewDecoder(resp2.Body).Decode(&schedules))
	is.Equal(len(schedules), 1)
	is.Equal(schedules[0]["on_time"], "06:00:00")
}

func TestStatisticsEndpoint(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodGet, server.URL+"/api/statistics?hours=12", "", nil)
	is.Equal(status, http.StatusOK)
	is.Equal(body["hours"], 12.0)
	is.Equal(body["samples"], 0.0)
}

func TestProfileUpdateRequiresAndUsesToken(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, _ := doJSON(t, http.MethodPut, server.URL+"/api/user/profile", "",
		map[string]any{"display_name": "Greta"})
	is.Equal(status, http.StatusUnauthorized)

	_, login := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "admin", "password": "admin123"})
	token := login["access_token"].(string)

	status, body := doJSON(t, http.MethodPut, server.URL+"/api/user/profile", token,
		map[string]any{"display_name": "Site Admin", "email": "admin@example.com"})
	is.Equal(status, http.StatusOK)
	is.Equal(body["success"], true)
}

func TestRefreshEndpoint(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	_, login := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "",
		map[string]string{"username": "admin", "password": "admin123"})

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/refresh", "",
		map[string]string{"refresh_token": login["refresh_token"].(string)})
	is.Equal(status, http.StatusOK)
	is.True(body["access_token"] != "")

	// An access token is not accepted in place of a refresh token.
	status, _ = doJSON(t, http.MethodPost, server.URL+"/api/auth/refresh", "",
		map[string]string{"refresh_token": login["access_token"].(string)})
	is.Equal(status, http.StatusUnauthorized)
}

func TestCheckUsername(t *testing.T) {
	is := is.New(t)
	server := setupServer(t, `{"feeds":[]}`)

	status, body := doJSON(t, http.MethodPost, server.URL+"/api/auth/check", "",
		map[string]string{"username": "admin"})
	is.Equal(status, http.StatusOK)
	is.Equal(body["exists"], true)
	is.Equal(body["available"], false)

	status, body = doJSON(t, http.MethodPost, server.URL+"/api/auth/check", "",
		map[string]string{"username": "nobody"})
	is.Equal(status, http.StatusOK)
	is.Equal(body["available"], true)
}
