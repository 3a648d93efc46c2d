// Package farming is the domain service behind the dashboard and
// actuator endpoints. It owns DTO conversion and input defaulting so
// that the repositories stay free of wire concerns.
package farming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/events"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"github.com/smartfarm/farm-mgmt/pkg/types"
)

var ErrPlotNotFound = fmt.Errorf("plot not found")
var ErrUnknownSensorType = fmt.Errorf("unknown sensor type")
var ErrSensorDataNotFound = fmt.Errorf("sensor data not found")
var ErrInvalidPrediction = fmt.Errorf("target_time must be after pred_time")

const plantingDateLayout = "2006-01-02"
const logTimestampLayout = "2006-01-02 15:04:05"

// sensorTypes maps the public query parameter to its storage column.
// Anything outside this map is rejected before it reaches a query.
var sensorTypes = map[string]string{
	"air_temp":    "air_temp",
	"humidity":    "humidity",
	"lux":         "light_lux",
	"leaf_temp":   "leaf_temp",
	"water_level": "water_level",
}

type Service interface {
	Environment(ctx context.Context) (types.Environment, error)
	LatestValue(ctx context.Context, sensorType string) (types.SensorValue, error)
	SensorLogs(ctx context.Context, limit int) ([]types.SensorLogEntry, error)
	Statistics(ctx context.Context, hours int) (types.Statistics, error)

	Plots(ctx context.Context) ([]database.Plot, error)
	CreatePlot(ctx context.Context, req types.PlotRequest) (database.Plot, error)
	UpdatePlot(ctx context.Context, plotID int, req types.PlotRequest) error
	DeletePlot(ctx context.Context, plotID int) error

	DeviceStatus(ctx context.Context, name string) (types.DeviceStatus, error)
	SetDeviceStatus(ctx context.Context, name string, on bool, source string) (types.DeviceStatus, error)
	DeviceLogs(ctx context.Context, name string, limit int) ([]database.DeviceLog, error)
	DeviceSchedules(ctx context.Context, name string) ([]database.DeviceSchedule, error)

	AddSensorData(ctx context.Context, data *database.SensorData) error
	LatestSensorData(ctx context.Context, deviceID int) (database.SensorData, bool, error)
	SensorHistory(ctx context.Context, deviceID, limit int) ([]database.SensorData, error)
	UpdateSensorData(ctx context.Context, dataID int, data database.SensorData) error
	CleanupSensorData(ctx context.Context, days int) (int64, error)

	AddPrediction(ctx context.Context, pred *database.StressPrediction) error
	Predictions(ctx context.Context, plotID, limit int) ([]database.StressPrediction, error)
}

type service struct {
	plots       database.PlotRepository
	devices     database.DeviceRepository
	sensors     database.SensorRepository
	predictions database.PredictionRepository
	mirror      mirror.Store
	events      events.Publisher
	log         zerolog.Logger
}

func New(
	plots database.PlotRepository,
	devices database.DeviceRepository,
	sensors database.SensorRepository,
	predictions database.PredictionRepository,
	m mirror.Store,
	publisher events.Publisher,
	log zerolog.Logger,
) Service {
	return &service{
		plots:       plots,
		devices:     devices,
		sensors:     sensors,
		predictions: predictions,
		mirror:      m,
		events:      publisher,
		log:         log,
	}
}

// Environment reports the most recent reading. An empty series yields
// the zero-valued snapshot rather than an error.
func (s *service) Environment(ctx context.Context) (types.Environment, error) {
	row, found, err := s.sensors.LatestEnvironment(ctx)
	if err != nil {
		return types.Environment{}, err
	}
	if !found {
		return types.Environment{}, nil
	}

	return types.Environment{
		AirTemp:  row.AirTemp,
		Humidity: row.Humidity,
		Lux:      row.LightLux,
		LeafTemp: row.LeafTemp,
	}, nil
}

func (s *service) LatestValue(ctx context.Context, sensorType string) (types.SensorValue, error) {
	column, ok := sensorTypes[sensorType]
	if !ok {
		return types.SensorValue{}, ErrUnknownSensorType
	}

	value, found, err := s.sensors.LatestValue(ctx, column)
	if err != nil {
		return types.SensorValue{}, err
	}
	if !found {
		return types.SensorValue{Value: 0.0}, nil
	}

	return types.SensorValue{Value: value}, nil
}

func (s *service) SensorLogs(ctx context.Context, limit int) ([]types.SensorLogEntry, error) {
	logs, err := s.sensors.ListLogs(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := lo.Map(logs, func(row database.SensorLog, _ int) types.SensorLogEntry {
		return types.SensorLogEntry{
			LogID:      row.LogID,
			PlotID:     row.PlotID,
			AirTemp:    row.AirTemp,
			Humidity:   row.Humidity,
			Lux:        row.LightLux,
			LeafTemp:   row.LeafTemp,
			WaterLevel: row.WaterLevel,
			CwsiValue:  row.CwsiValue,
			Timestamp:  row.Timestamp.Format(logTimestampLayout),
		}
	})

	return entries, nil
}

func (s *service) Statistics(ctx context.Context, hours int) (types.Statistics, error) {
	if hours <= 0 {
		hours = 24
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	avg, err := s.sensors.Averages(ctx, since)
	if err != nil {
		return types.Statistics{}, err
	}

	return types.Statistics{
		Hours:       hours,
		Samples:     avg.Samples,
		AvgAirTemp:  avg.AvgAirTemp,
		AvgHumidity: avg.AvgHumidity,
		AvgLux:      avg.AvgLux,
		AvgLeafTemp: avg.AvgLeafTemp,
	}, nil
}

func (s *service) Plots(ctx context.Context) ([]database.Plot, error) {
	return s.plots.GetAll(ctx)
}

// CreatePlot fills the gaps a sparse request leaves: the fallback
// owner, empty strings and today's planting date.
func (s *service) CreatePlot(ctx context.Context, req types.PlotRequest) (database.Plot, error) {
	if req.PlotName == "" {
		return database.Plot{}, fmt.Errorf("plot_name is required")
	}

	plot := database.Plot{
		UserID:       req.UserID,
		PlotName:     req.PlotName,
		ImagePath:    req.ImagePath,
		PlantType:    req.PlantType,
		PlantingDate: parsePlantingDate(req.PlantingDate),
		LeafTemp:     req.LeafTemp,
		WaterLevel:   req.WaterLevel,
		Note:         req.Note,
		CreatedAt:    time.Now(),
	}
	if plot.UserID == 0 {
		plot.UserID = 1
	}

	err := s.plots.Create(ctx, &plot)
	if err != nil {
		return database.Plot{}, err
	}

	return plot, nil
}

func (s *service) UpdatePlot(ctx context.Context, plotID int, req types.PlotRequest) error {
	if req.PlotName == "" {
		return fmt.Errorf("plot_name is required")
	}

	err := s.plots.Update(ctx, plotID, database.Plot{
		PlotName:     req.PlotName,
		ImagePath:    req.ImagePath,
		PlantType:    req.PlantType,
		PlantingDate: parsePlantingDate(req.PlantingDate),
		LeafTemp:     req.LeafTemp,
		WaterLevel:   req.WaterLevel,
		Note:         req.Note,
	})
	if errors.Is(err, database.ErrPlotNotFound) {
		return ErrPlotNotFound
	}
	return err
}

func (s *service) DeletePlot(ctx context.Context, plotID int) error {
	return s.plots.Delete(ctx, plotID)
}

// DeviceStatus resolves the named actuator. An unknown name yields
// the zero-valued shape so dashboards can poll before provisioning.
func (s *service) DeviceStatus(ctx context.Context, name string) (types.DeviceStatus, error) {
	device, err := s.devices.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrDeviceNotFound) {
			return types.DeviceStatus{}, nil
		}
		return types.DeviceStatus{}, err
	}

	return types.DeviceStatus{
		Status:   device.Status == database.StatusOn,
		Online:   true,
		AutoMode: device.Mode == database.ModeAuto,
	}, nil
}

func (s *service) SetDeviceStatus(ctx context.Context, name string, on bool, source string) (types.DeviceStatus, error) {
	status := database.StatusOff
	if on {
		status = database.StatusOn
	}
	if source == "" {
		source = "api"
	}

	device, created, err := s.devices.SetStatusByName(ctx, name, status, source)
	if err != nil {
		return types.DeviceStatus{}, err
	}

	if created {
		s.log.Info().Str("device", name).Msg("device row created on first status write")
	}

	if err := s.mirror.UpdateDeviceStatus(ctx, device.DeviceID, status); err != nil {
		s.log.Warn().Err(err).Str("device", name).Msg("mirror status write failed")
	}

	logID := fmt.Sprintf("%d-%s", device.DeviceID, time.Now().UTC().Format("20060102150405"))
	if err := s.mirror.SaveDeviceLog(ctx, logID, map[string]any{
		"device_id":   device.DeviceID,
		"device_name": name,
		"action":      status,
		"source":      source,
	}); err != nil {
		s.log.Warn().Err(err).Str("device", name).Msg("mirror log write failed")
	}

	s.events.PublishDeviceAction(ctx, events.DeviceAction{
		DeviceName: name,
		Action:     status,
		Source:     source,
	})

	return types.DeviceStatus{
		Status:   device.Status == database.StatusOn,
		Online:   true,
		AutoMode: device.Mode == database.ModeAuto,
	}, nil
}

// DeviceLogs returns the audit trail for the named device, newest
// first. Unknown devices yield an empty list, matching the zero-shape
// convention of the status reads.
func (s *service) DeviceLogs(ctx context.Context, name string, limit int) ([]database.DeviceLog, error) {
	device, err := s.devices.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrDeviceNotFound) {
			return []database.DeviceLog{}, nil
		}
		return nil, err
	}

	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	return s.devices.GetLogs(ctx, device.DeviceID, limit)
}

func (s *service) DeviceSchedules(ctx context.Context, name string) ([]database.DeviceSchedule, error) {
	device, err := s.devices.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, database.ErrDeviceNotFound) {
			return []database.DeviceSchedule{}, nil
		}
		return nil, err
	}

	return s.devices.GetSchedules(ctx, device.DeviceID)
}

func (s *service) AddSensorData(ctx context.Context, data *database.SensorData) error {
	return s.sensors.InsertData(ctx, data)
}

func (s *service) LatestSensorData(ctx context.Context, deviceID int) (database.SensorData, bool, error) {
	if deviceID <= 0 {
		deviceID = 1
	}
	return s.sensors.LatestData(ctx, deviceID)
}

func (s *service) SensorHistory(ctx context.Context, deviceID, limit int) ([]database.SensorData, error) {
	if deviceID <= 0 {
		deviceID = 1
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	return s.sensors.History(ctx, deviceID, limit)
}

func (s *service) UpdateSensorData(ctx context.Context, dataID int, data database.SensorData) error {
	err := s.sensors.UpdateData(ctx, dataID, data)
	if errors.Is(err, database.ErrSensorDataNotFound) {
		return ErrSensorDataNotFound
	}
	return err
}

func (s *service) CleanupSensorData(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = 30
	}

	olderThan := time.Now().AddDate(0, 0, -days)
	return s.sensors.Cleanup(ctx, olderThan)
}

func (s *service) AddPrediction(ctx context.Context, pred *database.StressPrediction) error {
	if pred.PredTime.IsZero() {
		pred.PredTime = time.Now()
	}

	err := s.predictions.Create(ctx, pred)
	if errors.Is(err, database.ErrInvalidPrediction) {
		return ErrInvalidPrediction
	}
	return err
}

func (s *service) Predictions(ctx context.Context, plotID, limit int) ([]database.StressPrediction, error) {
	return s.predictions.List(ctx, plotID, limit)
}

func parsePlantingDate(value string) time.Time {
	if value == "" {
		return time.Now()
	}

	parsed, err := time.Parse(plantingDateLayout, value)
	if err != nil {
		return time.Now()
	}

	return parsed
}
