package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrSensorDataNotFound = fmt.Errorf("sensor data not found")
var ErrUnknownColumn = fmt.Errorf("unknown sensor column")

// sensorColumns whitelists the columns a latest-value query may order
// on. Request input never reaches SQL without passing through here.
var sensorColumns = map[string]struct{}{
	"air_temp":    {},
	"humidity":    {},
	"light_lux":   {},
	"leaf_temp":   {},
	"water_level": {},
	"cwsi_value":  {},
}

type SensorRepository interface {
	LatestEnvironment(ctx context.Context) (SensorLog, bool, error)
	LatestValue(ctx context.Context, column string) (float64, bool, error)
	ListLogs(ctx context.Context, limit int) ([]SensorLog, error)

	// InsertNewReadings stores every reading that has no existing row
	// for its (plot_id, timestamp) pair, committing all inserts
	// together, and returns the rows that were actually inserted. The
	// check-then-insert is a deliberate application level substitute
	// for a missing uniqueness constraint and is racy under
	// concurrent importers.
	InsertNewReadings(ctx context.Context, readings []SensorLog) ([]SensorLog, error)

	Averages(ctx context.Context, since time.Time) (SensorAverages, error)

	InsertData(ctx context.Context, data *SensorData) error
	LatestData(ctx context.Context, deviceID int) (SensorData, bool, error)
	History(ctx context.Context, deviceID, limit int) ([]SensorData, error)
	UpdateData(ctx context.Context, dataID int, data SensorData) error
	Cleanup(ctx context.Context, olderThan time.Time) (int64, error)
}

// SensorAverages is computed by the storage engine, not in Go.
type SensorAverages struct {
	Samples     int64
	AvgAirTemp  float64
	AvgHumidity float64
	AvgLux      float64
	AvgLeafTemp float64
}

type sensorRepository struct {
	db *gorm.DB
}

func NewSensorRepository(db *gorm.DB) SensorRepository {
	return &sensorRepository{db: db}
}

func (r *sensorRepository) LatestEnvironment(ctx context.Context) (SensorLog, bool, error) {
	var row SensorLog

	result := r.db.WithContext(ctx).Order("timestamp desc").First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return SensorLog{}, false, nil
		}
		return SensorLog{}, false, result.Error
	}

	return row, true, nil
}

func (r *sensorRepository) LatestValue(ctx context.Context, column string) (float64, bool, error) {
	if _, ok := sensorColumns[column]; !ok {
		return 0, false, ErrUnknownColumn
	}

	var value float64

	result := r.db.WithContext(ctx).Model(&SensorLog{}).
		Select(column).
		Order("timestamp desc").
		Limit(1).
		Scan(&value)
	if result.Error != nil {
		return 0, false, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, false, nil
	}

	return value, true, nil
}

func (r *sensorRepository) ListLogs(ctx context.Context, limit int) ([]SensorLog, error) {
	logs := []SensorLog{}

	query := r.db.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&logs)
	return logs, result.Error
}

func (r *sensorRepository) InsertNewReadings(ctx context.Context, readings []SensorLog) ([]SensorLog, error) {
	inserted := []SensorLog{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range readings {
			var count int64
			err := tx.Model(&SensorLog{}).
				Where("plot_id = ? AND timestamp = ?", readings[i].PlotID, readings[i].Timestamp).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			if err := tx.Create(&readings[i]).Error; err != nil {
				return err
			}
			inserted = append(inserted, readings[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return inserted, nil
}

func (r *sensorRepository) Averages(ctx context.Context, since time.Time) (SensorAverages, error) {
	var avg SensorAverages

	result := r.db.WithContext(ctx).Model(&SensorLog{}).
		Select("COUNT(*) as samples, "+
			"COALESCE(AVG(air_temp), 0) as avg_air_temp, "+
			"COALESCE(AVG(humidity), 0) as avg_humidity, "+
			"COALESCE(AVG(light_lux), 0) as avg_lux, "+
			"COALESCE(AVG(leaf_temp), 0) as avg_leaf_temp").
		Where("timestamp >= ?", since).
		Scan(&avg)

	return avg, result.Error
}

func (r *sensorRepository) InsertData(ctx context.Context, data *SensorData) error {
	if data.DeviceID == 0 {
		data.DeviceID = 1
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(data).Error
}

func (r *sensorRepository) LatestData(ctx context.Context, deviceID int) (SensorData, bool, error) {
	var row SensorData

	result := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at desc").
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return SensorData{}, false, nil
		}
		return SensorData{}, false, result.Error
	}

	return row, true, nil
}

func (r *sensorRepository) History(ctx context.Context, deviceID, limit int) ([]SensorData, error) {
	rows := []SensorData{}

	result := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at desc").
		Limit(limit).
		Find(&rows)
	return rows, result.Error
}

func (r *sensorRepository) UpdateData(ctx context.Context, dataID int, data SensorData) error {
	result := r.db.WithContext(ctx).Model(&SensorData{}).
		Where("data_id = ?", dataID).
		Updates(map[string]any{
			"temperature_air":  data.TemperatureAir,
			"temperature_leaf": data.TemperatureLeaf,
			"humidity":         data.Humidity,
			"water_level":      data.WaterLevel,
			"light_lux":        data.LightLux,
			"soil_moisture":    data.SoilMoisture,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSensorDataNotFound
	}

	return nil
}

func (r *sensorRepository) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Delete(&SensorData{})
	return result.RowsAffected, result.Error
}
