// Package mirror provides a best-effort secondary document store that
// receives duplicated copies of sensor readings, device logs and
// alerts. The relational store remains the sole source of truth: a
// mirror failure is logged and ignored, never propagated, and nothing
// here may block a primary write.
package mirror

import (
	"context"
	"time"
)

type Store interface {
	IsConnected() bool

	SaveSensorReading(ctx context.Context, entryID string, doc map[string]any) error
	SaveDeviceLog(ctx context.Context, logID string, doc map[string]any) error
	CreateAlert(ctx context.Context, doc map[string]any) error
	UpdateDeviceStatus(ctx context.Context, deviceID int, status string) error

	GetLatestSensorReadings(ctx context.Context, limit int) ([]map[string]any, error)
	GetAlerts(ctx context.Context, limit int) ([]map[string]any, error)

	Delete(ctx context.Context, collection, docID string) error
	Close() error
}

type disabled struct{}

// Disabled returns a mirror that accepts and drops everything. Used
// when no mirror data directory is configured.
func Disabled() Store {
	return &disabled{}
}

func (d *disabled) IsConnected() bool { return false }

func (d *disabled) SaveSensorReading(ctx context.Context, entryID string, doc map[string]any) error {
	return nil
}

func (d *disabled) SaveDeviceLog(ctx context.Context, logID string, doc map[string]any) error {
	return nil
}

func (d *disabled) CreateAlert(ctx context.Context, doc map[string]any) error {
	return nil
}

func (d *disabled) UpdateDeviceStatus(ctx context.Context, deviceID int, status string) error {
	return nil
}

func (d *disabled) GetLatestSensorReadings(ctx context.Context, limit int) ([]map[string]any, error) {
	return []map[string]any{}, nil
}

func (d *disabled) GetAlerts(ctx context.Context, limit int) ([]map[string]any, error) {
	return []map[string]any{}, nil
}

func (d *disabled) Delete(ctx context.Context, collection, docID string) error {
	return nil
}

func (d *disabled) Close() error { return nil }

func timestamped(doc map[string]any) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}
	if _, ok := doc["timestamp"]; !ok {
		doc["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}
	return doc
}
