// Package records serves the auxiliary fact tables (weather, alerts,
// maintenance and friends) through one generic implementation instead
// of one hand-written repository per table.
package records

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/events"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
	"gorm.io/gorm"
)

var ErrRecordNotFound = fmt.Errorf("record not found")

// Family is the generic {init, add, list} surface for one fact table.
// Every family is a timestamped row with a single scope column (plot,
// device or tag) used for filtering.
type Family[T any] struct {
	db          *gorm.DB
	name        string
	scopeColumn string
	orderColumn string
	log         zerolog.Logger
}

func NewFamily[T any](db *gorm.DB, name, scopeColumn, orderColumn string, log zerolog.Logger) *Family[T] {
	return &Family[T]{
		db:          db,
		name:        name,
		scopeColumn: scopeColumn,
		orderColumn: orderColumn,
		log:         log,
	}
}

func (f *Family[T]) Name() string { return f.name }

// ScopeColumn is the query parameter name clients filter lists on.
func (f *Family[T]) ScopeColumn() string { return f.scopeColumn }

// Init creates or updates the family's table. Safe to call repeatedly.
func (f *Family[T]) Init(ctx context.Context) error {
	var model T
	err := f.db.WithContext(ctx).AutoMigrate(&model)
	if err != nil {
		return fmt.Errorf("failed to initialize %s table: %w", f.name, err)
	}

	f.log.Debug().Str("family", f.name).Msg("table initialized")
	return nil
}

func (f *Family[T]) Add(ctx context.Context, record *T) error {
	err := f.db.WithContext(ctx).Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to store %s record: %w", f.name, err)
	}
	return nil
}

// List returns the newest rows first, optionally filtered on the
// family's scope column. Numeric scope values are compared as
// integers so typed columns match on every backend.
func (f *Family[T]) List(ctx context.Context, scope string, limit int) ([]T, error) {
	rows := []T{}

	query := f.db.WithContext(ctx).Order(f.orderColumn + " desc")

	if scope != "" && f.scopeColumn != "" {
		if n, err := strconv.Atoi(scope); err == nil {
			query = query.Where(f.scopeColumn+" = ?", n)
		} else {
			query = query.Where(f.scopeColumn+" = ?", scope)
		}
	}

	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", f.name, result.Error)
	}

	return rows, nil
}

// Registry bundles every fact table family behind one dependency.
// Alerts get extra treatment: new alerts are copied to the mirror and
// announced on the event bus, both best-effort.
type Registry struct {
	db     *gorm.DB
	mirror mirror.Store
	events events.Publisher
	log    zerolog.Logger

	BinData       *Family[database.TrashBinLog]
	Weather       *Family[database.WeatherLog]
	Alerts        *Family[database.AlertLog]
	Maintenance   *Family[database.MaintenanceSchedule]
	CropHealth    *Family[database.CropHealthMetric]
	DeviceHistory *Family[database.DeviceStatusHistory]
	DeviceLogs    *Family[database.DeviceLog]
}

func NewRegistry(db *gorm.DB, m mirror.Store, publisher events.Publisher, log zerolog.Logger) *Registry {
	return &Registry{
		db:     db,
		mirror: m,
		events: publisher,
		log:    log,

		BinData:       NewFamily[database.TrashBinLog](db, "bin-data", "bin_tag", "created_at", log),
		Weather:       NewFamily[database.WeatherLog](db, "weather", "plot_id", "recorded_at", log),
		Alerts:        NewFamily[database.AlertLog](db, "alerts", "plot_id", "created_at", log),
		Maintenance:   NewFamily[database.MaintenanceSchedule](db, "maintenance", "device_id", "created_at", log),
		CropHealth:    NewFamily[database.CropHealthMetric](db, "crop-health", "plot_id", "measured_at", log),
		DeviceHistory: NewFamily[database.DeviceStatusHistory](db, "device-history", "device_id", "recorded_at", log),
		DeviceLogs:    NewFamily[database.DeviceLog](db, "device-logs", "device_id", "created_at", log),
	}
}

func (r *Registry) AddAlert(ctx context.Context, alert *database.AlertLog) error {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	if err := r.Alerts.Add(ctx, alert); err != nil {
		return err
	}

	if err := r.mirror.CreateAlert(ctx, map[string]any{
		"plot_id":    alert.PlotID,
		"alert_type": alert.AlertType,
		"severity":   alert.Severity,
		"message":    alert.Message,
	}); err != nil {
		r.log.Warn().Err(err).Msg("mirror alert write failed")
	}

	r.events.PublishAlert(ctx, events.AlertCreated{
		PlotID:    alert.PlotID,
		AlertType: alert.AlertType,
		Severity:  alert.Severity,
		Message:   alert.Message,
		Timestamp: alert.CreatedAt,
	})

	return nil
}

// ResolveAlert marks one alert row resolved and stamps the resolution
// time. Resolving an already resolved alert succeeds again; only a
// missing row is an error.
func (r *Registry) ResolveAlert(ctx context.Context, alertID int64) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&database.AlertLog{}).
		Where("id = ?", alertID).
		Updates(map[string]any{"resolved": true, "resolved_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	return nil
}
