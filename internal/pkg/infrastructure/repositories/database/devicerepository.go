package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrDeviceNotFound = fmt.Errorf("device not found")

type DeviceRepository interface {
	// GetByName returns the first device matching the name. Names are
	// not unique across plots in practice; first match wins.
	GetByName(ctx context.Context, name string) (Device, error)

	// SetStatusByName updates the named device's status, creating the
	// row with defaults when it does not exist, and appends an audit
	// log entry. Returns the device and whether it was created.
	SetStatusByName(ctx context.Context, name, status, source string) (Device, bool, error)

	AddLog(ctx context.Context, log *DeviceLog) error
	GetLogs(ctx context.Context, deviceID int, limit int) ([]DeviceLog, error)
	GetSchedules(ctx context.Context, deviceID int) ([]DeviceSchedule, error)
}

type deviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) GetByName(ctx context.Context, name string) (Device, error) {
	var device Device

	result := r.db.WithContext(ctx).
		Where("device_name = ?", name).
		Order("device_id asc").
		First(&device)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Device{}, ErrDeviceNotFound
		}
		return Device{}, result.Error
	}

	return device, nil
}

func (r *deviceRepository) SetStatusByName(ctx context.Context, name, status, source string) (Device, bool, error) {
	var device Device
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		oldStatus := ""

		result := tx.Where("device_name = ?", name).Order("device_id asc").First(&device)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}

			device = Device{
				PlotID:     1,
				DeviceName: name,
				DeviceType: "GENERAL",
				Status:     status,
				Mode:       ModeManual,
				UpdatedAt:  time.Now(),
			}
			if err := tx.Create(&device).Error; err != nil {
				return err
			}
			created = true
		} else {
			oldStatus = device.Status
			device.Status = status
			device.UpdatedAt = time.Now()

			updates := tx.Model(&Device{}).
				Where("device_id = ?", device.DeviceID).
				Updates(map[string]any{"status": status, "updated_at": device.UpdatedAt})
			if updates.Error != nil {
				return updates.Error
			}
		}

		return tx.Create(&DeviceLog{
			DeviceID:  device.DeviceID,
			Action:    status,
			Source:    source,
			OldValue:  oldStatus,
			NewValue:  status,
			CreatedAt: time.Now(),
		}).Error
	})
	if err != nil {
		return Device{}, false, err
	}

	return device, created, nil
}

func (r *deviceRepository) AddLog(ctx context.Context, log *DeviceLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *deviceRepository) GetLogs(ctx context.Context, deviceID int, limit int) ([]DeviceLog, error) {
	logs := []DeviceLog{}

	query := r.db.WithContext(ctx).Order("created_at desc")
	if deviceID > 0 {
		query = query.Where("device_id = ?", deviceID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&logs)
	return logs, result.Error
}

func (r *deviceRepository) GetSchedules(ctx context.Context, deviceID int) ([]DeviceSchedule, error) {
	schedules := []DeviceSchedule{}

	result := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Find(&schedules)
	return schedules, result.Error
}
