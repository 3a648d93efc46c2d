package database

import (
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
)

func setupDeviceRepo(t *testing.T) DeviceRepository {
	db := setupTestDB(t)
	NewReconciler(db, zerolog.Nop(), nil).Reconcile(context.Background())
	return NewDeviceRepository(db)
}

func TestGetByNameReturnsSeededDevice(t *testing.T) {
	is := is.New(t)
	repo := setupDeviceRepo(t)

	device, err := repo.GetByName(context.Background(), "Water Pump")
	is.NoErr(err)
	is.Equal(device.Status, StatusOn)
	is.Equal(device.Mode, ModeAuto)

	_, err = repo.GetByName(context.Background(), "Sprinkler")
	is.Equal(err, ErrDeviceNotFound)
}

func TestSetStatusUpdatesAndLogs(t *testing.T) {
	is := is.New(t)
	repo := setupDeviceRepo(t)
	ctx := context.Background()

	device, created, err := repo.SetStatusByName(ctx, "Water Pump", StatusOff, "api")
	is.NoErr(err)
	is.True(!created)
	is.Equal(device.Status, StatusOff)

	logs, err := repo.GetLogs(ctx, device.DeviceID, 10)
	is.NoErr(err)
	is.True(len(logs) >= 1)
	is.Equal(logs[0].Action, StatusOff)
	is.Equal(logs[0].Source, "api")
	is.Equal(logs[0].OldValue, StatusOn)
	is.Equal(logs[0].NewValue, StatusOff)
}

func TestSetStatusCreatesUnknownDevice(t *testing.T) {
	is := is.New(t)
	repo := setupDeviceRepo(t)
	ctx := context.Background()

	device, created, err := repo.SetStatusByName(ctx, "Sprinkler", StatusOn, "api")
	is.NoErr(err)
	is.True(created)
	is.Equal(device.PlotID, 1)
	is.Equal(device.DeviceType, "GENERAL")
	is.Equal(device.Mode, ModeManual)
	is.Equal(device.Status, StatusOn)

	logs, err := repo.GetLogs(ctx, device.DeviceID, 10)
	is.NoErr(err)
	is.Equal(len(logs), 1)
	is.Equal(logs[0].OldValue, "")
}

func TestSeededScheduleIsReadable(t *testing.T) {
	is := is.New(t)
	repo := setupDeviceRepo(t)
	ctx := context.Background()

	pump, err := repo.GetByName(ctx, "Water Pump")
	is.NoErr(err)

	schedules, err := repo.GetSchedules(ctx, pump.DeviceID)
	is.NoErr(err)
	is.Equal(len(schedules), 1)
	is.Equal(schedules[0].OnTime, "06:00:00")
}
