package database

import (
	"context"
	"testing"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	is := is.New(t)

	db, err := NewSQLiteConnector()()
	is.NoErr(err)

	return db
}

func TestReconcileCreatesSchemaAndSeeds(t *testing.T) {
	is := is.New(t)
	db := setupTestDB(t)
	ctx := context.Background()

	r := NewReconciler(db, zerolog.Nop(), nil)
	messages := r.Reconcile(ctx)
	is.True(len(messages) > 0)

	for _, model := range tableModels() {
		is.True(db.Migrator().HasTable(model))
	}

	var admin User
	is.NoErr(db.First(&admin, "username = ?", "admin").Error)
	is.Equal(admin.UserType, "admin")

	var plot Plot
	is.NoErr(db.First(&plot, "plot_name = ?", "Default Plot").Error)
	is.Equal(plot.UserID, admin.UserID)

	devices := []Device{}
	is.NoErr(db.Order("device_id asc").Find(&devices).Error)
	is.Equal(len(devices), 2)
	is.Equal(devices[0].DeviceName, "Water Pump")
	is.Equal(devices[0].Status, StatusOn)
	is.Equal(devices[0].Mode, ModeAuto)
	is.Equal(devices[1].DeviceName, "Grow Light")
	is.Equal(devices[1].Status, StatusOff)
	is.Equal(devices[1].Mode, ModeManual)

	var schedule DeviceSchedule
	is.NoErr(db.First(&schedule, "device_id = ?", devices[0].DeviceID).Error)
	is.Equal(schedule.OnTime, "06:00:00")
	is.Equal(schedule.OffTime, "18:00:00")
	is.True(schedule.IsActive)

	var logCount int64
	is.NoErr(db.Model(&DeviceLog{}).Count(&logCount).Error)
	is.Equal(logCount, int64(1))
}

func TestReconcileIsIdempotent(t *testing.T) {
	is := is.New(t)
	db := setupTestDB(t)
	ctx := context.Background()

	r := NewReconciler(db, zerolog.Nop(), nil)

	for i := 0; i < 3; i++ {
		r.Reconcile(ctx)
	}

	var userCount, plotCount, deviceCount, scheduleCount int64
	is.NoErr(db.Model(&User{}).Count(&userCount).Error)
	is.NoErr(db.Model(&Plot{}).Count(&plotCount).Error)
	is.NoErr(db.Model(&Device{}).Count(&deviceCount).Error)
	is.NoErr(db.Model(&DeviceSchedule{}).Count(&scheduleCount).Error)

	is.Equal(userCount, int64(1))
	is.Equal(plotCount, int64(1))
	is.Equal(deviceCount, int64(2))
	is.Equal(scheduleCount, int64(1))
}

func TestReconcileKeepsExistingRows(t *testing.T) {
	is := is.New(t)
	db := setupTestDB(t)
	ctx := context.Background()

	r := NewReconciler(db, zerolog.Nop(), nil)
	r.Reconcile(ctx)

	is.NoErr(db.Model(&User{}).Where("username = ?", "admin").
		Update("display_name", "Site Admin").Error)

	r.Reconcile(ctx)

	var admin User
	is.NoErr(db.First(&admin, "username = ?", "admin").Error)
	is.Equal(admin.DisplayName, "Site Admin")
}

func TestReconcileWithConfiguredSeedDevices(t *testing.T) {
	is := is.New(t)
	db := setupTestDB(t)
	ctx := context.Background()

	seed := []SeedDevice{
		{Name: "Fan", Type: "FAN", Status: StatusOff, Mode: ModeAuto},
	}

	r := NewReconciler(db, zerolog.Nop(), seed)
	r.Reconcile(ctx)

	devices := []Device{}
	is.NoErr(db.Find(&devices).Error)
	is.Equal(len(devices), 1)
	is.Equal(devices[0].DeviceName, "Fan")
}

func TestRebuildDropsAndRecreates(t *testing.T) {
	is := is.New(t)
	db := setupTestDB(t)
	ctx := context.Background()

	r := NewReconciler(db, zerolog.Nop(), nil)
	r.Reconcile(ctx)

	is.NoErr(db.Create(&User{Username: "greta", Password: "x"}).Error)

	is.NoErr(r.Rebuild(ctx))

	var userCount int64
	is.NoErr(db.Model(&User{}).Count(&userCount).Error)
	is.Equal(userCount, int64(1))
}
