package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// SeedDevice describes a device row the reconciler creates when the
// devices table is empty. The set is configurable via the service
// configuration file; DefaultSeedDevices matches the stock setup.
type SeedDevice struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Status string `yaml:"status"`
	Mode   string `yaml:"mode"`
}

func DefaultSeedDevices() []SeedDevice {
	return []SeedDevice{
		{Name: "Water Pump", Type: "WATER_PUMP", Status: StatusOn, Mode: ModeAuto},
		{Name: "Grow Light", Type: "LIGHT", Status: StatusOff, Mode: ModeManual},
	}
}

// Reconciler brings the store from empty or partially migrated to
// fully usable. Every step is idempotent and independently wrapped, so
// the reconciler can run any number of times, at startup and on
// demand, without ever failing destructively against live data.
type Reconciler struct {
	db          *gorm.DB
	log         zerolog.Logger
	seedDevices []SeedDevice
}

func NewReconciler(db *gorm.DB, log zerolog.Logger, seedDevices []SeedDevice) *Reconciler {
	if len(seedDevices) == 0 {
		seedDevices = DefaultSeedDevices()
	}
	return &Reconciler{db: db, log: log, seedDevices: seedDevices}
}

type migrationStep struct {
	name  string
	apply func(db *gorm.DB) error
}

// tableModels lists every model in foreign key dependency order:
// parents before children, so that create and seed both work from an
// empty database.
func tableModels() []any {
	return []any{
		&User{},
		&Plot{},
		&SensorLog{},
		&StressPrediction{},
		&Device{},
		&DeviceSchedule{},
		&DeviceLog{},
		&SensorData{},
		&WeatherLog{},
		&AlertLog{},
		&MaintenanceSchedule{},
		&CropHealthMetric{},
		&DeviceStatusHistory{},
		&TrashBinLog{},
	}
}

func (r *Reconciler) steps() []migrationStep {
	steps := make([]migrationStep, 0, 32)

	for _, model := range tableModels() {
		model := model
		name := "table"
		if t, ok := model.(interface{ TableName() string }); ok {
			name = t.TableName()
		}
		steps = append(steps, migrationStep{
			name: fmt.Sprintf("%s table OK", name),
			apply: func(db *gorm.DB) error {
				return db.AutoMigrate(model)
			},
		})
	}

	// Additive column migrations for databases created by earlier
	// releases. AutoMigrate covers fresh installs; these steps cover
	// tables that predate the columns. "Already applied" is a normal
	// outcome, not an error.
	addColumns := []struct {
		model any
		field string
	}{
		{&User{}, "UserType"},
		{&User{}, "DisplayName"},
		{&User{}, "Email"},
		{&Plot{}, "ImagePath"},
		{&Plot{}, "PlantType"},
		{&Plot{}, "LeafTemp"},
		{&Plot{}, "WaterLevel"},
		{&Plot{}, "Note"},
		{&DeviceLog{}, "OldValue"},
		{&DeviceLog{}, "NewValue"},
	}

	for _, ac := range addColumns {
		ac := ac
		steps = append(steps, migrationStep{
			name: fmt.Sprintf("column %s ensured", ac.field),
			apply: func(db *gorm.DB) error {
				m := db.Migrator()
				if m.HasColumn(ac.model, ac.field) {
					return nil
				}
				return m.AddColumn(ac.model, ac.field)
			},
		})
	}

	return steps
}

// Reconcile runs every migration step and then seeds the minimal
// default rows. Step failures are logged and swallowed; the returned
// messages describe what was done and are suitable for the init
// endpoint response.
func (r *Reconciler) Reconcile(ctx context.Context) []string {
	db := r.db.WithContext(ctx)
	messages := make([]string, 0, 32)

	for _, step := range r.steps() {
		if err := step.apply(db); err != nil {
			r.log.Warn().Err(err).Str("step", step.name).Msg("migration step failed, continuing")
			continue
		}
		messages = append(messages, step.name)
	}

	seeded, err := r.seed(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("seeding failed, continuing")
	}
	messages = append(messages, seeded...)

	return messages
}

// Rebuild drops everything in strict child-before-parent order and
// reconciles from scratch. Clean provisioning only; never run this
// against a live system.
func (r *Reconciler) Rebuild(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	dropOrder := []any{
		&TrashBinLog{},
		&DeviceStatusHistory{},
		&CropHealthMetric{},
		&MaintenanceSchedule{},
		&AlertLog{},
		&WeatherLog{},
		&SensorData{},
		&DeviceLog{},
		&DeviceSchedule{},
		&Device{},
		&StressPrediction{},
		&SensorLog{},
		&Plot{},
		&User{},
	}

	for _, model := range dropOrder {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	r.Reconcile(ctx)
	return nil
}

// seed inserts the minimal rows foreign key dependents need, in
// dependency order: user, then plot, then devices with their schedule
// and first log entry. Each block only fires when its table is empty.
func (r *Reconciler) seed(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)
	messages := []string{}

	var userCount int64
	if err := db.Model(&User{}).Count(&userCount).Error; err != nil {
		return messages, err
	}

	admin := User{}
	if userCount == 0 {
		// The placeholder credential is stored as plain text on
		// purpose: it exercises the legacy verification fallback and
		// gets rehashed the first time the password is changed.
		admin = User{
			Username:  "admin",
			Password:  "admin123",
			UserType:  "admin",
			CreatedAt: time.Now(),
		}
		if err := db.Create(&admin).Error; err != nil {
			return messages, err
		}
		messages = append(messages, "default admin user created")
	} else {
		if err := db.Order("user_id asc").First(&admin).Error; err != nil {
			return messages, err
		}
	}

	var plotCount int64
	if err := db.Model(&Plot{}).Count(&plotCount).Error; err != nil {
		return messages, err
	}

	plot := Plot{}
	if plotCount == 0 {
		plot = Plot{
			UserID:       admin.UserID,
			PlotName:     "Default Plot",
			PlantingDate: time.Now(),
			CreatedAt:    time.Now(),
		}
		if err := db.Create(&plot).Error; err != nil {
			return messages, err
		}
		messages = append(messages, "default plot created")
	} else {
		if err := db.Order("plot_id asc").First(&plot).Error; err != nil {
			return messages, err
		}
	}

	var deviceCount int64
	if err := db.Model(&Device{}).Count(&deviceCount).Error; err != nil {
		return messages, err
	}

	if deviceCount == 0 {
		for i, sd := range r.seedDevices {
			device := Device{
				PlotID:     plot.PlotID,
				DeviceName: sd.Name,
				DeviceType: sd.Type,
				Status:     sd.Status,
				Mode:       sd.Mode,
				UpdatedAt:  time.Now(),
			}
			if err := db.Create(&device).Error; err != nil {
				return messages, err
			}

			// The first seeded device gets a schedule and an initial
			// log entry so that dependent views have data to show.
			if i == 0 {
				schedule := DeviceSchedule{
					DeviceID: device.DeviceID,
					OnTime:   "06:00:00",
					OffTime:  "18:00:00",
					IsActive: true,
				}
				if err := db.Create(&schedule).Error; err != nil {
					return messages, err
				}

				firstLog := DeviceLog{
					DeviceID:  device.DeviceID,
					Action:    sd.Status,
					Source:    "AUTO",
					CreatedAt: time.Now(),
				}
				if err := db.Create(&firstLog).Error; err != nil {
					return messages, err
				}
			}
		}
		messages = append(messages, "default devices created")
	}

	return messages, nil
}
