package records

import (
	"context"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/application/events"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
)

func setupRegistry(t *testing.T) *Registry {
	is := is.New(t)

	db, err := database.NewSQLiteConnector()()
	is.NoErr(err)

	reg := NewRegistry(db, mirror.Disabled(), events.Noop(), zerolog.Nop())

	ctx := context.Background()
	is.NoErr(reg.BinData.Init(ctx))
	is.NoErr(reg.Weather.Init(ctx))
	is.NoErr(reg.Alerts.Init(ctx))
	is.NoErr(reg.Maintenance.Init(ctx))
	is.NoErr(reg.CropHealth.Init(ctx))
	is.NoErr(reg.DeviceHistory.Init(ctx))
	is.NoErr(reg.DeviceLogs.Init(ctx))

	return reg
}

func TestInitIsRepeatable(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)

	is.NoErr(reg.Weather.Init(context.Background()))
	is.NoErr(reg.Weather.Init(context.Background()))
}

func TestAddAndListNewestFirst(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)
	ctx := context.Background()

	older := database.WeatherLog{PlotID: 1, Temp: 20, RecordedAt: time.Now().Add(-time.Hour)}
	newer := database.WeatherLog{PlotID: 1, Temp: 22, RecordedAt: time.Now()}
	is.NoErr(reg.Weather.Add(ctx, &older))
	is.NoErr(reg.Weather.Add(ctx, &newer))

	rows, err := reg.Weather.List(ctx, "", 10)
	is.NoErr(err)
	is.Equal(len(rows), 2)
	is.Equal(rows[0].Temp, 22.0)
}

func TestListFiltersOnScope(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)
	ctx := context.Background()

	is.NoErr(reg.Weather.Add(ctx, &database.WeatherLog{PlotID: 1, Temp: 20, RecordedAt: time.Now()}))
	is.NoErr(reg.Weather.Add(ctx, &database.WeatherLog{PlotID: 2, Temp: 30, RecordedAt: time.Now()}))

	rows, err := reg.Weather.List(ctx, "2", 10)
	is.NoErr(err)
	is.Equal(len(rows), 1)
	is.Equal(rows[0].Temp, 30.0)
}

func TestListFiltersOnStringScope(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)
	ctx := context.Background()

	is.NoErr(reg.BinData.Add(ctx, &database.TrashBinLog{BinTag: "north", FillLevel: 40, CreatedAt: time.Now()}))
	is.NoErr(reg.BinData.Add(ctx, &database.TrashBinLog{BinTag: "south", FillLevel: 80, CreatedAt: time.Now()}))

	rows, err := reg.BinData.List(ctx, "south", 10)
	is.NoErr(err)
	is.Equal(len(rows), 1)
	is.Equal(rows[0].FillLevel, 80.0)
}

func TestListHonorsLimit(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		is.NoErr(reg.CropHealth.Add(ctx, &database.CropHealthMetric{
			PlotID: 1, Metric: "ndvi", Value: float64(i), MeasuredAt: time.Now(),
		}))
	}

	rows, err := reg.CropHealth.List(ctx, "", 3)
	is.NoErr(err)
	is.Equal(len(rows), 3)
}

func TestResolveAlert(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)
	ctx := context.Background()

	alert := database.AlertLog{PlotID: 1, AlertType: "high_temp", Severity: "warning", Message: "air temp above threshold"}
	is.NoErr(reg.AddAlert(ctx, &alert))
	is.True(alert.ID != 0)
	is.True(!alert.CreatedAt.IsZero())

	is.NoErr(reg.ResolveAlert(ctx, alert.ID))

	rows, err := reg.Alerts.List(ctx, "", 10)
	is.NoErr(err)
	is.Equal(len(rows), 1)
	is.True(rows[0].Resolved)
	is.True(rows[0].ResolvedAt != nil)
}

func TestResolveMissingAlert(t *testing.T) {
	is := is.New(t)
	reg := setupRegistry(t)

	err := reg.ResolveAlert(context.Background(), 4711)
	is.Equal(err, ErrRecordNotFound)
}
