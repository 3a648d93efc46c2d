package ingest

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/mirror"
	"github.com/smartfarm/farm-mgmt/internal/pkg/infrastructure/repositories/database"
)

const feedTimestampLayout = "2006-01-02 15:04:05"

// Importer merges feed entries into the sensor log series without
// duplicating rows for a (plot, timestamp) pair.
type Importer struct {
	feed    FeedClient
	sensors database.SensorRepository
	mirror  mirror.Store
	plotID  int
	log     zerolog.Logger
}

func NewImporter(feed FeedClient, sensors database.SensorRepository, m mirror.Store, plotID int, log zerolog.Logger) *Importer {
	if plotID <= 0 {
		plotID = 1
	}
	return &Importer{
		feed:    feed,
		sensors: sensors,
		mirror:  m,
		plotID:  plotID,
		log:     log,
	}
}

// Run fetches one bounded window from the feed and commits every
// reading not already present. A fetch or parse failure aborts the
// run before anything is written; per-field parse failures never
// reject a row. Returns the number of newly inserted readings.
func (i *Importer) Run(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "import-run")
	defer span.End()

	entries, err := i.feed.FetchFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("feed fetch failed: %w", err)
	}

	readings := make([]database.SensorLog, 0, len(entries))

	for _, entry := range entries {
		timestamp, err := normalizeTimestamp(entry.CreatedAt)
		if err != nil {
			i.log.Warn().Str("created_at", entry.CreatedAt).Msg("skipping entry with unusable timestamp")
			continue
		}

		readings = append(readings, database.SensorLog{
			PlotID:    i.plotID,
			Timestamp: timestamp,
			AirTemp:   safeFloat(entry.Field1),
			Humidity:  safeFloat(entry.Field2),
			LeafTemp:  safeFloat(entry.Field3),
			LightLux:  safeFloat(entry.Field5),
			// The feed does not carry a water level channel, and the
			// stress index is not computed on this path. Both are
			// stored as placeholders; deriving CWSI from the
			// leaf/air differential is an open extension point.
			WaterLevel: 0.0,
			CwsiValue:  0.0,
		})
	}

	inserted, err := i.sensors.InsertNewReadings(ctx, readings)
	if err != nil {
		return 0, fmt.Errorf("failed to store readings: %w", err)
	}

	i.log.Info().Int("fetched", len(entries)).Int("inserted", len(inserted)).Msg("import run finished")

	i.mirrorReadings(inserted)

	return len(inserted), nil
}

// mirrorReadings copies newly inserted rows to the secondary store
// after the primary commit. Rows skipped as duplicates are already
// mirrored and are not rewritten. Best effort only: a slow or broken
// mirror costs a log line, never the run.
func (i *Importer) mirrorReadings(readings []database.SensorLog) {
	if !i.mirror.IsConnected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, r := range readings {
		entryID := fmt.Sprintf("%d-%s", r.PlotID, r.Timestamp.Format("20060102150405"))
		err := i.mirror.SaveSensorReading(ctx, entryID, map[string]any{
			"plot_id":     r.PlotID,
			"timestamp":   r.Timestamp.Format(feedTimestampLayout),
			"air_temp":    r.AirTemp,
			"humidity":    r.Humidity,
			"leaf_temp":   r.LeafTemp,
			"light_lux":   r.LightLux,
			"water_level": r.WaterLevel,
			"cwsi_value":  r.CwsiValue,
		})
		if err != nil {
			i.log.Warn().Err(err).Str("entry_id", entryID).Msg("mirror write failed")
			return
		}
	}
}

// safeFloat coerces a feed channel value to a float. Missing, empty,
// unparseable and NaN values all become 0.0 so that one bad channel
// never rejects a whole row.
func safeFloat(value string) float64 {
	if value == "" {
		return 0.0
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) {
		return 0.0
	}

	return f
}

// normalizeTimestamp strips the feed's 'T' separator and 'Z' marker
// and parses the result as-is. No timezone conversion happens; feed
// values are treated as already being in the store's convention.
func normalizeTimestamp(value string) (time.Time, error) {
	normalized := strings.NewReplacer("T", " ", "Z", "").Replace(value)
	return time.ParseInLocation(feedTimestampLayout, normalized, time.UTC)
}
