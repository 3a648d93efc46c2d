package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	collectionSensorReadings = "sensor_readings"
	collectionDeviceLogs     = "device_logs"
	collectionAlerts         = "alerts"
	collectionDevices        = "devices"
)

type badgerStore struct {
	db  *badger.DB
	log zerolog.Logger
}

// NewBadger opens an embedded document store at dir. The store is a
// mirror only; losing it loses nothing that the relational store does
// not already hold.
func NewBadger(dir string, log zerolog.Logger) (Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror store: %w", err)
	}

	log.Info().Str("dir", dir).Msg("mirror store opened")

	return &badgerStore{db: db, log: log}, nil
}

func (b *badgerStore) IsConnected() bool { return b.db != nil && !b.db.IsClosed() }

func (b *badgerStore) set(collection, docID string, doc map[string]any) error {
	value, err := json.Marshal(timestamped(doc))
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(collection+"/"+docID), value)
	})
}

func (b *badgerStore) SaveSensorReading(ctx context.Context, entryID string, doc map[string]any) error {
	if entryID == "" {
		return fmt.Errorf("missing entry id in sensor reading")
	}
	return b.set(collectionSensorReadings, entryID, doc)
}

func (b *badgerStore) SaveDeviceLog(ctx context.Context, logID string, doc map[string]any) error {
	if logID == "" {
		return fmt.Errorf("missing log id in device log")
	}
	return b.set(collectionDeviceLogs, logID, doc)
}

func (b *badgerStore) CreateAlert(ctx context.Context, doc map[string]any) error {
	return b.set(collectionAlerts, uuid.NewString(), doc)
}

func (b *badgerStore) UpdateDeviceStatus(ctx context.Context, deviceID int, status string) error {
	return b.set(collectionDevices, fmt.Sprintf("%d", deviceID), map[string]any{
		"status":     status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (b *badgerStore) list(collection string, limit int) ([]map[string]any, error) {
	docs := []map[string]any{}
	prefix := []byte(collection + "/")

	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				doc := map[string]any{}
				if err := json.Unmarshal(value, &doc); err != nil {
					return err
				}
				doc["id"] = string(item.Key()[len(prefix):])
				docs = append(docs, doc)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(docs, func(i, j int) bool {
		ti, _ := docs[i]["timestamp"].(string)
		tj, _ := docs[j]["timestamp"].(string)
		return ti > tj
	})

	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}

	return docs, nil
}

func (b *badgerStore) GetLatestSensorReadings(ctx context.Context, limit int) ([]map[string]any, error) {
	return b.list(collectionSensorReadings, limit)
}

func (b *badgerStore) GetAlerts(ctx context.Context, limit int) ([]map[string]any, error) {
	return b.list(collectionAlerts, limit)
}

func (b *badgerStore) Delete(ctx context.Context, collection, docID string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(collection + "/" + docID))
	})
}

func (b *badgerStore) Close() error {
	return b.db.Close()
}
