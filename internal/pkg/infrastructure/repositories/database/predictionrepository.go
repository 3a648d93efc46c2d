package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

var ErrInvalidPrediction = fmt.Errorf("target_time must be after pred_time")

type PredictionRepository interface {
	Create(ctx context.Context, pred *StressPrediction) error
	List(ctx context.Context, plotID, limit int) ([]StressPrediction, error)
}

type predictionRepository struct {
	db *gorm.DB
}

func NewPredictionRepository(db *gorm.DB) PredictionRepository {
	return &predictionRepository{db: db}
}

func (r *predictionRepository) Create(ctx context.Context, pred *StressPrediction) error {
	// Validated here as well as by the schema check constraint, so the
	// caller gets a typed error instead of a driver specific one.
	if !pred.TargetTime.After(pred.PredTime) {
		return ErrInvalidPrediction
	}
	return r.db.WithContext(ctx).Create(pred).Error
}

func (r *predictionRepository) List(ctx context.Context, plotID, limit int) ([]StressPrediction, error) {
	preds := []StressPrediction{}

	query := r.db.WithContext(ctx).Order("pred_time desc")
	if plotID > 0 {
		query = query.Where("plot_id = ?", plotID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	result := query.Find(&preds)
	return preds, result.Error
}
