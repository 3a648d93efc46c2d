package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var ErrPlotNotFound = fmt.Errorf("plot not found")

type PlotRepository interface {
	GetAll(ctx context.Context) ([]Plot, error)
	GetByID(ctx context.Context, plotID int) (Plot, error)
	Create(ctx context.Context, plot *Plot) error
	Update(ctx context.Context, plotID int, plot Plot) error
	Delete(ctx context.Context, plotID int) error
}

type plotRepository struct {
	db *gorm.DB
}

func NewPlotRepository(db *gorm.DB) PlotRepository {
	return &plotRepository{db: db}
}

func (r *plotRepository) GetAll(ctx context.Context) ([]Plot, error) {
	plots := []Plot{}

	result := r.db.WithContext(ctx).Order("plot_id asc").Find(&plots)
	return plots, result.Error
}

func (r *plotRepository) GetByID(ctx context.Context, plotID int) (Plot, error) {
	var plot Plot

	result := r.db.WithContext(ctx).First(&plot, "plot_id = ?", plotID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Plot{}, ErrPlotNotFound
		}
		return Plot{}, result.Error
	}

	return plot, nil
}

func (r *plotRepository) Create(ctx context.Context, plot *Plot) error {
	return r.db.WithContext(ctx).Create(plot).Error
}

func (r *plotRepository) Update(ctx context.Context, plotID int, plot Plot) error {
	result := r.db.WithContext(ctx).Model(&Plot{}).
		Where("plot_id = ?", plotID).
		Updates(map[string]any{
			"plot_name":     plot.PlotName,
			"image_path":    plot.ImagePath,
			"plant_type":    plot.PlantType,
			"planting_date": plot.PlantingDate,
			"leaf_temp":     plot.LeafTemp,
			"water_level":   plot.WaterLevel,
			"note":          plot.Note,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPlotNotFound
	}

	return nil
}

func (r *plotRepository) Delete(ctx context.Context, plotID int) error {
	return r.db.WithContext(ctx).Delete(&Plot{}, "plot_id = ?", plotID).Error
}
