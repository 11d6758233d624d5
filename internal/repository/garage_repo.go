package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"reppyroute/internal/domain"
)

type VehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

func (r *VehicleRepository) WithTx(tx *gorm.DB) *VehicleRepository {
	return &VehicleRepository{db: tx}
}

func (r *VehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VehicleRepository) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	var v domain.Vehicle
	if err := r.db.WithContext(ctx).First(&v, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

func (r *VehicleRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *VehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	v.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(v).Error
}

func (r *VehicleRepository) Delete(ctx context.Context, id, ownerID int64) error {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.Vehicle{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	// Requests keep their copied make/model/year.
	return r.db.WithContext(ctx).Model(&domain.RepairRequest{}).
		Where("vehicle_id = ?", id).Update("vehicle_id", nil).Error
}

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) WithTx(tx *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	var d domain.Document
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID int64, vehicleID *int64) ([]domain.Document, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if vehicleID != nil {
		q = q.Where("vehicle_id = ?", *vehicleID)
	}
	var out []domain.Document
	err := q.Order("created_at DESC, id DESC").Find(&out).Error
	return out, err
}

func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.Document{}, id).Error
}

// DetachVehicle keeps a deleted vehicle's documents as general documents.
func (r *DocumentRepository) DetachVehicle(ctx context.Context, vehicleID int64) error {
	return r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("vehicle_id = ?", vehicleID).Update("vehicle_id", nil).Error
}
