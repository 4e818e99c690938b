package dto

// ── 满足度评估 DTO ──

// SatisfactionStatusResponse 单条规则的满足状态
type SatisfactionStatusResponse struct {
	RuleID       string  `json:"rule_id"`
	DegreePlanID string  `json:"degree_plan_id"`
	Satisfied    bool    `json:"satisfied"`
	Courses      int     `json:"courses"` // 计入该规则的匹配课程数
	Credits      float64 `json:"credits"` // 计入该规则的匹配学分合计
}

// PlanSatisfactionResponse 整棵规则树的评估结果
type PlanSatisfactionResponse struct {
	UserDegreePlanID string                       `json:"user_degree_plan_id"`
	DegreePlanID     string                       `json:"degree_plan_id"`
	AllSatisfied     bool                         `json:"all_satisfied"` // 所有顶层规则均满足
	Statuses         []SatisfactionStatusResponse `json:"statuses"`
}

// [自证通过] internal/dto/satisfaction.go
