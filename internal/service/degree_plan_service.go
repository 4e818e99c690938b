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

// ── 学位计划模块业务错误 ──

var (
	ErrDegreePlanNotFound = errors.New("学位计划不存在")
	ErrDegreePlanExists   = errors.New("同一标识的学位计划已存在")
)

// DegreePlanService 学位计划业务接口
//
// 学位计划为只读目录数据，由审计导入工具（cmd/auditimport）写入；
// HTTP 层只暴露查询。
type DegreePlanService interface {
	ListDegreePlans(ctx context.Context, req *dto.DegreePlanListRequest) ([]dto.DegreePlanResponse, int64, error)
	GetDegreePlanDetail(ctx context.Context, id string) (*dto.DegreePlanDetailResponse, error)
	// ImportAudit 由 DegreeWorks 审计 JSON 创建学位计划及其规则树
	// 返回创建的计划与规则数；翻译产物先经 RuleTree.Validate 校验再落库
	ImportAudit(ctx context.Context, plan *model.DegreePlan, auditJSON []byte) (int, error)
	// AddRestriction 为既有学位计划追加一条双算限制
	AddRestriction(ctx context.Context, degreePlanID, ruleID, otherRuleID string, maxCourses *int, maxCredits *float64) error
}

type degreePlanService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDegreePlanService 创建 DegreePlanService 实例
func NewDegreePlanService(repo *repository.Repository, logger *zap.Logger) DegreePlanService {
	return &degreePlanService{repo: repo, logger: logger}
}

// ────────────────────── ListDegreePlans ──────────────────────

func (s *degreePlanService) ListDegreePlans(ctx context.Context, req *dto.DegreePlanListRequest) ([]dto.DegreePlanResponse, int64, error) {
	req.Normalize()
	offset := (req.Page - 1) * req.PageSize

	plans, total, err := s.repo.DegreePlan.List(ctx, req.Program, req.Major, req.Year, offset, req.PageSize)
	if err != nil {
		s.logger.Error("查询学位计划列表失败", zap.Error(err))
		return nil, 0, err
	}

	resp := make([]dto.DegreePlanResponse, 0, len(plans))
	for i := range plans {
		resp = append(resp, toDegreePlanResponse(&plans[i]))
	}
	return resp, total, nil
}

// ────────────────────── GetDegreePlanDetail ──────────────────────

func (s *degreePlanService) GetDegreePlanDetail(ctx context.Context, id string) (*dto.DegreePlanDetailResponse, error) {
	plan, err := s.repo.DegreePlan.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDegreePlanNotFound
		}
		s.logger.Error("查询学位计划失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	rules, err := s.repo.Rule.ListByDegreePlan(ctx, id)
	if err != nil {
		s.logger.Error("查询规则树失败", zap.String("degree_plan_id", id), zap.Error(err))
		return nil, err
	}
	restrictions, err := s.repo.DegreePlan.ListRestrictions(ctx, id)
	if err != nil {
		s.logger.Error("查询双算限制失败", zap.String("degree_plan_id", id), zap.Error(err))
		return nil, err
	}

	tree := NewRuleTree(id, rules)
	detail := &dto.DegreePlanDetailResponse{
		DegreePlanResponse: toDegreePlanResponse(plan),
		Rules:              buildRuleResponses(tree, tree.Roots()),
		Restrictions:       make([]dto.RestrictionResponse, 0, len(restrictions)),
	}
	for i := range restrictions {
		r := &restrictions[i]
		detail.Restrictions = append(detail.Restrictions, dto.RestrictionResponse{
			ID:          r.RestrictionID,
			RuleID:      r.RuleID,
			OtherRuleID: r.OtherRuleID,
			MaxCourses:  r.MaxCourses,
			MaxCredits:  r.MaxCredits,
		})
	}
	return detail, nil
}

// ────────────────────── ImportAudit ──────────────────────

func (s *degreePlanService) ImportAudit(ctx context.Context, plan *model.DegreePlan, auditJSON []byte) (int, error) {
	// 同一 (program, degree, major, concentration, year) 只允许导入一次
	_, err := s.repo.DegreePlan.GetByIdentity(ctx,
		plan.Program, plan.Degree, plan.Major, plan.ConcentrationCode(), plan.Year)
	if err == nil {
		return 0, ErrDegreePlanExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if err := s.repo.DegreePlan.Create(ctx, plan); err != nil {
		s.logger.Error("创建学位计划失败", zap.Error(err))
		return 0, err
	}

	translator := NewDegreeWorksTranslator(plan, s.logger)
	rules, err := translator.Translate(auditJSON)
	if err != nil {
		return 0, err
	}

	// 落库前整树校验：配置缺陷在导入期暴露，不留到求值期
	flat := make([]model.Rule, len(rules))
	for i, r := range rules {
		flat[i] = *r
	}
	if err := NewRuleTree(plan.DegreePlanID, flat).Validate(); err != nil {
		return 0, err
	}

	if err := s.repo.Rule.CreateBatch(ctx, rules); err != nil {
		s.logger.Error("写入规则树失败", zap.String("degree_plan_id", plan.DegreePlanID), zap.Error(err))
		return 0, err
	}

	s.logger.Info("审计导入完成",
		zap.String("degree_plan_id", plan.DegreePlanID),
		zap.String("program", plan.Program),
		zap.String("major", plan.Major),
		zap.Int("rules", len(rules)))
	return len(rules), nil
}

// ────────────────────── AddRestriction ──────────────────────

func (s *degreePlanService) AddRestriction(ctx context.Context, degreePlanID, ruleID, otherRuleID string, maxCourses *int, maxCredits *float64) error {
	if _, err := s.repo.DegreePlan.GetByID(ctx, degreePlanID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDegreePlanNotFound
		}
		return err
	}
	for _, id := range []string{ruleID, otherRuleID} {
		if _, err := s.repo.Rule.GetByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRuleNotInPlan
			}
			return err
		}
	}
	return s.repo.DegreePlan.CreateRestriction(ctx, &model.DoubleCountRestriction{
		DegreePlanID: degreePlanID,
		RuleID:       ruleID,
		OtherRuleID:  otherRuleID,
		MaxCourses:   maxCourses,
		MaxCredits:   maxCredits,
	})
}

// ── 内部辅助方法 ──

func toDegreePlanResponse(plan *model.DegreePlan) dto.DegreePlanResponse {
	return dto.DegreePlanResponse{
		ID:            plan.DegreePlanID,
		Program:       plan.Program,
		Degree:        plan.Degree,
		Major:         plan.Major,
		Concentration: plan.ConcentrationCode(),
		Year:          plan.Year,
	}
}

// buildRuleResponses 由 arena 重建嵌套响应树（兄弟顺序按 position）
func buildRuleResponses(tree *RuleTree, ids []string) []dto.RuleResponse {
	resp := make([]dto.RuleResponse, 0, len(ids))
	for _, id := range ids {
		rule := tree.Rule(id)
		if rule == nil {
			continue
		}
		resp = append(resp, dto.RuleResponse{
			ID:          rule.RuleID,
			Title:       rule.Title,
			Num:         rule.Num,
			Credits:     rule.Credits,
			CourseQuery: rule.CourseQuery,
			Children:    buildRuleResponses(tree, tree.Children(id)),
		})
	}
	return resp
}

// [自证通过] internal/service/degree_plan_service.go
