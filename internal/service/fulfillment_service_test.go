package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"penn-degree-plan/backend/internal/dto"
	"penn-degree-plan/backend/internal/model"
	"penn-degree-plan/backend/internal/repository"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
)

// ── 计划领域测试环境（履修/满足度/导出测试共用） ──

type planTestEnv struct {
	repo         *repository.Repository
	courses      *mockCourseRepo
	plans        *mockDegreePlanRepo
	rules        *mockRuleRepo
	userPlans    *mockUserDegreePlanRepo
	fulfillments *mockFulfillmentRepo
}

func newPlanTestEnv() *planTestEnv {
	courses := newMockCourseRepo()
	plans := newMockDegreePlanRepo()
	rules := newMockRuleRepo()
	userPlans := newMockUserDegreePlanRepo(plans)
	fulfillments := newMockFulfillmentRepo(rules)
	return &planTestEnv{
		repo: &repository.Repository{
			User:           newMockUserRepo(),
			Course:         courses,
			DegreePlan:     plans,
			Rule:           rules,
			UserDegreePlan: userPlans,
			Fulfillment:    fulfillments,
		},
		courses:      courses,
		plans:        plans,
		rules:        rules,
		userPlans:    userPlans,
		fulfillments: fulfillments,
	}
}

// seedPlan 预置学位计划 plan-1：
//
//	core      叶子，num=1，仅匹配 CIS-1200
//	electives 叶子，num=2，匹配 CIS 全学科
//
// 附带双算限制 core/electives max_courses=0，目录收录 CIS-1200 / CIS-1600。
func (e *planTestEnv) seedPlan(t *testing.T) *model.DegreePlan {
	t.Helper()
	ctx := context.Background()
	plan := &model.DegreePlan{
		DegreePlanID: "plan-1",
		Program:      "EU_BSE",
		Degree:       "BSE",
		Major:        "CSCI",
		Year:         2024,
	}
	if err := e.plans.Create(ctx, plan); err != nil {
		t.Fatalf("预置学位计划失败: %v", err)
	}

	planID := plan.DegreePlanID
	err := e.rules.CreateBatch(ctx, []*model.Rule{
		{RuleID: "core", Title: "Core", DegreePlanID: &planID, Num: intp(1), CourseQuery: fullCodeQuery("CIS-1200")},
		{RuleID: "electives", Title: "Electives", DegreePlanID: &planID, Num: intp(2), CourseQuery: deptQuery("CIS"), Position: 1},
	})
	if err != nil {
		t.Fatalf("预置规则失败: %v", err)
	}

	err = e.plans.CreateRestriction(ctx, &model.DoubleCountRestriction{
		DegreePlanID: planID,
		RuleID:       "core",
		OtherRuleID:  "electives",
		MaxCourses:   intp(0),
	})
	if err != nil {
		t.Fatalf("预置双算限制失败: %v", err)
	}

	e.courses.addCourse("CIS-1200", 1.0)
	e.courses.addCourse("CIS-1600", 1.0)
	return plan
}

// seedUserPlan 预置 user-1 名下的计划实例 udp-1
func (e *planTestEnv) seedUserPlan(t *testing.T, plan *model.DegreePlan) *model.UserDegreePlan {
	t.Helper()
	udp := &model.UserDegreePlan{
		UserDegreePlanID: "udp-1",
		UserID:           "user-1",
		DegreePlanID:     plan.DegreePlanID,
	}
	if err := e.userPlans.Create(context.Background(), udp); err != nil {
		t.Fatalf("预置计划实例失败: %v", err)
	}
	return udp
}

func setupFulfillmentTest(t *testing.T) (*planTestEnv, FulfillmentService) {
	t.Helper()
	env := newPlanTestEnv()
	return env, NewFulfillmentService(env.repo, zap.NewNop())
}

// ── CreateFulfillment ──

func TestCreateFulfillment_Success(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	resp, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		Semester: strp("2024C"),
		RuleIDs:  []string{"core"},
	})
	if err != nil {
		t.Fatalf("创建履修记录应成功: %v", err)
	}
	if resp.FullCode != "CIS-1200" || len(resp.RuleIDs) != 1 || resp.RuleIDs[0] != "core" {
		t.Errorf("响应内容不正确: %+v", resp)
	}

	list, err := svc.ListFulfillments(context.Background(), "user-1", "udp-1")
	if err != nil {
		t.Fatalf("查询履修记录应成功: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("期望 1 条履修记录，实际=%d", len(list))
	}
}

func TestCreateFulfillment_RestrictionViolationRejectsWhole(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	// CIS-1200 同时计入 core 与 electives，max_courses=0 → 整个请求拒绝
	_, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		Semester: strp("2024C"),
		RuleIDs:  []string{"core", "electives"},
	})
	v := pkgerrors.AsRuleViolation(err)
	if v == nil {
		t.Fatalf("期望 RuleViolation，实际: %v", err)
	}
	if len(v.SharedCourses) != 1 || v.SharedCourses[0] != "CIS-1200" {
		t.Errorf("违规详情应包含共享课程，实际=%v", v.SharedCourses)
	}

	// 不做部分写入
	list, _ := svc.ListFulfillments(context.Background(), "user-1", "udp-1")
	if len(list) != 0 {
		t.Errorf("违规请求不应留下任何记录，实际=%d 条", len(list))
	}
}

func TestCreateFulfillment_Duplicate(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	req := &dto.CreateFulfillmentRequest{FullCode: "CIS-1200", Semester: strp("2024C"), RuleIDs: []string{"core"}}
	if _, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", req); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", req)
	if !errors.Is(err, ErrDuplicateFulfillment) {
		t.Errorf("期望 ErrDuplicateFulfillment，实际=%v", err)
	}
}

func TestCreateFulfillment_DuplicatePlanned(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	// 未排期（semester 为空）的同一门课也只允许一条记录
	req := &dto.CreateFulfillmentRequest{FullCode: "CIS-1200", RuleIDs: []string{"core"}}
	if _, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", req); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", req)
	if !errors.Is(err, ErrDuplicateFulfillment) {
		t.Errorf("期望 ErrDuplicateFulfillment，实际=%v", err)
	}
}

func TestCreateFulfillment_RuleNotInPlan(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	_, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		RuleIDs:  []string{"not-a-rule"},
	})
	if !errors.Is(err, ErrRuleNotInPlan) {
		t.Errorf("期望 ErrRuleNotInPlan，实际=%v", err)
	}
}

func TestCreateFulfillment_Ownership(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	req := &dto.CreateFulfillmentRequest{FullCode: "CIS-1200"}
	if _, err := svc.CreateFulfillment(context.Background(), "user-2", "udp-1", req); !errors.Is(err, ErrNotPlanOwner) {
		t.Errorf("他人计划应返回 ErrNotPlanOwner，实际=%v", err)
	}
	if _, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-missing", req); !errors.Is(err, ErrUserPlanNotFound) {
		t.Errorf("不存在的计划应返回 ErrUserPlanNotFound，实际=%v", err)
	}
}

// ── UpdateFulfillment ──

func TestUpdateFulfillment_ReassignClaims(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	created, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		Semester: strp("2024C"),
		RuleIDs:  []string{"core"},
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	// 改计入 electives：旧行不参与校验，校验基于变更后状态
	ruleIDs := []string{"electives"}
	updated, err := svc.UpdateFulfillment(context.Background(), "user-1", "udp-1", created.ID, &dto.UpdateFulfillmentRequest{
		RuleIDs: &ruleIDs,
	})
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if len(updated.RuleIDs) != 1 || updated.RuleIDs[0] != "electives" {
		t.Errorf("期望计入 [electives]，实际=%v", updated.RuleIDs)
	}
}

func TestUpdateFulfillment_SemesterOnlyKeepsClaims(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	created, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		Semester: strp("2024C"),
		RuleIDs:  []string{"core"},
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	updated, err := svc.UpdateFulfillment(context.Background(), "user-1", "udp-1", created.ID, &dto.UpdateFulfillmentRequest{
		Semester: strp("2025A"),
	})
	if err != nil {
		t.Fatalf("更新应成功: %v", err)
	}
	if updated.Semester == nil || *updated.Semester != "2025A" {
		t.Errorf("期望学期改为 2025A，实际=%v", updated.Semester)
	}
	if len(updated.RuleIDs) != 1 || updated.RuleIDs[0] != "core" {
		t.Errorf("未提供 rule_ids 时应保留原计入，实际=%v", updated.RuleIDs)
	}
}

func TestUpdateFulfillment_ViolationRejected(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	created, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		Semester: strp("2024C"),
		RuleIDs:  []string{"core"},
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	ruleIDs := []string{"core", "electives"}
	_, err = svc.UpdateFulfillment(context.Background(), "user-1", "udp-1", created.ID, &dto.UpdateFulfillmentRequest{
		RuleIDs: &ruleIDs,
	})
	if pkgerrors.AsRuleViolation(err) == nil {
		t.Fatalf("期望 RuleViolation，实际: %v", err)
	}

	// 原计入不受影响
	list, _ := svc.ListFulfillments(context.Background(), "user-1", "udp-1")
	if len(list) != 1 || len(list[0].RuleIDs) != 1 || list[0].RuleIDs[0] != "core" {
		t.Errorf("违规更新不应改变原记录，实际=%+v", list)
	}
}

func TestUpdateFulfillment_WrongPlan(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	udp2 := &model.UserDegreePlan{UserDegreePlanID: "udp-2", UserID: "user-1", DegreePlanID: plan.DegreePlanID}
	if err := env.userPlans.Create(context.Background(), udp2); err != nil {
		t.Fatalf("预置第二个计划实例失败: %v", err)
	}
	created, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	// 通过别的计划实例引用该履修记录：按不存在处理
	_, err = svc.UpdateFulfillment(context.Background(), "user-1", "udp-2", created.ID, &dto.UpdateFulfillmentRequest{
		Semester: strp("2025A"),
	})
	if !errors.Is(err, ErrFulfillmentNotFound) {
		t.Errorf("期望 ErrFulfillmentNotFound，实际=%v", err)
	}
}

// ── DeleteFulfillment ──

func TestDeleteFulfillment(t *testing.T) {
	env, svc := setupFulfillmentTest(t)
	plan := env.seedPlan(t)
	env.seedUserPlan(t, plan)

	created, err := svc.CreateFulfillment(context.Background(), "user-1", "udp-1", &dto.CreateFulfillmentRequest{
		FullCode: "CIS-1200",
		RuleIDs:  []string{"core"},
	})
	if err != nil {
		t.Fatalf("创建应成功: %v", err)
	}

	if err := svc.DeleteFulfillment(context.Background(), "user-1", "udp-1", created.ID); err != nil {
		t.Fatalf("删除应成功: %v", err)
	}
	list, _ := svc.ListFulfillments(context.Background(), "user-1", "udp-1")
	if len(list) != 0 {
		t.Errorf("删除后不应残留记录，实际=%d 条", len(list))
	}

	if err := svc.DeleteFulfillment(context.Background(), "user-1", "udp-1", created.ID); !errors.Is(err, ErrFulfillmentNotFound) {
		t.Errorf("重复删除应返回 ErrFulfillmentNotFound，实际=%v", err)
	}
}

