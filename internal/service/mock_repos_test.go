package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"penn-degree-plan/backend/internal/model"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id / penn:<id> / email:<addr>
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.PennID
	}
	m.users[user.UserID] = user
	m.users["penn:"+user.PennID] = user
	if user.Email != "" {
		m.users["email:"+user.Email] = user
	}
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByPennID(_ context.Context, pennID string) (*model.User, error) {
	if u, ok := m.users["penn:"+pennID]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users["email:"+email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	m.users["penn:"+user.PennID] = user
	if user.Email != "" {
		m.users["email:"+user.Email] = user
	}
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	for key, u := range m.users {
		if u.UserID == id {
			delete(m.users, key)
		}
	}
	return nil
}

func (m *mockUserRepo) List(_ context.Context, role, keyword string, offset, limit int) ([]model.User, int64, error) {
	seen := make(map[string]bool)
	var all []model.User
	for _, u := range m.users {
		if seen[u.UserID] {
			continue
		}
		seen[u.UserID] = true
		if role != "" && u.Role != role {
			continue
		}
		if keyword != "" && !strings.Contains(u.Name, keyword) &&
			!strings.Contains(u.PennID, keyword) && !strings.Contains(u.Email, keyword) {
			continue
		}
		all = append(all, *u)
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course // key: full_code（最近学期记录）
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) addCourse(fullCode string, credits float64, attributes ...string) *model.Course {
	cu := credits
	dept, code := "", 0
	if idx := strings.LastIndex(fullCode, "-"); idx > 0 {
		dept = fullCode[:idx]
		code, _ = strconv.Atoi(fullCode[idx+1:])
	}
	c := &model.Course{
		CourseID:   "course-" + fullCode,
		FullCode:   fullCode,
		Department: dept,
		Code:       code,
		Semester:   "2024C",
		Title:      "课程 " + fullCode,
		Credits:    &cu,
		Attributes: model.StringArray(attributes),
	}
	m.courses[fullCode] = c
	return c
}

func (m *mockCourseRepo) GetLatestByFullCode(_ context.Context, fullCode string) (*model.Course, error) {
	if c, ok := m.courses[fullCode]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) ResolveLatest(_ context.Context, fullCodes []string) (map[string]*model.Course, error) {
	result := make(map[string]*model.Course, len(fullCodes))
	for _, code := range fullCodes {
		if c, ok := m.courses[code]; ok {
			result[code] = c
		}
	}
	return result, nil
}

// ── Mock DegreePlanRepository ──

type mockDegreePlanRepo struct {
	plans        map[string]*model.DegreePlan
	restrictions map[string][]model.DoubleCountRestriction // key: degree_plan_id
}

func newMockDegreePlanRepo() *mockDegreePlanRepo {
	return &mockDegreePlanRepo{
		plans:        make(map[string]*model.DegreePlan),
		restrictions: make(map[string][]model.DoubleCountRestriction),
	}
}

func (m *mockDegreePlanRepo) Create(_ context.Context, plan *model.DegreePlan) error {
	if plan.DegreePlanID == "" {
		plan.DegreePlanID = fmt.Sprintf("plan-%s-%s-%d", plan.Program, plan.Major, plan.Year)
	}
	m.plans[plan.DegreePlanID] = plan
	return nil
}

func (m *mockDegreePlanRepo) GetByID(_ context.Context, id string) (*model.DegreePlan, error) {
	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDegreePlanRepo) GetByIdentity(_ context.Context, program, degree, major, concentration string, year int) (*model.DegreePlan, error) {
	for _, p := range m.plans {
		if p.Program == program && p.Degree == degree && p.Major == major &&
			p.ConcentrationCode() == concentration && p.Year == year {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDegreePlanRepo) List(_ context.Context, program, major string, year, offset, limit int) ([]model.DegreePlan, int64, error) {
	var all []model.DegreePlan
	for _, p := range m.plans {
		if program != "" && p.Program != program {
			continue
		}
		if major != "" && p.Major != major {
			continue
		}
		if year > 0 && p.Year != year {
			continue
		}
		all = append(all, *p)
	}
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDegreePlanRepo) ListRestrictions(_ context.Context, degreePlanID string) ([]model.DoubleCountRestriction, error) {
	return m.restrictions[degreePlanID], nil
}

func (m *mockDegreePlanRepo) CreateRestriction(_ context.Context, restriction *model.DoubleCountRestriction) error {
	if restriction.RestrictionID == "" {
		restriction.RestrictionID = fmt.Sprintf("restriction-%d", len(m.restrictions[restriction.DegreePlanID])+1)
	}
	m.restrictions[restriction.DegreePlanID] = append(m.restrictions[restriction.DegreePlanID], *restriction)
	return nil
}

// ── Mock RuleRepository ──

type mockRuleRepo struct {
	rules map[string]*model.Rule
}

func newMockRuleRepo() *mockRuleRepo {
	return &mockRuleRepo{rules: make(map[string]*model.Rule)}
}

func (m *mockRuleRepo) GetByID(_ context.Context, id string) (*model.Rule, error) {
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRuleRepo) ListByDegreePlan(_ context.Context, degreePlanID string) ([]model.Rule, error) {
	// 顶层规则先行，之后逐层收集（与递归 CTE 语义一致）
	var result []model.Rule
	collected := make(map[string]bool)
	var roots []string
	for id, r := range m.rules {
		if r.DegreePlanID != nil && *r.DegreePlanID == degreePlanID {
			roots = append(roots, id)
		}
	}
	var walk func(ids []string)
	walk = func(ids []string) {
		for _, id := range ids {
			if collected[id] {
				continue
			}
			collected[id] = true
			result = append(result, *m.rules[id])
			var kids []string
			for kidID, r := range m.rules {
				if r.ParentID != nil && *r.ParentID == id {
					kids = append(kids, kidID)
				}
			}
			walk(kids)
		}
	}
	walk(roots)
	return result, nil
}

func (m *mockRuleRepo) CreateBatch(_ context.Context, rules []*model.Rule) error {
	for _, r := range rules {
		m.rules[r.RuleID] = r
	}
	return nil
}

// ── Mock UserDegreePlanRepository ──

type mockUserDegreePlanRepo struct {
	plans    map[string]*model.UserDegreePlan
	planRepo *mockDegreePlanRepo // 用于模拟 Preload("DegreePlan")
}

func newMockUserDegreePlanRepo(planRepo *mockDegreePlanRepo) *mockUserDegreePlanRepo {
	return &mockUserDegreePlanRepo{
		plans:    make(map[string]*model.UserDegreePlan),
		planRepo: planRepo,
	}
}

func (m *mockUserDegreePlanRepo) Create(_ context.Context, udp *model.UserDegreePlan) error {
	if udp.UserDegreePlanID == "" {
		udp.UserDegreePlanID = fmt.Sprintf("udp-%d", len(m.plans)+1)
	}
	m.plans[udp.UserDegreePlanID] = udp
	return nil
}

func (m *mockUserDegreePlanRepo) GetByID(_ context.Context, id string) (*model.UserDegreePlan, error) {
	udp, ok := m.plans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *udp
	if m.planRepo != nil {
		if p, ok := m.planRepo.plans[udp.DegreePlanID]; ok {
			copied.DegreePlan = p
		}
	}
	return &copied, nil
}

func (m *mockUserDegreePlanRepo) ListByUser(_ context.Context, userID string) ([]model.UserDegreePlan, error) {
	var result []model.UserDegreePlan
	for _, udp := range m.plans {
		if udp.UserID == userID {
			copied := *udp
			if m.planRepo != nil {
				if p, ok := m.planRepo.plans[udp.DegreePlanID]; ok {
					copied.DegreePlan = p
				}
			}
			result = append(result, copied)
		}
	}
	return result, nil
}

func (m *mockUserDegreePlanRepo) Delete(_ context.Context, id string) error {
	delete(m.plans, id)
	return nil
}

// ── Mock FulfillmentRepository ──

type mockFulfillmentRepo struct {
	fulfillments map[string]*model.Fulfillment
	claims       map[string][]string // fulfillment_id → rule_ids
	ruleRepo     *mockRuleRepo       // 用于模拟 Preload("Rules")
	nextID       int
}

func newMockFulfillmentRepo(ruleRepo *mockRuleRepo) *mockFulfillmentRepo {
	return &mockFulfillmentRepo{
		fulfillments: make(map[string]*model.Fulfillment),
		claims:       make(map[string][]string),
		ruleRepo:     ruleRepo,
	}
}

func (m *mockFulfillmentRepo) withRules(f *model.Fulfillment) *model.Fulfillment {
	copied := *f
	copied.Rules = nil
	for _, ruleID := range m.claims[f.FulfillmentID] {
		if r, ok := m.ruleRepo.rules[ruleID]; ok {
			copied.Rules = append(copied.Rules, *r)
		} else {
			copied.Rules = append(copied.Rules, model.Rule{RuleID: ruleID})
		}
	}
	return &copied
}

func (m *mockFulfillmentRepo) GetByID(_ context.Context, id string) (*model.Fulfillment, error) {
	if f, ok := m.fulfillments[id]; ok {
		return m.withRules(f), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFulfillmentRepo) ListByUserDegreePlan(_ context.Context, udpID string) ([]model.Fulfillment, error) {
	var result []model.Fulfillment
	for _, f := range m.fulfillments {
		if f.UserDegreePlanID == udpID {
			result = append(result, *m.withRules(f))
		}
	}
	return result, nil
}

func (m *mockFulfillmentRepo) CreateWithClaims(_ context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error {
	if check != nil {
		if err := check(nil); err != nil {
			return err
		}
	}
	// 唯一约束 (user_degree_plan_id, full_code, semester)；
	// semester 为空的计划行按 (user_degree_plan_id, full_code) 去重
	for _, existing := range m.fulfillments {
		if existing.UserDegreePlanID == f.UserDegreePlanID &&
			existing.FullCode == f.FullCode &&
			semesterEq(existing.Semester, f.Semester) {
			return gorm.ErrDuplicatedKey
		}
	}
	m.nextID++
	f.FulfillmentID = fmt.Sprintf("fulfillment-%d", m.nextID)
	copied := *f
	m.fulfillments[f.FulfillmentID] = &copied
	m.claims[f.FulfillmentID] = append([]string(nil), ruleIDs...)
	return nil
}

func (m *mockFulfillmentRepo) UpdateClaims(_ context.Context, f *model.Fulfillment, ruleIDs []string, check func(tx *gorm.DB) error) error {
	if check != nil {
		if err := check(nil); err != nil {
			return err
		}
	}
	if _, ok := m.fulfillments[f.FulfillmentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *f
	m.fulfillments[f.FulfillmentID] = &copied
	m.claims[f.FulfillmentID] = append([]string(nil), ruleIDs...)
	return nil
}

func (m *mockFulfillmentRepo) Delete(_ context.Context, id string) error {
	delete(m.fulfillments, id)
	delete(m.claims, id)
	return nil
}

func semesterEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

