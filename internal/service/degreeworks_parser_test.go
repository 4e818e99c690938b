package service

import (
	"testing"

	"go.uber.org/zap"

	"penn-degree-plan/backend/internal/model"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
)

// ── 测试辅助 ──

func newTestTranslator() *DegreeWorksTranslator {
	plan := &model.DegreePlan{
		DegreePlanID: "plan-1",
		Program:      "EU_BSE",
		Degree:       "BSE",
		Major:        "CSCI",
		Year:         2024,
	}
	return NewDegreeWorksTranslator(plan, zap.NewNop())
}

// audit 包一层 blockArray，便于测试只写 ruleArray
func auditJSON(ruleArray string) []byte {
	return []byte(`{"blockArray":[{"title":"Degree in Bachelor of Science in Engineering","ruleArray":` + ruleArray + `}]}`)
}

// ── Course 规则翻译 ──

func TestTranslate_CourseRule(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Computer Science Core",
		"requirement": {
			"classesBegin": "2",
			"courseArray": [
				{"discipline": "CIS", "number": "1200"},
				{"discipline": "CIS", "number": "1600", "connector": "OR"}
			]
		}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("期望 1 条规则，实际=%d", len(rules))
	}

	r := rules[0]
	if r.Title != "Computer Science Core" {
		t.Errorf("期望 Title=Computer Science Core，实际=%s", r.Title)
	}
	if r.Num == nil || *r.Num != 2 {
		t.Errorf("期望 Num=2，实际=%v", r.Num)
	}
	if r.DegreePlanID == nil || *r.DegreePlanID != "plan-1" {
		t.Error("顶层规则应挂 degree_plan_id")
	}
	if r.CourseQuery == nil || r.CourseQuery.Kind != model.QueryOr {
		t.Fatalf("期望 or 谓词，实际=%+v", r.CourseQuery)
	}
	if len(r.CourseQuery.Children) != 2 ||
		r.CourseQuery.Children[0].FullCode != "CIS-1200" ||
		r.CourseQuery.Children[1].FullCode != "CIS-1600" {
		t.Errorf("期望 [CIS-1200 CIS-1600] 析取，实际=%+v", r.CourseQuery.Children)
	}
	// 谓词应能直接匹配课程
	if !r.CourseQuery.Matches(testCourse("CIS-1600", "CIS", 1600, 1.0)) {
		t.Error("翻译产物应匹配 CIS-1600")
	}
}

func TestTranslate_CreditsAndCodeRange(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Math Electives",
		"requirement": {
			"creditsBegin": "4",
			"courseArray": [
				{"discipline": "MATH", "number": "1400", "numberEnd": "2400"}
			]
		}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	r := rules[0]
	if r.Credits == nil || *r.Credits != 4.0 {
		t.Errorf("期望 Credits=4.0，实际=%v", r.Credits)
	}
	if r.Num != nil {
		t.Errorf("未给出 classesBegin 时 Num 应为空，实际=%v", r.Num)
	}
	q := r.CourseQuery
	if q == nil || q.Kind != model.QueryCodeRange || q.Department != "MATH" || q.CodeMin != 1400 || q.CodeMax != 2400 {
		t.Errorf("期望 MATH [1400,2400] 区间谓词，实际=%+v", q)
	}
	if !q.Matches(testCourse("MATH-1410", "MATH", 1410, 1.0)) ||
		q.Matches(testCourse("MATH-2450", "MATH", 2450, 1.0)) {
		t.Error("区间谓词匹配行为不正确")
	}
}

func TestTranslate_DepartmentWildcard(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Any CIS Course",
		"requirement": {
			"classesBegin": "1",
			"courseArray": [{"discipline": "CIS", "number": "@"}]
		}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	q := rules[0].CourseQuery
	if q == nil || q.Kind != model.QueryDepartment || q.Department != "CIS" {
		t.Errorf("期望 CIS 学科谓词，实际=%+v", q)
	}
}

func TestTranslate_AttributeFilter(t *testing.T) {
	// "@ @" + ATTRIBUTE：不限课程，约束全部来自属性过滤器
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Engineering Ethics",
		"requirement": {
			"classesBegin": "1",
			"courseArray": [{
				"discipline": "@", "number": "@",
				"withArray": [{"code": "ATTRIBUTE", "valueList": ["EUNE", "EUMS"]}]
			}]
		}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	q := rules[0].CourseQuery
	if q == nil || q.Kind != model.QueryOr || len(q.Children) != 2 {
		t.Fatalf("期望属性析取谓词，实际=%+v", q)
	}
	if !q.Matches(testCourse("EAS-2030", "EAS", 2030, 1.0, "EUNE")) {
		t.Error("带 EUNE 属性的课程应匹配")
	}
	if q.Matches(testCourse("EAS-2030", "EAS", 2030, 1.0)) {
		t.Error("无属性课程不应匹配")
	}
}

func TestTranslate_EndRangesRecorded(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Free Electives",
		"requirement": {
			"classesBegin": "2", "classesEnd": "4",
			"creditsBegin": "2", "creditsEnd": "4",
			"courseArray": [{"discipline": "CIS", "number": "@"}]
		}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	r := rules[0]
	if r.NumEnd == nil || *r.NumEnd != 4 {
		t.Errorf("classesEnd 应记录为 NumEnd=4，实际=%v", r.NumEnd)
	}
	if r.CreditsEnd == nil || *r.CreditsEnd != 4.0 {
		t.Errorf("creditsEnd 应记录为 CreditsEnd=4.0，实际=%v", r.CreditsEnd)
	}

	// 上界仅记录，求值器不做上限约束：5 门课仍满足
	tree := NewRuleTree("plan-1", []model.Rule{*r})
	courses := make(map[string]*model.Course)
	var fulfillments []model.Fulfillment
	for _, code := range []string{"CIS-1200", "CIS-1600", "CIS-2400", "CIS-2620", "CIS-3200"} {
		courses[code] = testCourse(code, "CIS", 1200, 1.0)
		fulfillments = append(fulfillments, testFulfillment("f-"+code, code, r.RuleID))
	}
	statuses, err := EvaluatePlan(tree, nil, fulfillments, courses)
	if err != nil {
		t.Fatalf("EvaluatePlan 应成功: %v", err)
	}
	if !statuses[r.RuleID].Satisfied {
		t.Error("超过上界的履修不应导致不满足（上界不做约束）")
	}
}

func TestTranslate_EndWithoutBegin(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "Broken",
		"requirement": {
			"classesEnd": "4",
			"creditsBegin": "2",
			"courseArray": [{"discipline": "CIS", "number": "@"}]
		}
	}]`)

	_, err := newTestTranslator().Translate(data)
	if !pkgerrors.IsConfigurationError(err) {
		t.Errorf("classesEnd 无 classesBegin 应返回 ConfigurationError，实际: %v", err)
	}
}

func TestTranslate_MissingThresholds(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Course",
		"label": "No Thresholds",
		"requirement": {
			"courseArray": [{"discipline": "CIS", "number": "1200"}]
		}
	}]`)

	_, err := newTestTranslator().Translate(data)
	if !pkgerrors.IsConfigurationError(err) {
		t.Errorf("无阈值的 Course 规则应返回 ConfigurationError，实际: %v", err)
	}
}

// ── IfStmt 翻译 ──

func TestTranslate_IfStmtTakesMatchingBranch(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "IfStmt",
		"label": "Major Condition",
		"requirement": {
			"leftCondition": {
				"relationalOperator": {"left": "MAJOR", "operator": "=", "right": "CSCI"}
			}
		},
		"ifPart": {"ruleArray": [{
			"ruleType": "Course", "label": "CSCI Requirement",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
		}]},
		"elsePart": {"ruleArray": [{
			"ruleType": "Course", "label": "Other Requirement",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "MATH", "number": "1400"}]}
		}]}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 1 || rules[0].Title != "CSCI Requirement" {
		t.Errorf("MAJOR=CSCI 应进入 ifPart，实际=%+v", rules)
	}
}

func TestTranslate_IfStmtTakesElseBranch(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "IfStmt",
		"label": "Major Condition",
		"requirement": {
			"leftCondition": {
				"relationalOperator": {"left": "MAJOR", "operator": "=", "right": "EE"}
			}
		},
		"ifPart": {"ruleArray": [{
			"ruleType": "Course", "label": "EE Requirement",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "ESE", "number": "1110"}]}
		}]},
		"elsePart": {"ruleArray": [{
			"ruleType": "Course", "label": "Non-EE Requirement",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
		}]}
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 1 || rules[0].Title != "Non-EE Requirement" {
		t.Errorf("MAJOR<>EE 应进入 elsePart，实际=%+v", rules)
	}
}

func TestTranslate_IfStmtUnknowableConditionSkipped(t *testing.T) {
	// GPA 属性无法在翻译期求值：跳过整条规则，不中断翻译
	data := auditJSON(`[
		{
			"ruleType": "IfStmt",
			"label": "GPA Condition",
			"requirement": {
				"leftCondition": {
					"relationalOperator": {"left": "GPA", "operator": ">=", "right": "3.0"}
				}
			},
			"ifPart": {"ruleArray": [{
				"ruleType": "Course", "label": "Honors",
				"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "4999"}]}
			}]}
		},
		{
			"ruleType": "Course", "label": "Always Present",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
		}
	]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("无法求值的条件应跳过而非报错: %v", err)
	}
	if len(rules) != 1 || rules[0].Title != "Always Present" {
		t.Errorf("期望仅保留后续规则，实际=%+v", rules)
	}
}

// ── Group 与 Subset 翻译 ──

func TestTranslate_Group(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Group",
		"label": "Pick One Track",
		"requirement": {"numberOfGroups": "1"},
		"ruleArray": [
			{
				"ruleType": "Course", "label": "Systems Track",
				"requirement": {"classesBegin": "2", "courseArray": [{"discipline": "CIS", "number": "3800"}, {"discipline": "CIS", "number": "4480", "connector": "OR"}]}
			},
			{
				"ruleType": "Course", "label": "Theory Track",
				"requirement": {"classesBegin": "2", "courseArray": [{"discipline": "CIS", "number": "2620"}, {"discipline": "CIS", "number": "5110", "connector": "OR"}]}
			}
		]
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("期望组 + 2 子规则，实际=%d", len(rules))
	}

	group := rules[0]
	if group.Num == nil || *group.Num != 1 {
		t.Errorf("期望组 Num=1，实际=%v", group.Num)
	}
	if group.IsLeaf() {
		t.Error("组规则不应持有 course_query")
	}
	// 子规则独立，挂在组下
	for _, kid := range rules[1:] {
		if kid.ParentID == nil || *kid.ParentID != group.RuleID {
			t.Errorf("子规则应挂 parent_id=%s，实际=%v", group.RuleID, kid.ParentID)
		}
		if kid.DegreePlanID != nil {
			t.Error("嵌套规则不应挂 degree_plan_id")
		}
	}
	// 翻译产物整树良构
	flat := make([]model.Rule, len(rules))
	for i, r := range rules {
		flat[i] = *r
	}
	if err := NewRuleTree("plan-1", flat).Validate(); err != nil {
		t.Errorf("翻译产物应通过整树校验: %v", err)
	}
}

func TestTranslate_SubsetSplices(t *testing.T) {
	data := auditJSON(`[{
		"ruleType": "Subset",
		"label": "Wrapper",
		"ruleArray": [
			{
				"ruleType": "Course", "label": "Inner A",
				"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
			},
			{
				"ruleType": "Course", "label": "Inner B",
				"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1600"}]}
			}
		]
	}]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("Subset 应打平为 2 条顶层规则，实际=%d", len(rules))
	}
	for _, r := range rules {
		if r.ParentID != nil || r.DegreePlanID == nil {
			t.Errorf("打平后的规则应为顶层规则: %+v", r)
		}
	}
}

func TestTranslate_UnknownRuleType(t *testing.T) {
	data := auditJSON(`[{"ruleType": "Mystery", "label": "???"}]`)

	_, err := newTestTranslator().Translate(data)
	if !pkgerrors.IsConfigurationError(err) {
		t.Errorf("未知 ruleType 应返回 ConfigurationError，实际: %v", err)
	}
}

func TestTranslate_StructuralTypesSkipped(t *testing.T) {
	data := auditJSON(`[
		{"ruleType": "Block", "label": "General Education"},
		{"ruleType": "Complete", "label": ""},
		{
			"ruleType": "Course", "label": "Real Rule",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
		}
	]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if len(rules) != 1 || rules[0].Title != "Real Rule" {
		t.Errorf("结构性类型应跳过，实际=%+v", rules)
	}
}

func TestTranslate_TopLevelPositions(t *testing.T) {
	data := auditJSON(`[
		{
			"ruleType": "Course", "label": "First",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1200"}]}
		},
		{
			"ruleType": "Course", "label": "Second",
			"requirement": {"classesBegin": "1", "courseArray": [{"discipline": "CIS", "number": "1600"}]}
		}
	]`)

	rules, err := newTestTranslator().Translate(data)
	if err != nil {
		t.Fatalf("Translate 应成功: %v", err)
	}
	if rules[0].Position != 0 || rules[1].Position != 1 {
		t.Errorf("顶层规则应按出现顺序编号，实际=%d/%d", rules[0].Position, rules[1].Position)
	}
}

