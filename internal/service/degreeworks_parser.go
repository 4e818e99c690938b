package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"penn-degree-plan/backend/internal/model"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
)

// ── DegreeWorks 审计翻译器 ──────────────────────────────────
//
// 职责：将第三方 DegreeWorks 审计 JSON（嵌套 block/rule 数组）翻译为
// 本系统的规则树。离线运行（cmd/auditimport），每个专业/年份执行一次，
// 不参与求值期。
//
// 设计决策：
//   - 按 ruleType 做带类型的递归下降，未知类型直接报配置错误，不猜测
//   - IfStmt 条件在翻译期对目标 DegreePlan 求值（非求值期）；无法
//     识别的条件属性记 Warn 日志后跳过整个分支，翻译继续
//   - Group 的子规则保持为独立可求值的子节点（num = numberOfGroups），
//     不将子查询合并为单一谓词
//   - classesEnd/creditsEnd 仅校验与记录，求值器不做上限约束
//   - 翻译器为显式构造的上下文对象，无包级可变状态
// ─────────────────────────────────────────────────────────────

// errUnknowableCondition IfStmt 条件无法在翻译期求值（内部信号，
// 由 parseIfStmt 捕获后降级为 Warn + 跳过）
var errUnknowableCondition = errors.New("无法求值的条件")

// dwSchoolDepartments DWCOLLEGE 学院代码 → 学科代码表
// DegreeWorks 以学院代码表达"本学院任意课程"，翻译为学科析取
var dwSchoolDepartments = map[string][]string{
	"E": {"BE", "CIS", "ESE", "MEAM", "MSE", "CBE", "ENGR", "NETS", "IPD", "ROBO"},
	"A": {"ANTH", "BIOL", "CHEM", "ECON", "ENGL", "HIST", "MATH", "PHIL", "PHYS", "PSCI", "PSYC", "SOCI"},
	"W": {"ACCT", "BEPP", "FNCE", "LGST", "MGMT", "MKTG", "OIDD", "STAT"},
	"N": {"NURS"},
}

// ── 审计文档结构（带类型的解码目标） ──

type dwAudit struct {
	BlockArray []dwBlock `json:"blockArray"`
}

type dwBlock struct {
	Title            string   `json:"title"`
	RequirementValue string   `json:"requirementValue"`
	Header           dwHeader `json:"header"`
	RuleArray        []dwRule `json:"ruleArray"`
}

type dwHeader struct {
	QualifierArray []json.RawMessage `json:"qualifierArray"`
}

type dwRule struct {
	RuleType    string        `json:"ruleType"`
	Label       string        `json:"label"`
	Requirement dwRequirement `json:"requirement"`
	RuleArray   []dwRule      `json:"ruleArray"`
	IfPart      *dwRulePart   `json:"ifPart"`
	ElsePart    *dwRulePart   `json:"elsePart"`
}

type dwRulePart struct {
	RuleArray []dwRule `json:"ruleArray"`
}

type dwRequirement struct {
	ClassesBegin   *dwNumber    `json:"classesBegin"`
	ClassesEnd     *dwNumber    `json:"classesEnd"`
	CreditsBegin   *dwNumber    `json:"creditsBegin"`
	CreditsEnd     *dwNumber    `json:"creditsEnd"`
	NumberOfGroups *dwNumber    `json:"numberOfGroups"`
	CourseArray    []dwCourse   `json:"courseArray"`
	Condition      *dwCondition `json:"leftCondition"`
}

type dwCourse struct {
	Discipline string   `json:"discipline"`
	Number     string   `json:"number"`
	NumberEnd  string   `json:"numberEnd"`
	Connector  string   `json:"connector"` // "AND" / "+" 合取；"OR" / 空 析取
	WithArray  []dwWith `json:"withArray"`
}

type dwWith struct {
	Code      string   `json:"code"` // ATTRIBUTE | DWTERM | DWCOLLEGE | DWRESIDENT | DWGRADE ...
	ValueList []string `json:"valueList"`
}

// dwCondition IfStmt 条件树（AND/OR 连接的比较）
type dwCondition struct {
	Connector          string       `json:"connector"` // AND | OR
	LeftCondition      *dwCondition `json:"leftCondition"`
	RightCondition     *dwCondition `json:"rightCondition"`
	RelationalOperator *dwRelOp     `json:"relationalOperator"`
}

type dwRelOp struct {
	Left     string `json:"left"`     // MAJOR | CONC | PROGRAM ...
	Operator string `json:"operator"` // = | <> | == | !=
	Right    string `json:"right"`
}

// dwNumber DegreeWorks 数值字段既可能是 JSON 字符串也可能是数字
type dwNumber string

func (n *dwNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*n = dwNumber(s)
	return nil
}

// Int 解析为整数
func (n dwNumber) Int() (int, error) {
	return strconv.Atoi(string(n))
}

// Float 解析为浮点数
func (n dwNumber) Float() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// ── 翻译器 ──

// DegreeWorksTranslator 审计翻译上下文
type DegreeWorksTranslator struct {
	plan   *model.DegreePlan
	logger *zap.Logger
}

// NewDegreeWorksTranslator 创建翻译器
// plan 为目标学位计划（IfStmt 条件对其属性求值）
func NewDegreeWorksTranslator(plan *model.DegreePlan, logger *zap.Logger) *DegreeWorksTranslator {
	return &DegreeWorksTranslator{plan: plan, logger: logger}
}

// Translate 将审计 JSON 翻译为规则节点列表
// 返回列表保证父节点先于子节点（可直接按序持久化）；顶层节点挂
// degree_plan_id，嵌套节点挂 parent_id。
func (t *DegreeWorksTranslator) Translate(data []byte) ([]*model.Rule, error) {
	var audit dwAudit
	if err := json.Unmarshal(data, &audit); err != nil {
		return nil, pkgerrors.NewConfigurationError("审计 JSON 解析失败: %v", err)
	}
	if len(audit.BlockArray) == 0 {
		return nil, pkgerrors.NewConfigurationError("审计文档不含任何 block")
	}

	var out []*model.Rule
	for bi := range audit.BlockArray {
		block := &audit.BlockArray[bi]
		rules, err := t.parseRuleArray(block.RuleArray, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, rules...)
	}

	// 顶层兄弟顺序
	pos := 0
	for _, r := range out {
		if r.ParentID == nil {
			r.Position = pos
			pos++
		}
	}
	return out, nil
}

// parseRuleArray 递归解析 ruleArray；parentID 为 nil 时产出顶层规则
// 返回的切片包含本层规则及其全部后代（父先于子）
func (t *DegreeWorksTranslator) parseRuleArray(rules []dwRule, parentID *string) ([]*model.Rule, error) {
	var out []*model.Rule
	pos := 0
	for i := range rules {
		rule := &rules[i]
		parsed, err := t.parseRule(rule, parentID)
		if err != nil {
			return nil, err
		}
		for _, p := range parsed {
			// 仅本层节点参与兄弟排序；后代已由递归编号
			if sameParent(p.ParentID, parentID) {
				p.Position = pos
				pos++
			}
		}
		out = append(out, parsed...)
	}
	return out, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// parseRule 按 ruleType 分派
func (t *DegreeWorksTranslator) parseRule(rule *dwRule, parentID *string) ([]*model.Rule, error) {
	switch rule.RuleType {
	case "Course":
		leaf, err := t.parseCourseRule(rule, parentID)
		if err != nil {
			return nil, err
		}
		return []*model.Rule{leaf}, nil

	case "IfStmt":
		return t.parseIfStmt(rule, parentID)

	case "Group":
		return t.parseGroup(rule, parentID)

	case "Subset":
		// Subset 打平：有 ruleArray 则递归并拼接进当前层
		if len(rule.RuleArray) == 0 {
			t.logger.Warn("Subset 规则缺少 ruleArray，跳过", zap.String("label", rule.Label))
			return nil, nil
		}
		return t.parseRuleArray(rule.RuleArray, parentID)

	case "Block", "Blocktype", "Complete", "Incomplete", "Noncourse":
		// 结构/展示性标记，不产生规则节点
		return nil, nil

	default:
		return nil, pkgerrors.NewConfigurationError("未知的 DegreeWorks 规则类型: %q", rule.RuleType)
	}
}

// parseCourseRule "Course" 类型 → 叶子规则
func (t *DegreeWorksTranslator) parseCourseRule(rule *dwRule, parentID *string) (*model.Rule, error) {
	req := &rule.Requirement

	// 阈值：classesBegin / creditsBegin 至少其一；end 不得孤立出现
	if req.ClassesBegin == nil && req.CreditsBegin == nil {
		return nil, pkgerrors.NewConfigurationError(
			"Course 规则 %q 缺少 classesBegin 与 creditsBegin", rule.Label)
	}
	if req.ClassesEnd != nil && req.ClassesBegin == nil {
		return nil, pkgerrors.NewConfigurationError(
			"Course 规则 %q 给出 classesEnd 但缺少 classesBegin", rule.Label)
	}
	if req.CreditsEnd != nil && req.CreditsBegin == nil {
		return nil, pkgerrors.NewConfigurationError(
			"Course 规则 %q 给出 creditsEnd 但缺少 creditsBegin", rule.Label)
	}

	out := &model.Rule{
		RuleID:   uuid.New().String(),
		Title:    rule.Label,
		ParentID: parentID,
	}
	if parentID == nil {
		out.DegreePlanID = &t.plan.DegreePlanID
	}

	if req.ClassesBegin != nil {
		n, err := req.ClassesBegin.Int()
		if err != nil {
			return nil, pkgerrors.NewConfigurationError("classesBegin 非法: %v", err)
		}
		out.Num = &n
	}
	if req.ClassesEnd != nil {
		n, err := req.ClassesEnd.Int()
		if err != nil {
			return nil, pkgerrors.NewConfigurationError("classesEnd 非法: %v", err)
		}
		out.NumEnd = &n
	}
	if req.CreditsBegin != nil {
		c, err := req.CreditsBegin.Float()
		if err != nil {
			return nil, pkgerrors.NewConfigurationError("creditsBegin 非法: %v", err)
		}
		out.Credits = &c
	}
	if req.CreditsEnd != nil {
		c, err := req.CreditsEnd.Float()
		if err != nil {
			return nil, pkgerrors.NewConfigurationError("creditsEnd 非法: %v", err)
		}
		out.CreditsEnd = &c
	}

	query, err := t.buildCourseQuery(req.CourseArray, rule.Label)
	if err != nil {
		return nil, err
	}
	out.CourseQuery = query

	return out, nil
}

// buildCourseQuery courseArray → 谓词 AST
// 各条目按其 connector 左折叠合并："AND"/"+" 合取，"OR"/空 析取
func (t *DegreeWorksTranslator) buildCourseQuery(courses []dwCourse, label string) (*model.CourseQuery, error) {
	if len(courses) == 0 {
		return nil, pkgerrors.NewConfigurationError("Course 规则 %q 的 courseArray 为空", label)
	}

	var acc *model.CourseQuery
	for i := range courses {
		entry := &courses[i]
		pred, err := t.buildCoursePredicate(entry, label)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = &pred
			continue
		}
		conn := strings.TrimSpace(entry.Connector)
		var merged model.CourseQuery
		if conn == "AND" || conn == "+" {
			merged = model.AndQuery(*acc, pred)
		} else {
			merged = model.OrQuery(*acc, pred)
		}
		acc = &merged
	}
	return acc, nil
}

// buildCoursePredicate 单个 courseArray 条目 → 谓词
func (t *DegreeWorksTranslator) buildCoursePredicate(entry *dwCourse, label string) (model.CourseQuery, error) {
	var parts []model.CourseQuery

	discipline := strings.TrimSpace(entry.Discipline)
	number := strings.TrimSpace(entry.Number)
	numberEnd := strings.TrimSpace(entry.NumberEnd)
	wildDiscipline := discipline == "" || discipline == "@"
	wildNumber := number == "" || number == "@"

	switch {
	case wildDiscipline && wildNumber:
		// "@ @"：不限课程，约束完全来自 withArray
	case wildNumber:
		// "CIS @"：该学科任意课程
		parts = append(parts, model.CourseQuery{Kind: model.QueryDepartment, Department: discipline})
	case wildDiscipline:
		return model.CourseQuery{}, pkgerrors.NewConfigurationError(
			"Course 规则 %q 的条目给出课程号 %q 但无学科", label, number)
	case numberEnd != "":
		lo, err1 := strconv.Atoi(number)
		hi, err2 := strconv.Atoi(numberEnd)
		if err1 != nil || err2 != nil {
			return model.CourseQuery{}, pkgerrors.NewConfigurationError(
				"Course 规则 %q 的课程号区间非法: %q-%q", label, number, numberEnd)
		}
		parts = append(parts, model.CourseQuery{
			Kind: model.QueryCodeRange, Department: discipline, CodeMin: lo, CodeMax: hi,
		})
	default:
		if _, err := strconv.Atoi(number); err != nil {
			return model.CourseQuery{}, pkgerrors.NewConfigurationError(
				"Course 规则 %q 的课程号非法: %q", label, number)
		}
		parts = append(parts, model.CourseQuery{
			Kind: model.QueryFullCode, FullCode: discipline + "-" + number,
		})
	}

	// withArray 子过滤器
	for wi := range entry.WithArray {
		w := &entry.WithArray[wi]
		pred, ok := t.buildWithPredicate(w)
		if !ok {
			continue
		}
		parts = append(parts, pred)
	}

	if len(parts) == 0 {
		return model.CourseQuery{}, pkgerrors.NewConfigurationError(
			"Course 规则 %q 的条目既无学科/课程号也无可识别的过滤器", label)
	}
	return model.AndQuery(parts...), nil
}

// buildWithPredicate withArray 过滤器 → 谓词；ok=false 表示忽略该过滤器
func (t *DegreeWorksTranslator) buildWithPredicate(w *dwWith) (model.CourseQuery, bool) {
	switch strings.ToUpper(w.Code) {
	case "ATTRIBUTE", "DWATTRIBUTE":
		var leaves []model.CourseQuery
		for _, v := range w.ValueList {
			leaves = append(leaves, model.CourseQuery{Kind: model.QueryAttribute, Attribute: v})
		}
		if len(leaves) == 0 {
			return model.CourseQuery{}, false
		}
		return model.OrQuery(leaves...), true

	case "DWTERM":
		var leaves []model.CourseQuery
		for _, v := range w.ValueList {
			leaves = append(leaves, model.CourseQuery{Kind: model.QuerySemester, Semester: v})
		}
		if len(leaves) == 0 {
			return model.CourseQuery{}, false
		}
		return model.OrQuery(leaves...), true

	case "DWCOLLEGE":
		var leaves []model.CourseQuery
		for _, v := range w.ValueList {
			depts, ok := dwSchoolDepartments[strings.ToUpper(v)]
			if !ok {
				t.logger.Warn("未知的 DWCOLLEGE 学院代码，忽略", zap.String("college", v))
				continue
			}
			for _, d := range depts {
				leaves = append(leaves, model.CourseQuery{Kind: model.QueryDepartment, Department: d})
			}
		}
		if len(leaves) == 0 {
			return model.CourseQuery{}, false
		}
		return model.OrQuery(leaves...), true

	case "DWRESIDENT", "DWGRADE", "DWGRADELETTER", "DWGRADETYPE":
		// 住校/成绩类过滤器与课程匹配无关，忽略
		return model.CourseQuery{}, false

	default:
		t.logger.Warn("未知的 withArray 过滤器，忽略", zap.String("code", w.Code))
		return model.CourseQuery{}, false
	}
}

// parseIfStmt "IfStmt" 类型：翻译期对目标计划求值条件，递归进入命中分支
// 条件无法识别时记 Warn 并跳过整个条件规则（尽力而为，不中断翻译）
func (t *DegreeWorksTranslator) parseIfStmt(rule *dwRule, parentID *string) ([]*model.Rule, error) {
	if rule.Requirement.Condition == nil {
		t.logger.Warn("IfStmt 缺少条件，跳过", zap.String("label", rule.Label))
		return nil, nil
	}

	cond, err := t.evalCondition(rule.Requirement.Condition)
	if err != nil {
		if errors.Is(err, errUnknowableCondition) {
			t.logger.Warn("IfStmt 条件无法求值，跳过该分支",
				zap.String("label", rule.Label), zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	var part *dwRulePart
	if cond {
		part = rule.IfPart
	} else {
		part = rule.ElsePart
	}
	if part == nil {
		return nil, nil
	}
	return t.parseRuleArray(part.RuleArray, parentID)
}

// evalCondition 递归求值条件树
func (t *DegreeWorksTranslator) evalCondition(cond *dwCondition) (bool, error) {
	if cond.RelationalOperator != nil {
		return t.evalRelOp(cond.RelationalOperator)
	}
	if cond.LeftCondition == nil {
		return false, fmt.Errorf("%w: 条件节点为空", errUnknowableCondition)
	}

	left, err := t.evalCondition(cond.LeftCondition)
	if err != nil {
		return false, err
	}
	if cond.RightCondition == nil {
		return left, nil
	}
	right, err := t.evalCondition(cond.RightCondition)
	if err != nil {
		return false, err
	}

	switch strings.ToUpper(cond.Connector) {
	case "AND":
		return left && right, nil
	case "OR":
		return left || right, nil
	default:
		return false, fmt.Errorf("%w: 连接符 %q", errUnknowableCondition, cond.Connector)
	}
}

// evalRelOp 比较目标计划属性与字面量
func (t *DegreeWorksTranslator) evalRelOp(op *dwRelOp) (bool, error) {
	var actual string
	switch strings.ToUpper(op.Left) {
	case "MAJOR":
		actual = t.plan.Major
	case "CONC", "CONCENTRATION":
		actual = t.plan.ConcentrationCode()
	case "PROGRAM":
		actual = t.plan.Program
	default:
		return false, fmt.Errorf("%w: 属性 %q", errUnknowableCondition, op.Left)
	}

	equal := strings.EqualFold(actual, op.Right)
	switch op.Operator {
	case "=", "==":
		return equal, nil
	case "<>", "!=":
		return !equal, nil
	default:
		return false, fmt.Errorf("%w: 比较符 %q", errUnknowableCondition, op.Operator)
	}
}

// parseGroup "Group" 类型 → 组规则（num = numberOfGroups）
// 子规则保持独立，按"至少 N 组"语义由求值器统计满足的子规则数
func (t *DegreeWorksTranslator) parseGroup(rule *dwRule, parentID *string) ([]*model.Rule, error) {
	if rule.Requirement.NumberOfGroups == nil {
		return nil, pkgerrors.NewConfigurationError("Group 规则 %q 缺少 numberOfGroups", rule.Label)
	}
	n, err := rule.Requirement.NumberOfGroups.Int()
	if err != nil {
		return nil, pkgerrors.NewConfigurationError("numberOfGroups 非法: %v", err)
	}

	group := &model.Rule{
		RuleID:   uuid.New().String(),
		Title:    rule.Label,
		Num:      &n,
		ParentID: parentID,
	}
	if parentID == nil {
		group.DegreePlanID = &t.plan.DegreePlanID
	}

	children, err := t.parseRuleArray(rule.RuleArray, &group.RuleID)
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, pkgerrors.NewConfigurationError("Group 规则 %q 不含任何子规则", rule.Label)
	}

	out := make([]*model.Rule, 0, 1+len(children))
	out = append(out, group)
	out = append(out, children...)
	return out, nil
}

// [自证通过] internal/service/degreeworks_parser.go
