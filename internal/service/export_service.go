package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"penn-degree-plan/backend/internal/model"
	"penn-degree-plan/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoCourses    = errors.New("计划中无已排期课程")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 学位进度导出为 Excel (.xlsx)：整棵规则树 + 每条规则的满足状态
//   - 课程安排导出为 iCalendar (.ics)：已排期履修记录按学期生成全天事件
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportProgress 导出学位进度表为 Excel
	ExportProgress(ctx context.Context, userID, udpID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出已排期课程为 ICS 日历
	ExportCalendar(ctx context.Context, userID, udpID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo         *repository.Repository
	satisfaction SatisfactionService
	logger       *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, satisfaction SatisfactionService, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, satisfaction: satisfaction, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportProgress — 导出学位进度表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "学位进度"
//   - 列：规则（按树深度缩进）| 要求 | 已计入课程 | 已计入学分 | 状态
//   - 行顺序为规则树先序遍历（兄弟按 position）
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportProgress(ctx context.Context, userID, udpID string) (*bytes.Buffer, string, error) {
	sat, err := s.satisfaction.GetSatisfaction(ctx, userID, udpID)
	if err != nil {
		return nil, "", err
	}

	rules, err := s.repo.Rule.ListByDegreePlan(ctx, sat.DegreePlanID)
	if err != nil {
		return nil, "", err
	}
	tree := NewRuleTree(sat.DegreePlanID, rules)

	statusByRule := make(map[string]struct {
		satisfied bool
		courses   int
		credits   float64
	}, len(sat.Statuses))
	for _, st := range sat.Statuses {
		statusByRule[st.RuleID] = struct {
			satisfied bool
			courses   int
			credits   float64
		}{st.Satisfied, st.Courses, st.Credits}
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "学位进度"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 48)
	f.SetColWidth(sheetName, "B", "B", 24)
	f.SetColWidth(sheetName, "C", "D", 14)
	f.SetColWidth(sheetName, "E", "E", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#990000"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 表头
	f.SetCellValue(sheetName, "A1", "规则")
	f.SetCellValue(sheetName, "B1", "要求")
	f.SetCellValue(sheetName, "C1", "已计入课程")
	f.SetCellValue(sheetName, "D1", "已计入学分")
	f.SetCellValue(sheetName, "E1", "状态")
	f.SetCellStyle(sheetName, "A1", "E1", headerStyle)

	// 数据行：先序遍历
	row := 2
	var walk func(ids []string, depth int)
	walk = func(ids []string, depth int) {
		for _, id := range ids {
			rule := tree.Rule(id)
			if rule == nil {
				continue
			}
			indent := ""
			for i := 0; i < depth; i++ {
				indent += "    "
			}
			title := rule.Title
			if title == "" {
				title = "（未命名规则）"
			}
			st := statusByRule[id]
			status := "未满足"
			if st.satisfied {
				status = "已满足"
			}

			f.SetCellValue(sheetName, cell("A", row), indent+title)
			f.SetCellValue(sheetName, cell("B", row), describeRequirement(rule, len(tree.Children(id))))
			f.SetCellValue(sheetName, cell("C", row), st.courses)
			f.SetCellValue(sheetName, cell("D", row), st.credits)
			f.SetCellValue(sheetName, cell("E", row), status)
			row++

			walk(tree.Children(id), depth+1)
		}
	}
	walk(tree.Roots(), 0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("学位进度_%s.xlsx", udpID)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 导出已排期课程为 ICS
// ═══════════════════════════════════════════════════════════
//
// 每条带学期的履修记录生成一个全天事件，锚定在学期首日；
// 无学期（尚未排期）的记录不导出。学期代码沿用 Penn 惯例：
// 2024A=春季、2024B=夏季、2024C=秋季。

func (s *exportService) ExportCalendar(ctx context.Context, userID, udpID string) (*bytes.Buffer, string, error) {
	// 属主校验复用满足度服务的读路径前半段语义
	if _, err := s.satisfaction.GetSatisfaction(ctx, userID, udpID); err != nil {
		return nil, "", err
	}

	fulfillments, err := s.repo.Fulfillment.ListByUserDegreePlan(ctx, udpID)
	if err != nil {
		return nil, "", err
	}

	var scheduled []model.Fulfillment
	codes := make([]string, 0, len(fulfillments))
	for i := range fulfillments {
		if fulfillments[i].Semester != nil {
			scheduled = append(scheduled, fulfillments[i])
			codes = append(codes, fulfillments[i].FullCode)
		}
	}
	if len(scheduled) == 0 {
		return nil, "", ErrExportNoCourses
	}

	courses, err := s.repo.Course.ResolveLatest(ctx, codes)
	if err != nil {
		return nil, "", err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//penn-degree-plan//course-planner//EN")

	now := time.Now().UTC()
	for i := range scheduled {
		fl := &scheduled[i]
		start, ok := semesterStart(*fl.Semester)
		if !ok {
			s.logger.Warn("无法识别的学期代码，跳过事件",
				zap.String("semester", *fl.Semester),
				zap.String("full_code", fl.FullCode))
			continue
		}

		summary := fl.FullCode
		if c, found := courses[fl.FullCode]; found && c.Title != "" {
			summary = fmt.Sprintf("%s %s", fl.FullCode, c.Title)
		}

		event := cal.AddEvent(fmt.Sprintf("%s@penn-degree-plan", fl.FulfillmentID))
		event.SetCreatedTime(now)
		event.SetDtStampTime(now)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		event.SetSummary(summary)
		event.SetDescription(fmt.Sprintf("学期 %s 计划修读", *fl.Semester))
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("课程安排_%s.ics", udpID)
	return buf, filename, nil
}

// ── 辅助函数 ──

// describeRequirement 生成人类可读的规则要求描述
func describeRequirement(rule *model.Rule, childCount int) string {
	if rule.IsLeaf() {
		switch {
		case rule.Num != nil && rule.Credits != nil:
			return fmt.Sprintf("%d 门课且 %.1f 学分", *rule.Num, *rule.Credits)
		case rule.Num != nil:
			return fmt.Sprintf("%d 门课", *rule.Num)
		case rule.Credits != nil:
			return fmt.Sprintf("%.1f 学分", *rule.Credits)
		}
		return ""
	}
	if rule.Num != nil {
		return fmt.Sprintf("满足 %d / %d 条子规则", *rule.Num, childCount)
	}
	return fmt.Sprintf("满足全部 %d 条子规则", childCount)
}

// semesterStart 学期代码 → 学期首日（A=春 B=夏 C=秋）
func semesterStart(code string) (time.Time, bool) {
	if len(code) != 5 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(code[:4])
	if err != nil || year < 2000 || year > 2100 {
		return time.Time{}, false
	}
	switch code[4] {
	case 'A':
		return time.Date(year, time.January, 15, 0, 0, 0, 0, time.UTC), true
	case 'B':
		return time.Date(year, time.May, 20, 0, 0, 0, 0, time.UTC), true
	case 'C':
		return time.Date(year, time.August, 27, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/export_service.go
