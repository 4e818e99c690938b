package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"penn-degree-plan/backend/config"
	"penn-degree-plan/backend/internal/model"
	"penn-degree-plan/backend/internal/repository"
	"penn-degree-plan/backend/internal/service"
	"penn-degree-plan/backend/pkg/database"
	applogger "penn-degree-plan/backend/pkg/logger"
)

// auditimport — DegreeWorks 审计导入工具
//
// 将一份 DegreeWorks 审计 JSON 翻译为规则树并写入学位计划目录：
//
//	auditimport -audit audit.json -program EU_BSE -degree BSE -major CSCI -year 2024
//
// 可选 -restrictions 提供双算限制文件（JSON 数组，按规则标题引用）：
//
//	[{"rule_title":"Core","other_rule_title":"Electives","max_courses":1}]

// restrictionSpec 双算限制导入项（按规则标题引用，导入后解析为规则 ID）
type restrictionSpec struct {
	RuleTitle      string   `json:"rule_title"`
	OtherRuleTitle string   `json:"other_rule_title"`
	MaxCourses     *int     `json:"max_courses,omitempty"`
	MaxCredits     *float64 `json:"max_credits,omitempty"`
}

func main() {
	var (
		auditPath        = flag.String("audit", "", "DegreeWorks 审计 JSON 文件路径（必填）")
		restrictionsPath = flag.String("restrictions", "", "双算限制 JSON 文件路径（可选）")
		configPath       = flag.String("config", "", "配置文件路径（默认按 config/config.yaml 查找）")
		program          = flag.String("program", "", "项目代码，如 EU_BSE（必填）")
		degree           = flag.String("degree", "", "学位代码，如 BSE（必填）")
		major            = flag.String("major", "", "专业代码，如 CSCI（必填）")
		concentration    = flag.String("concentration", "", "方向代码（可选）")
		year             = flag.Int("year", 0, "入学年份，如 2024（必填）")
	)
	flag.Parse()

	if *auditPath == "" || *program == "" || *degree == "" || *major == "" || *year == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	auditJSON, err := os.ReadFile(*auditPath)
	if err != nil {
		logger.Fatal("读取审计文件失败", zap.String("path", *auditPath), zap.Error(err))
	}

	repo := repository.NewRepository(db)
	planSvc := service.NewDegreePlanService(repo, logger)

	plan := &model.DegreePlan{
		Program: *program,
		Degree:  *degree,
		Major:   *major,
		Year:    *year,
	}
	if *concentration != "" {
		plan.Concentration = concentration
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	ruleCount, err := planSvc.ImportAudit(ctx, plan, auditJSON)
	if err != nil {
		logger.Fatal("审计导入失败", zap.Error(err))
	}
	fmt.Printf("导入完成: degree_plan_id=%s rules=%d\n", plan.DegreePlanID, ruleCount)

	if *restrictionsPath == "" {
		return
	}

	// ── 双算限制导入 ──
	restrictionsJSON, err := os.ReadFile(*restrictionsPath)
	if err != nil {
		logger.Fatal("读取双算限制文件失败", zap.String("path", *restrictionsPath), zap.Error(err))
	}
	var specs []restrictionSpec
	if err := json.Unmarshal(restrictionsJSON, &specs); err != nil {
		logger.Fatal("解析双算限制文件失败", zap.Error(err))
	}

	rules, err := repo.Rule.ListByDegreePlan(ctx, plan.DegreePlanID)
	if err != nil {
		logger.Fatal("查询规则树失败", zap.Error(err))
	}
	byTitle := make(map[string]string, len(rules))
	for i := range rules {
		if rules[i].Title != "" {
			byTitle[rules[i].Title] = rules[i].RuleID
		}
	}

	created := 0
	for _, spec := range specs {
		ruleID, ok := byTitle[spec.RuleTitle]
		otherID, ok2 := byTitle[spec.OtherRuleTitle]
		if !ok || !ok2 {
			logger.Warn("双算限制引用了未知规则标题，跳过",
				zap.String("rule_title", spec.RuleTitle),
				zap.String("other_rule_title", spec.OtherRuleTitle))
			continue
		}
		if err := planSvc.AddRestriction(ctx, plan.DegreePlanID, ruleID, otherID, spec.MaxCourses, spec.MaxCredits); err != nil {
			logger.Fatal("写入双算限制失败", zap.Error(err))
		}
		created++
	}
	fmt.Printf("双算限制导入完成: restrictions=%d\n", created)
}
