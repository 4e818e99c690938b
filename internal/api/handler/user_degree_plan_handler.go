package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"penn-degree-plan/backend/internal/dto"
	"penn-degree-plan/backend/internal/service"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
	"penn-degree-plan/backend/pkg/response"
)

// UserDegreePlanHandler 用户学位计划实例 HTTP 处理器
type UserDegreePlanHandler struct {
	planSvc service.UserDegreePlanService
	satSvc  service.SatisfactionService
}

// NewUserDegreePlanHandler 创建 UserDegreePlanHandler
func NewUserDegreePlanHandler(planSvc service.UserDegreePlanService, satSvc service.SatisfactionService) *UserDegreePlanHandler {
	return &UserDegreePlanHandler{planSvc: planSvc, satSvc: satSvc}
}

// CreatePlan 创建学位计划实例
// POST /api/v1/user-degree-plans
func (h *UserDegreePlanHandler) CreatePlan(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateUserDegreePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	plan, err := h.planSvc.CreatePlan(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrDegreePlanNotFound) {
			response.NotFound(c, 17001, "学位计划不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, plan)
}

// ListPlans 当前用户的学位计划实例列表
// GET /api/v1/user-degree-plans
func (h *UserDegreePlanHandler) ListPlans(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plans, err := h.planSvc.ListPlans(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, plans)
}

// GetPlan 学位计划实例详情
// GET /api/v1/user-degree-plans/:id
func (h *UserDegreePlanHandler) GetPlan(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.GetPlan(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handlePlanError(c, err)
		return
	}
	response.OK(c, plan)
}

// DeletePlan 删除学位计划实例
// DELETE /api/v1/user-degree-plans/:id
func (h *UserDegreePlanHandler) DeletePlan(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.planSvc.DeletePlan(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handlePlanError(c, err)
		return
	}
	response.OK(c, nil)
}

// GetSatisfaction 评估学位计划满足状态
// GET /api/v1/user-degree-plans/:id/satisfaction
func (h *UserDegreePlanHandler) GetSatisfaction(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.satSvc.GetSatisfaction(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if pkgerrors.IsConfigurationError(err) {
			// 规则树配置缺陷：导入数据问题，非客户端错误
			response.ErrorWithDetails(c, 500, 50000, "规则配置错误", err.Error())
			return
		}
		h.handlePlanError(c, err)
		return
	}
	response.OK(c, result)
}

func (h *UserDegreePlanHandler) handlePlanError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserPlanNotFound):
		response.NotFound(c, 18001, "用户学位计划不存在")
	case errors.Is(err, service.ErrNotPlanOwner):
		response.Forbidden(c, 10003, "无权访问他人的学位计划")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/user_degree_plan_handler.go
