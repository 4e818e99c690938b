package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"penn-degree-plan/backend/internal/dto"
	"penn-degree-plan/backend/internal/service"
	pkgerrors "penn-degree-plan/backend/pkg/errors"
	"penn-degree-plan/backend/pkg/response"
)

// FulfillmentHandler 履修记录 HTTP 处理器
type FulfillmentHandler struct {
	fulfillmentSvc service.FulfillmentService
}

// NewFulfillmentHandler 创建 FulfillmentHandler
func NewFulfillmentHandler(fulfillmentSvc service.FulfillmentService) *FulfillmentHandler {
	return &FulfillmentHandler{fulfillmentSvc: fulfillmentSvc}
}

// ListFulfillments 履修记录列表
// GET /api/v1/user-degree-plans/:id/fulfillments
func (h *FulfillmentHandler) ListFulfillments(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.fulfillmentSvc.ListFulfillments(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.handleFulfillmentError(c, err)
		return
	}
	response.OK(c, list)
}

// CreateFulfillment 创建履修记录
// POST /api/v1/user-degree-plans/:id/fulfillments
func (h *FulfillmentHandler) CreateFulfillment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.fulfillmentSvc.CreateFulfillment(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		h.handleFulfillmentError(c, err)
		return
	}
	response.Created(c, result)
}

// UpdateFulfillment 更新履修记录（学期与规则分配）
// PUT /api/v1/user-degree-plans/:id/fulfillments/:fid
func (h *FulfillmentHandler) UpdateFulfillment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.fulfillmentSvc.UpdateFulfillment(c.Request.Context(), userID, c.Param("id"), c.Param("fid"), &req)
	if err != nil {
		h.handleFulfillmentError(c, err)
		return
	}
	response.OK(c, result)
}

// DeleteFulfillment 删除履修记录
// DELETE /api/v1/user-degree-plans/:id/fulfillments/:fid
func (h *FulfillmentHandler) DeleteFulfillment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.fulfillmentSvc.DeleteFulfillment(c.Request.Context(), userID, c.Param("id"), c.Param("fid")); err != nil {
		h.handleFulfillmentError(c, err)
		return
	}
	response.OK(c, nil)
}

// handleFulfillmentError 履修模块统一错误映射
// 双算限制违规返回 400 + 结构化详情，供前端高亮冲突课程
func (h *FulfillmentHandler) handleFulfillmentError(c *gin.Context, err error) {
	if v := pkgerrors.AsRuleViolation(err); v != nil {
		c.JSON(http.StatusBadRequest, response.Response{
			Code:    18104,
			Message: "违反双算限制",
			Data: dto.RuleViolationDetail{
				RuleID:        v.RuleID,
				OtherRuleID:   v.OtherRuleID,
				MaxCourses:    v.MaxCourses,
				MaxCredits:    v.MaxCredits,
				SharedCourses: v.SharedCourses,
			},
			Details: v.Error(),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUserPlanNotFound):
		response.NotFound(c, 18001, "用户学位计划不存在")
	case errors.Is(err, service.ErrNotPlanOwner):
		response.Forbidden(c, 10003, "无权访问他人的学位计划")
	case errors.Is(err, service.ErrFulfillmentNotFound):
		response.NotFound(c, 18101, "履修记录不存在")
	case errors.Is(err, service.ErrRuleNotInPlan):
		response.BadRequest(c, 18102, "规则不属于该学位计划")
	case errors.Is(err, service.ErrDuplicateFulfillment):
		response.Conflict(c, 18103, "同一学期的该课程已在计划中")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/fulfillment_handler.go
