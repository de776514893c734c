package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"
)

func (h *Handler) GetAllEngineers(w http.ResponseWriter, r *http.Request) {
	engineers, err := h.repository.GetAllEngineers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取工程师列表成功", engineers)
}

func (h *Handler) CreateEngineer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string             `json:"name" validate:"required"`
		Team        string             `json:"team"`
		Role        string             `json:"role"`
		WeeklyHours float64            `json:"weeklyHours" validate:"gte=0,lte=168"`
		PTO         map[string]float64 `json:"pto"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		h.errorResponse(w, r, "工程师姓名不能为空")
		return
	}
	if err := utils.ValidatePTO(req.PTO); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engineer := &domain.Engineer{
		Name:        name,
		Team:        strings.TrimSpace(req.Team),
		Role:        strings.TrimSpace(req.Role),
		WeeklyHours: req.WeeklyHours,
		PTO:         req.PTO,
	}
	if engineer.PTO == nil {
		engineer.PTO = make(map[string]float64)
	}

	if err := h.repository.CreateEngineer(engineer); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建工程师成功", engineer)
}

func (h *Handler) GetEngineer(w http.ResponseWriter, r *http.Request) {
	engineer := r.Context().Value(EngineerCtx).(*domain.Engineer)
	h.successResponse(w, r, "获取工程师信息成功", engineer)
}

func (h *Handler) UpdateEngineer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        *string  `json:"name" validate:"omitempty,min=1"`
		Team        *string  `json:"team"`
		Role        *string  `json:"role"`
		WeeklyHours *float64 `json:"weeklyHours" validate:"omitempty,gte=0,lte=168"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	engineer := r.Context().Value(EngineerCtx).(*domain.Engineer)
	previousName := engineer.Name

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			h.errorResponse(w, r, "工程师姓名不能为空")
			return
		}
		engineer.Name = name
	}
	if req.Team != nil {
		engineer.Team = strings.TrimSpace(*req.Team)
	}
	if req.Role != nil {
		engineer.Role = strings.TrimSpace(*req.Role)
	}
	if req.WeeklyHours != nil {
		engineer.WeeklyHours = *req.WeeklyHours
	}

	if err := h.repository.UpdateEngineer(engineer, previousName); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新工程师信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新工程师信息成功", engineer)
}

func (h *Handler) DeleteEngineer(w http.ResponseWriter, r *http.Request) {
	engineer := r.Context().Value(EngineerCtx).(*domain.Engineer)

	if err := h.repository.DeleteEngineer(engineer.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除工程师成功", nil)
}

// ReplaceEngineerPTO 整体替换每月休假，年度休假随之重新计算
func (h *Handler) ReplaceEngineerPTO(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PTO map[string]float64 `json:"pto" validate:"required"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := utils.ValidatePTO(req.PTO); err != nil {
		h.badRequest(w, r, err)
		return
	}

	engineer := r.Context().Value(EngineerCtx).(*domain.Engineer)

	if err := h.repository.ReplaceEngineerPTO(engineer.ID, req.PTO); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		switch {
		case errors.Is(err, repository.ErrEngineerNotFound):
			h.errorResponse(w, r, "工程师不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	engineer.PTO = req.PTO
	h.successResponse(w, r, "更新休假成功", engineer)
}
