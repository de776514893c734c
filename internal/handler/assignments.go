package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
)

// GetAssignments 支持通过 engineer、month、program 查询参数过滤
func (h *Handler) GetAssignments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.AssignmentFilter{
		EngineerName: strings.TrimSpace(query.Get("engineer")),
		Month:        strings.TrimSpace(query.Get("month")),
		Program:      strings.TrimSpace(query.Get("program")),
	}

	assignments, err := h.repository.GetAssignments(filter)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排期记录成功", assignments)
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EngineerName string  `json:"engineerName" validate:"required"`
		Program      string  `json:"program" validate:"required"`
		Feature      string  `json:"feature" validate:"required"`
		Priority     string  `json:"priority" validate:"omitempty,priority"`
		Month        string  `json:"month" validate:"required,month"`
		Allocation   float64 `json:"allocation" validate:"gte=0,lte=100"`
		Notes        string  `json:"notes"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	a := &domain.Assignment{
		EngineerName: strings.TrimSpace(req.EngineerName),
		Program:      req.Program,
		Feature:      req.Feature,
		Priority:     domain.ParsePriority(req.Priority),
		Month:        req.Month,
		Allocation:   req.Allocation,
		Notes:        req.Notes,
	}

	if err := h.repository.CreateAssignment(a); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建排期记录成功", a)
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)
	h.successResponse(w, r, "获取排期记录成功", a)
}

func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EngineerName *string  `json:"engineerName" validate:"omitempty,min=1"`
		Program      *string  `json:"program" validate:"omitempty,min=1"`
		Feature      *string  `json:"feature" validate:"omitempty,min=1"`
		Priority     *string  `json:"priority" validate:"omitempty,priority"`
		Month        *string  `json:"month" validate:"omitempty,month"`
		Allocation   *float64 `json:"allocation" validate:"omitempty,gte=0,lte=100"`
		Notes        *string  `json:"notes"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	if req.EngineerName != nil {
		a.EngineerName = strings.TrimSpace(*req.EngineerName)
	}
	if req.Program != nil {
		a.Program = *req.Program
	}
	if req.Feature != nil {
		a.Feature = *req.Feature
	}
	if req.Priority != nil {
		a.Priority = domain.ParsePriority(*req.Priority)
	}
	if req.Month != nil {
		a.Month = *req.Month
	}
	if req.Allocation != nil {
		a.Allocation = *req.Allocation
	}
	if req.Notes != nil {
		a.Notes = *req.Notes
	}

	if err := h.repository.UpdateAssignment(a); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新排期记录失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新排期记录成功", a)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	a := r.Context().Value(AssignmentCtx).(*domain.Assignment)

	if err := h.repository.DeleteAssignment(a.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除排期记录成功", nil)
}
