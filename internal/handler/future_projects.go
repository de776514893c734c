package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/utils"
)

const dateLayout = "2006-01-02"

func (h *Handler) GetAllFutureProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repository.GetAllFutureProjects()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目储备成功", projects)
}

func (h *Handler) CreateFutureProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               string `json:"name" validate:"required"`
		ExpectedStartDate  string `json:"expectedStartDate" validate:"required,datetime=2006-01-02"`
		ExpectedEndDate    string `json:"expectedEndDate" validate:"required,datetime=2006-01-02"`
		RequiredSkills     string `json:"requiredSkills"`
		EstimatedEngineers int32  `json:"estimatedEngineers" validate:"gte=0"`
		Priority           string `json:"priority" validate:"omitempty,priority"`
		Status             string `json:"status" validate:"omitempty,projectstatus"`
		Notes              string `json:"notes"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// 格式已经由 datetime 校验过
	start, _ := time.Parse(dateLayout, req.ExpectedStartDate)
	end, _ := time.Parse(dateLayout, req.ExpectedEndDate)

	p := &domain.FutureProject{
		Name:               req.Name,
		ExpectedStartDate:  start,
		ExpectedEndDate:    end,
		RequiredSkills:     req.RequiredSkills,
		EstimatedEngineers: req.EstimatedEngineers,
		Priority:           domain.ParsePriority(req.Priority),
		Status:             domain.ProjectStatus(req.Status),
		Notes:              req.Notes,
	}
	if p.Status == "" {
		p.Status = domain.ProjectStatusPlanning
	}

	if err := utils.ValidateFutureProjectDates(p); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateFutureProject(p); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建项目成功", p)
}

func (h *Handler) GetFutureProject(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(FutureProjectCtx).(*domain.FutureProject)
	h.successResponse(w, r, "获取项目成功", p)
}

func (h *Handler) UpdateFutureProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               *string `json:"name" validate:"omitempty,min=1"`
		ExpectedStartDate  *string `json:"expectedStartDate" validate:"omitempty,datetime=2006-01-02"`
		ExpectedEndDate    *string `json:"expectedEndDate" validate:"omitempty,datetime=2006-01-02"`
		RequiredSkills     *string `json:"requiredSkills"`
		EstimatedEngineers *int32  `json:"estimatedEngineers" validate:"omitempty,gte=0"`
		Priority           *string `json:"priority" validate:"omitempty,priority"`
		Status             *string `json:"status" validate:"omitempty,projectstatus"`
		Notes              *string `json:"notes"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	p := r.Context().Value(FutureProjectCtx).(*domain.FutureProject)

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.ExpectedStartDate != nil {
		p.ExpectedStartDate, _ = time.Parse(dateLayout, *req.ExpectedStartDate)
	}
	if req.ExpectedEndDate != nil {
		p.ExpectedEndDate, _ = time.Parse(dateLayout, *req.ExpectedEndDate)
	}
	if req.RequiredSkills != nil {
		p.RequiredSkills = *req.RequiredSkills
	}
	if req.EstimatedEngineers != nil {
		p.EstimatedEngineers = *req.EstimatedEngineers
	}
	if req.Priority != nil {
		p.Priority = domain.ParsePriority(*req.Priority)
	}
	if req.Status != nil {
		p.Status = domain.ProjectStatus(*req.Status)
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	if err := utils.ValidateFutureProjectDates(p); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.UpdateFutureProject(p); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新项目失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新项目成功", p)
}

func (h *Handler) DeleteFutureProject(w http.ResponseWriter, r *http.Request) {
	p := r.Context().Value(FutureProjectCtx).(*domain.FutureProject)

	if err := h.repository.DeleteFutureProject(p.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除项目成功", nil)
}

func (h *Handler) GetPipelineSummary(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repository.GetAllFutureProjects()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目储备汇总成功", planner.SummarizePipeline(projects))
}
