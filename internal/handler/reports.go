package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/export"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/repository"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/tabular"
)

const maxLookaheadMonths = 36

// snapshot 是一次报表请求读到的花名册、排期和缺失的维度，计算期间不会再次访问数据库
type snapshot struct {
	roster []*domain.Engineer
	ledger *planner.Ledger
}

func (h *Handler) loadSnapshot() (*snapshot, error) {
	roster, err := h.repository.GetAllEngineers()
	if err != nil {
		return nil, err
	}

	assignments, err := h.repository.GetAssignments(repository.AssignmentFilter{})
	if err != nil {
		return nil, err
	}

	// 导入时缺少的维度列在数据库中以空值保存，必须还原出来，否则趋势会把空值当成一个分组
	missing, err := h.repository.GetMissingDimensions()
	if err != nil {
		return nil, err
	}

	return &snapshot{
		roster: roster,
		ledger: &planner.Ledger{Assignments: assignments, Missing: missing},
	}, nil
}

// lookahead 读取 ?months= 参数，缺省时使用配置中的预测月数
func (h *Handler) lookahead(r *http.Request) (int, error) {
	value := r.URL.Query().Get("months")
	if value == "" {
		return h.config.Planning.LookaheadMonths, nil
	}

	months, err := strconv.Atoi(value)
	if err != nil || months < 1 || months > maxLookaheadMonths {
		return 0, errors.New("months 必须是 1 到 36 之间的整数")
	}
	return months, nil
}

// utilizationRows 计算预测窗口内每名工程师每个季度的利用率
func (h *Handler) utilizationRows(w http.ResponseWriter, r *http.Request) (*snapshot, []planner.UtilizationRow, bool) {
	months, err := h.lookahead(r)
	if err != nil {
		h.badRequest(w, r, err)
		return nil, nil, false
	}

	s, err := h.loadSnapshot()
	if err != nil {
		h.internalServerError(w, r, err)
		return nil, nil, false
	}

	window := fiscal.Window(h.now(), months)
	return s, planner.New(window, s.roster, s.ledger).Utilization(), true
}

// GetUtilization 默认返回 JSON 行，?format=table 时返回 header + rows 的表格
func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := h.utilizationRows(w, r)
	if !ok {
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		h.successResponse(w, r, "获取利用率成功", rows)
	case "table":
		h.successResponse(w, r, "获取利用率成功", tabular.UtilizationToTable(rows))
	default:
		h.errorResponse(w, r, "不支持的格式")
	}
}

func (h *Handler) GetTeamSummary(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := h.utilizationRows(w, r)
	if !ok {
		return
	}

	h.successResponse(w, r, "获取团队汇总成功", planner.TeamSummary(rows))
}

var dimensions = map[string]planner.Dimension{
	"program":  planner.DimensionProgram,
	"feature":  planner.DimensionFeature,
	"priority": planner.DimensionPriority,
}

func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	dim, ok := dimensions[strings.ToLower(chi.URLParam(r, "dimension"))]
	if !ok {
		h.errorResponse(w, r, "不支持的维度，可选 program、feature、priority")
		return
	}

	s, err := h.loadSnapshot()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	points, err := planner.Trend(s.ledger, dim)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrDimensionUnavailable):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取趋势成功", points)
}

func (h *Handler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	metric := planner.Metric(r.URL.Query().Get("metric"))
	switch metric {
	case "":
		metric = planner.MetricAvailable
	case planner.MetricAvailable, planner.MetricAllocated:
	default:
		h.errorResponse(w, r, "不支持的指标，可选 available、allocated")
		return
	}

	_, rows, ok := h.utilizationRows(w, r)
	if !ok {
		return
	}

	h.successResponse(w, r, "获取矩阵成功", planner.Matrix(rows, metric, h.config.Planning.HeatmapThreshold))
}

func (h *Handler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	s, err := h.loadSnapshot()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	bars, err := planner.Timeline(s.roster, s.ledger)
	if err != nil {
		switch {
		case errors.Is(err, planner.ErrDimensionUnavailable):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取时间线成功", bars)
}

// GetProjectTimeline 返回项目储备的甘特图数据
func (h *Handler) GetProjectTimeline(w http.ResponseWriter, r *http.Request) {
	projects, err := h.repository.GetAllFutureProjects()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取项目时间线成功", planner.ProjectTimeline(projects))
}

func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	s, rows, ok := h.utilizationRows(w, r)
	if !ok {
		return
	}

	buf, filename, err := export.Workbook(s.roster, s.ledger.Assignments, rows, h.now())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Description", "File Transfer")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logInternalServerError(r, err)
	}
}

/**
 * SendOverAllocationAlerts 把预测窗口内超额分配的 (工程师, 季度) 通过邮件通知：
 * 		1. 配置了 PLANNING_ALERT_RECIPIENTS 时发给这些邮箱
 * 		2. 否则发给所有在职的管理员和规划员
 */
func (h *Handler) SendOverAllocationAlerts(w http.ResponseWriter, r *http.Request) {
	_, rows, ok := h.utilizationRows(w, r)
	if !ok {
		return
	}

	over := planner.OverAllocated(rows)
	if len(over) == 0 {
		h.successResponse(w, r, "没有超额分配的工程师", map[string]int{"items": 0, "recipients": 0})
		return
	}

	items := make([]domain.OverAllocationItem, 0, len(over))
	for _, row := range over {
		items = append(items, domain.OverAllocationItem{
			Engineer:            row.Engineer,
			Quarter:             row.Quarter,
			EffectiveAllocation: row.EffectiveAllocation,
		})
	}

	type recipient struct {
		fullName string
		email    string
	}
	recipients := make([]recipient, 0)
	if len(h.config.Planning.AlertRecipients) > 0 {
		for _, email := range h.config.Planning.AlertRecipients {
			recipients = append(recipients, recipient{email: strings.TrimSpace(email)})
		}
	} else {
		users, err := h.repository.GetActiveUsersByRoles([]domain.Role{domain.RoleAdmin, domain.RolePlanner})
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		for _, u := range users {
			recipients = append(recipients, recipient{fullName: u.FullName, email: u.Email})
		}
	}

	for _, rc := range recipients {
		err := h.publishMail(domain.MailMessage{
			Type: domain.MailTypeOverAllocationAlert,
			To:   rc.email,
			Data: domain.OverAllocationAlertMailData{
				FullName: rc.fullName,
				Items:    items,
			},
		})
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.successResponse(w, r, "超额分配提醒已通过邮件发送", map[string]int{"items": len(items), "recipients": len(recipients)})
}
