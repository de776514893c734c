package handler

import (
	"errors"
	"net/http"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/tabular"
)

// readTable 读取 {header, rows} 格式的表格，表头不能为空
func (h *Handler) readTable(w http.ResponseWriter, r *http.Request) (tabular.Table, bool) {
	var req struct {
		Header []string   `json:"header" validate:"required,min=1"`
		Rows   [][]string `json:"rows"`
	}
	if !h.decodeAndValidate(w, r, &req) {
		return tabular.Table{}, false
	}

	return tabular.Table{Header: req.Header, Rows: req.Rows}, true
}

// ImportEngineers 用表格整体替换花名册
func (h *Handler) ImportEngineers(w http.ResponseWriter, r *http.Request) {
	table, ok := h.readTable(w, r)
	if !ok {
		return
	}

	engineers, err := tabular.RosterFromTable(table)
	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrMissingColumn):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.repository.ReplaceRoster(engineers); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "导入花名册成功", map[string]int{"engineers": len(engineers)})
}

// ImportAssignments 用表格整体替换排期，缺少的维度列会在响应中列出
func (h *Handler) ImportAssignments(w http.ResponseWriter, r *http.Request) {
	table, ok := h.readTable(w, r)
	if !ok {
		return
	}

	ledger, err := tabular.LedgerFromTable(table)
	if err != nil {
		switch {
		case errors.Is(err, tabular.ErrMissingColumn):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.repository.ReplaceLedger(ledger.Assignments, ledger.Missing); err != nil {
		if msg, ok := constraintMessage(err); ok {
			h.errorResponse(w, r, msg)
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "导入排期成功", struct {
		Assignments       int                 `json:"assignments"`
		MissingDimensions []planner.Dimension `json:"missingDimensions"`
	}{
		Assignments:       len(ledger.Assignments),
		MissingDimensions: ledger.Missing,
	})
}
