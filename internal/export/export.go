package export

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/tabular"
	"github.com/xuri/excelize/v2"
)

const (
	SheetRoster      = "Engineer Capacity"
	SheetLedger      = "Assignment Ledger"
	SheetPivot       = "Allocation Pivot"
	SheetUtilization = "Quarterly Utilization"
	SheetChartData   = "Effective Allocation"
)

var ErrGenerateFailed = errors.New("生成 Excel 文件失败")

/**
 * Workbook 生成导出用的电子表格：
 * 		1. Engineer Capacity：花名册原始数据
 * 		2. Assignment Ledger：排期原始数据
 * 		3. Allocation Pivot：(工程师, 功能) × 月份 的透视表
 * 		4. Quarterly Utilization：利用率计算结果
 * 		5. Effective Allocation：工程师 × 季度的有效分配比例，附带柱状图
 * 返回值：buf（Excel 内容），filename（建议文件名），error
 */
func Workbook(roster []*domain.Engineer, assignments []*domain.Assignment, rows []planner.UtilizationRow, now time.Time) (*bytes.Buffer, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetRoster); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}
	for _, name := range []string{SheetLedger, SheetPivot, SheetUtilization, SheetChartData} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}

	tables := []struct {
		sheet string
		table tabular.Table
	}{
		{SheetRoster, tabular.RosterToTable(roster)},
		{SheetLedger, tabular.LedgerToTable(assignments)},
		{SheetPivot, pivotTable(assignments)},
		{SheetUtilization, tabular.UtilizationToTable(rows)},
	}
	for _, t := range tables {
		if err := writeTable(f, t.sheet, t.table, headerStyle); err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
		}
	}

	if err := writeChart(f, rows, headerStyle); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}

	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGenerateFailed, err)
	}

	filename := fmt.Sprintf("Engineer_Resource_Allocation_%s.xlsx", now.Format("20060102"))
	return buf, filename, nil
}

// writeTable 把表格写到指定 sheet 的 A1 开始处，数值单元格尽量写成数字
func writeTable(f *excelize.File, sheet string, t tabular.Table, headerStyle int) error {
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(t.Header))
		if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
			return err
		}
	}

	for i, row := range t.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			if n, ok := tabular.ParseAllocation(v); ok && v != "" && !isText(t.Header, j) {
				values[j] = n
			} else {
				values[j] = v
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	return nil
}

// 这些列即使内容像数字也按文本写入
var textColumns = map[string]bool{
	tabular.ColEngineerName: true,
	tabular.ColTeam:         true,
	tabular.ColRole:         true,
	tabular.ColProgram:      true,
	tabular.ColFeature:      true,
	tabular.ColMonth:        true,
	tabular.ColNotes:        true,
	"Engineer":              true,
	"Quarter":               true,
}

func isText(header []string, col int) bool {
	if col >= len(header) {
		return true
	}
	return textColumns[header[col]]
}

// pivotTable 生成 (工程师, 功能) × 月份 的分配百分比透视表
func pivotTable(assignments []*domain.Assignment) tabular.Table {
	type key struct {
		engineer string
		feature  string
	}

	values := make(map[key]map[string]float64)
	keys := make([]key, 0)
	monthSet := make(map[string]bool)
	for _, a := range assignments {
		k := key{engineer: a.EngineerName, feature: a.Feature}
		if _, exists := values[k]; !exists {
			values[k] = make(map[string]float64)
			keys = append(keys, k)
		}
		values[k][a.Month] += a.Allocation
		monthSet[a.Month] = true
	}

	months := make([]string, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}
	sort.Strings(months)

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].engineer != keys[j].engineer {
			return keys[i].engineer < keys[j].engineer
		}
		return keys[i].feature < keys[j].feature
	})

	header := append([]string{tabular.ColEngineerName, tabular.ColFeature}, months...)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		row := []string{k.engineer, k.feature}
		for _, m := range months {
			v, ok := values[k][m]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, fmt.Sprintf("%g", v))
		}
		rows = append(rows, row)
	}

	return tabular.Table{Header: header, Rows: rows}
}

// writeChart 写出工程师 × 季度的有效分配比例，并为每个季度添加一组柱子
func writeChart(f *excelize.File, rows []planner.UtilizationRow, headerStyle int) error {
	matrix := planner.Matrix(rows, planner.MetricAllocated, planner.HeatmapThreshold)

	header := []any{"Engineer"}
	for _, q := range matrix.Quarters {
		header = append(header, q)
	}
	if err := f.SetSheetRow(SheetChartData, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetChartData, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, name := range matrix.Engineers {
		row := []any{name}
		for _, v := range matrix.Values[i] {
			row = append(row, v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetChartData, cell, &row); err != nil {
			return err
		}
	}

	if len(matrix.Engineers) == 0 || len(matrix.Quarters) == 0 {
		return nil
	}

	lastRow := len(matrix.Engineers) + 1
	series := make([]excelize.ChartSeries, 0, len(matrix.Quarters))
	for j := range matrix.Quarters {
		col, _ := excelize.ColumnNumberToName(j + 2)
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("'%s'!$%s$1", SheetChartData, col),
			Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", SheetChartData, lastRow),
			Values:     fmt.Sprintf("'%s'!$%s$2:$%s$%d", SheetChartData, col, col, lastRow),
		})
	}

	anchor, _ := excelize.CoordinatesToCellName(len(header)+2, 2)
	return f.AddChart(SheetChartData, anchor, &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title:  []excelize.RichTextRun{{Text: "Effective Allocation by Quarter"}},
		Legend: excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{
			Width:  960,
			Height: 480,
		},
	})
}
