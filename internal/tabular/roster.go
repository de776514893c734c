package tabular

import (
	"sort"
	"strings"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
)

// RosterFromTable 把花名册表格转换为工程师记录
// Annual PTO Days 列即使存在也会被忽略，年度休假总是由每月休假求和得到
func RosterFromTable(t Table) ([]*domain.Engineer, error) {
	idx := newIndex(t.Header)
	if err := idx.require(ColEngineerName); err != nil {
		return nil, err
	}

	ptoColumns := make(map[string]string) // {列名: 月份}
	for _, h := range t.Header {
		if month, ok := MonthFromPTOColumn(h); ok {
			ptoColumns[strings.TrimSpace(h)] = month
		}
	}

	engineers := make([]*domain.Engineer, 0, len(t.Rows))
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		name := idx.get(row, ColEngineerName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		weeklyHours, _ := ParseAllocation(idx.get(row, ColWeeklyHours))

		e := &domain.Engineer{
			Name:        name,
			Team:        idx.get(row, ColTeam),
			Role:        idx.get(row, ColRole),
			WeeklyHours: weeklyHours,
			PTO:         make(map[string]float64),
		}

		for col, month := range ptoColumns {
			// 非法的休假天数按 0 处理，不影响这一行的其他字段
			days, _ := ParsePTO(idx.get(row, col))
			if days > 0 {
				e.PTO[month] += days
			}
		}

		engineers = append(engineers, e)
	}

	return engineers, nil
}

// RosterToTable 生成花名册表格，休假列覆盖所有工程师有记录的月份
func RosterToTable(engineers []*domain.Engineer) Table {
	monthSet := make(map[string]bool)
	for _, e := range engineers {
		for month := range e.PTO {
			monthSet[month] = true
		}
	}
	months := make([]string, 0, len(monthSet))
	for month := range monthSet {
		months = append(months, month)
	}
	sort.Strings(months)

	header := []string{ColEngineerName, ColTeam, ColRole, ColWeeklyHours, ColAnnualPTODays}
	for _, month := range months {
		header = append(header, PTOColumn(month))
	}

	rows := make([][]string, 0, len(engineers))
	for _, e := range engineers {
		row := []string{e.Name, e.Team, e.Role, formatNumber(e.WeeklyHours), formatNumber(e.AnnualPTODays())}
		for _, month := range months {
			row = append(row, formatNumber(e.PTO[month]))
		}
		rows = append(rows, row)
	}

	return Table{Header: header, Rows: rows}
}

// UtilizationToTable 按固定列输出利用率计算结果
func UtilizationToTable(rows []planner.UtilizationRow) Table {
	header := []string{
		"Engineer",
		"Quarter",
		"Total Allocation %",
		"Effective Allocation %",
		"Available %",
		"PTO Days",
		"Working Days",
		"Status",
		"Months with Data",
	}

	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{
			r.Engineer,
			r.Quarter,
			formatNumber(r.TotalAllocation),
			formatNumber(r.EffectiveAllocation),
			formatNumber(r.Available),
			formatNumber(r.PTODays),
			formatNumber(r.WorkingDays),
			string(r.Status),
			formatNumber(float64(r.MonthsWithData)),
		})
	}

	return Table{Header: header, Rows: data}
}
