package tabular

import (
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/planner"
)

// LedgerFromTable 把排期表格转换为排期快照
// Engineer Name、Month、Allocation % 是必需列；缺少 Program / Feature / Priority 时只会让对应的视图不可用
func LedgerFromTable(t Table) (*planner.Ledger, error) {
	idx := newIndex(t.Header)
	if err := idx.require(ColEngineerName, ColMonth, ColAllocation); err != nil {
		return nil, err
	}

	ledger := &planner.Ledger{
		Assignments: make([]*domain.Assignment, 0, len(t.Rows)),
		Missing:     make([]planner.Dimension, 0),
	}
	for _, dim := range []planner.Dimension{planner.DimensionProgram, planner.DimensionFeature, planner.DimensionPriority} {
		if !idx.has(string(dim)) {
			ledger.Missing = append(ledger.Missing, dim)
		}
	}

	for _, row := range t.Rows {
		name := idx.get(row, ColEngineerName)
		if name == "" {
			continue
		}

		// 非法的百分比按 0 处理，这一行仍然保留；越界的百分比收敛到 0~100
		allocation, _ := ParseAssignmentAllocation(idx.get(row, ColAllocation))

		ledger.Assignments = append(ledger.Assignments, &domain.Assignment{
			EngineerName: name,
			Program:      idx.get(row, ColProgram),
			Feature:      idx.get(row, ColFeature),
			Priority:     domain.ParsePriority(idx.get(row, ColPriority)),
			Month:        idx.get(row, ColMonth),
			Allocation:   allocation,
			Notes:        idx.get(row, ColNotes),
		})
	}

	return ledger, nil
}

func LedgerToTable(assignments []*domain.Assignment) Table {
	header := []string{ColEngineerName, ColProgram, ColFeature, ColPriority, ColMonth, ColAllocation, ColNotes}

	rows := make([][]string, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, []string{
			a.EngineerName,
			a.Program,
			a.Feature,
			string(a.Priority),
			a.Month,
			formatNumber(a.Allocation),
			a.Notes,
		})
	}

	return Table{Header: header, Rows: rows}
}
