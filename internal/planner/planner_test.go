package planner

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/domain"
	"github.com/sysu-ecnc-dev/capacity-planner/backend/internal/fiscal"
)

// ── 测试辅助 ──

var q1FY2026 = fiscal.Quarter{Year: 2026, Number: 1} // 2025-08 ~ 2025-10

func engineer(name string, pto map[string]float64) *domain.Engineer {
	return &domain.Engineer{Name: name, Team: "Team A", Role: "Backend Dev", WeeklyHours: 40, PTO: pto}
}

func assignment(name, feature, month string, allocation float64) *domain.Assignment {
	return &domain.Assignment{
		EngineerName: name,
		Program:      "Alpha",
		Feature:      feature,
		Priority:     domain.PriorityMedium,
		Month:        month,
		Allocation:   allocation,
	}
}

func singleRow(t *testing.T, roster []*domain.Engineer, ledger *Ledger) UtilizationRow {
	t.Helper()
	rows := New([]fiscal.Quarter{q1FY2026}, roster, ledger).Utilization()
	if len(rows) != 1 {
		t.Fatalf("期望 1 行，实际 %d 行", len(rows))
	}
	return rows[0]
}

// ── Utilization 测试 ──

func TestUtilization_SparseMonthAveraging(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", map[string]float64{"2025-08": 0, "2025-09": 0, "2025-10": 0})}
	ledger := &Ledger{Assignments: []*domain.Assignment{assignment("Jane Doe", "Login", "2025-09", 30)}}

	row := singleRow(t, roster, ledger)

	if row.EffectiveAllocation != 30 {
		t.Errorf("只有一个月排了 30%%，季度利用率应当是 30，实际 %v", row.EffectiveAllocation)
	}
	if row.TotalAllocation != 30 {
		t.Errorf("TotalAllocation 期望 30，实际 %v", row.TotalAllocation)
	}
	if row.MonthsWithData != 1 {
		t.Errorf("MonthsWithData 期望 1，实际 %d", row.MonthsWithData)
	}
	if row.Available != 70 {
		t.Errorf("Available 期望 70，实际 %v", row.Available)
	}
	if row.Status != StatusAvailable {
		t.Errorf("Status 期望 Available，实际 %s", row.Status)
	}
}

func TestUtilization_ZeroAssignmentQuarter(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", map[string]float64{"2025-08": 5})}
	ledger := &Ledger{Assignments: []*domain.Assignment{assignment("Jane Doe", "Login", "2026-03", 50)}}

	row := singleRow(t, roster, ledger)

	if row.TotalAllocation != 0 || row.EffectiveAllocation != 0 {
		t.Errorf("没有排期的季度利用率应当为 0，实际 %v / %v", row.TotalAllocation, row.EffectiveAllocation)
	}
	if row.Available != 100 {
		t.Errorf("没有排期的季度可用容量应当为 100，实际 %v", row.Available)
	}
	if row.Status != StatusAvailable {
		t.Errorf("Status 期望 Available，实际 %s", row.Status)
	}
	if row.MonthsWithData != 0 {
		t.Errorf("MonthsWithData 期望 0，实际 %d", row.MonthsWithData)
	}
	if len(row.Features) != 0 {
		t.Errorf("Features 应当为空，实际 %v", row.Features)
	}
}

func TestUtilization_PTOShrinksCapacityNotAllocation(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", map[string]float64{"2025-08": 11, "2025-09": 0, "2025-10": 0})}
	ledger := &Ledger{Assignments: []*domain.Assignment{assignment("Jane Doe", "Login", "2025-08", 50)}}

	row := singleRow(t, roster, ledger)

	if row.EffectiveAllocation != 50 {
		t.Errorf("休假不应当放大已分配比例，期望 50，实际 %v", row.EffectiveAllocation)
	}
	if row.Available != 0 {
		t.Errorf("容量上限 100*0.5=50 减去 50，期望 0，实际 %v", row.Available)
	}
	if row.PTOImpact != 50 {
		t.Errorf("PTOImpact 期望 50，实际 %v", row.PTOImpact)
	}
	if row.PTODays != 11 {
		t.Errorf("PTODays 期望 11，实际 %v", row.PTODays)
	}
	if row.WorkingDays != 55 {
		t.Errorf("WorkingDays 期望 11+22+22=55，实际 %v", row.WorkingDays)
	}
}

func TestUtilization_AvailableIsClampedAtZero(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", map[string]float64{"2025-08": 20})}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Login", "2025-08", 60),
		assignment("Jane Doe", "Search", "2025-08", 60),
	}}

	row := singleRow(t, roster, ledger)

	if row.Available != 0 {
		t.Errorf("可用容量不能为负，实际 %v", row.Available)
	}
	if row.EffectiveAllocation != 120 {
		t.Errorf("同一个月的多条记录应当相加，期望 120，实际 %v", row.EffectiveAllocation)
	}
	if row.Status != StatusOverAllocated {
		t.Errorf("Status 期望 Over-allocated，实际 %s", row.Status)
	}
}

func TestUtilization_PTOFallsBackToAnnualAverage(t *testing.T) {
	// 2025-08 没有记录，按年度总数 24 / 12 = 2 天计算
	roster := []*domain.Engineer{engineer("Jane Doe", map[string]float64{"2025-12": 12, "2026-01": 12})}
	ledger := &Ledger{Assignments: []*domain.Assignment{assignment("Jane Doe", "Login", "2025-08", 40)}}

	row := singleRow(t, roster, ledger)

	if row.PTODays != 6 {
		t.Errorf("PTODays 期望 3 个月各 2 天共 6 天，实际 %v", row.PTODays)
	}
	want := round2(100*(20.0/22.0) - 40)
	if row.Available != want {
		t.Errorf("Available 期望 %v，实际 %v", want, row.Available)
	}
}

func TestUtilization_FeatureRollupUsesAssignedMonths(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", nil)}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Search", "2025-08", 40),
		assignment("Jane Doe", "Login", "2025-08", 20),
		assignment("Jane Doe", "Search", "2025-09", 20),
	}}

	row := singleRow(t, roster, ledger)

	want := []FeatureAllocation{
		{Feature: "Login", Allocation: 10},
		{Feature: "Search", Allocation: 30},
	}
	if !reflect.DeepEqual(row.Features, want) {
		t.Errorf("Features 期望 %v，实际 %v", want, row.Features)
	}
	if row.EffectiveAllocation != 40 {
		t.Errorf("(60+20)/2 = 40，实际 %v", row.EffectiveAllocation)
	}
}

func TestUtilization_ExcludesEngineersNotInRoster(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", nil)}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Login", "2025-08", 10),
		assignment("Ghost", "Login", "2025-08", 90),
	}}

	rows := New(fiscal.Window(q1FY2026.FirstMonth(), 12), roster, ledger).Utilization()

	if len(rows) != 4 {
		t.Fatalf("1 名工程师 × 4 个季度应当有 4 行，实际 %d", len(rows))
	}
	for _, row := range rows {
		if row.Engineer != "Jane Doe" {
			t.Errorf("不在花名册中的工程师不应出现，实际 %s", row.Engineer)
		}
	}
	if rows[0].EffectiveAllocation != 10 {
		t.Errorf("第一个季度期望 10，实际 %v", rows[0].EffectiveAllocation)
	}
}

func TestUtilization_EmptyInputs(t *testing.T) {
	rows := New(fiscal.Window(q1FY2026.FirstMonth(), 12), nil, nil).Utilization()
	if rows == nil || len(rows) != 0 {
		t.Errorf("空花名册应当返回空切片而不是 nil，实际 %#v", rows)
	}

	rows = New(fiscal.Window(q1FY2026.FirstMonth(), 12), []*domain.Engineer{engineer("Jane Doe", nil)}, &Ledger{}).Utilization()
	if len(rows) != 4 {
		t.Fatalf("期望 4 行，实际 %d", len(rows))
	}
	for _, row := range rows {
		if row.Available != 100 || row.Status != StatusAvailable {
			t.Errorf("没有任何排期的工程师应当完全空闲，实际 %+v", row)
		}
	}
}

func TestUtilization_Idempotent(t *testing.T) {
	roster := []*domain.Engineer{
		engineer("Jane Doe", map[string]float64{"2025-08": 2.5}),
		engineer("John Smith", map[string]float64{"2025-11": 4}),
	}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Login", "2025-08", 33.3),
		assignment("Jane Doe", "Search", "2025-08", 33.3),
		assignment("John Smith", "Login", "2025-11", 70),
		assignment("John Smith", "Billing", "2026-02", 95),
	}}
	window := fiscal.Window(q1FY2026.FirstMonth(), 12)

	first := New(window, roster, ledger).Utilization()
	second := New(window, roster, ledger).Utilization()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("同一快照两次计算的结果应当完全一致")
	}
}

func TestUtilization_DuplicateRosterNamesKeepFirst(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", nil), engineer(" Jane Doe ", nil)}
	rows := New([]fiscal.Quarter{q1FY2026}, roster, &Ledger{}).Utilization()
	if len(rows) != 1 {
		t.Errorf("重复的工程师只应统计一次，实际 %d 行", len(rows))
	}
}

func TestUtilization_StatusUsesUnroundedAllocation(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", nil)}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Login", "2025-08", 60),
		assignment("Jane Doe", "Search", "2025-08", 40.004),
	}}

	row := singleRow(t, roster, ledger)

	if row.EffectiveAllocation != 100 {
		t.Errorf("展示值期望取整为 100，实际 %v", row.EffectiveAllocation)
	}
	if row.Status != StatusOverAllocated {
		t.Errorf("100.004%% 期望 %s，实际 %s", StatusOverAllocated, row.Status)
	}
}

// ── Classify 测试 ──

func TestClassify(t *testing.T) {
	cases := []struct {
		value float64
		want  Status
	}{
		{0, StatusAvailable},
		{84.9, StatusAvailable},
		{85, StatusFullyOccupied},
		{100, StatusFullyOccupied},
		{100.004, StatusOverAllocated},
		{100.1, StatusOverAllocated},
	}
	for _, c := range cases {
		if got := Classify(c.value); got != c.want {
			t.Errorf("Classify(%v) = %s，期望 %s", c.value, got, c.want)
		}
	}
}

// ── TeamSummary / Trend / Matrix 测试 ──

func TestTeamSummary(t *testing.T) {
	rows := []UtilizationRow{
		{Engineer: "A", Quarter: "Q2 FY2026", TotalAllocation: 90, EffectiveAllocation: 90, Available: 10, Status: StatusFullyOccupied},
		{Engineer: "A", Quarter: "Q1 FY2026", TotalAllocation: 120, EffectiveAllocation: 120, Available: 0, Status: StatusOverAllocated},
		{Engineer: "B", Quarter: "Q1 FY2026", TotalAllocation: 40, EffectiveAllocation: 40, Available: 60, Status: StatusAvailable},
		{Engineer: "B", Quarter: "Q2 FY2026", TotalAllocation: 0, EffectiveAllocation: 0, Available: 100, Status: StatusAvailable},
	}

	got := TeamSummary(rows)

	want := []QuarterSummary{
		{Quarter: "Q1 FY2026", TeamSize: 2, AverageUtilization: 80, AverageEffectiveAllocation: 80, AverageAvailable: 30, OverAllocated: 1, Available: 1},
		{Quarter: "Q2 FY2026", TeamSize: 2, AverageUtilization: 45, AverageEffectiveAllocation: 45, AverageAvailable: 55, FullyOccupied: 1, Available: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TeamSummary 期望 %+v，实际 %+v", want, got)
	}

	if empty := TeamSummary(nil); empty == nil || len(empty) != 0 {
		t.Errorf("空输入应当返回空切片，实际 %#v", empty)
	}
}

func TestTrend_DividesByThreeMonths(t *testing.T) {
	ledger := &Ledger{Assignments: []*domain.Assignment{
		{EngineerName: "A", Program: "Alpha", Month: "2025-08", Allocation: 30},
		{EngineerName: "B", Program: "Alpha", Month: "2025-09", Allocation: 60},
		{EngineerName: "A", Program: "Beta", Month: "2025-11", Allocation: 90},
		{EngineerName: "A", Program: "Beta", Month: "bad-month", Allocation: 15},
	}}

	got, err := Trend(ledger, DimensionProgram)
	if err != nil {
		t.Fatalf("Trend 返回错误: %v", err)
	}

	want := []TrendPoint{
		{Quarter: "Q1 FY2026", Value: "Alpha", Allocation: 30},
		{Quarter: "Q2 FY2026", Value: "Beta", Allocation: 30},
		{Quarter: fiscal.Unknown, Value: "Beta", Allocation: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Trend 期望 %+v，实际 %+v", want, got)
	}
}

func TestTrend_MissingDimension(t *testing.T) {
	ledger := &Ledger{Missing: []Dimension{DimensionProgram}}

	if _, err := Trend(ledger, DimensionProgram); !errors.Is(err, ErrDimensionUnavailable) {
		t.Errorf("期望 ErrDimensionUnavailable，实际 %v", err)
	}
	if _, err := Trend(ledger, DimensionFeature); err != nil {
		t.Errorf("其他维度不受影响，实际 %v", err)
	}
}

func TestMatrix_ChartKindSwitchesAboveThreshold(t *testing.T) {
	rows := make([]UtilizationRow, 0)
	for i := 0; i < HeatmapThreshold; i++ {
		rows = append(rows, UtilizationRow{Engineer: string(rune('A' + i)), Quarter: "Q1 FY2026", Available: 40, TotalAllocation: 60})
	}

	m := Matrix(rows, MetricAvailable, HeatmapThreshold)
	if m.ChartKind != ChartGroupedBar {
		t.Errorf("%d 名工程师应当使用柱状图，实际 %s", HeatmapThreshold, m.ChartKind)
	}
	if m.Values[0][0] != 40 {
		t.Errorf("available 指标期望 40，实际 %v", m.Values[0][0])
	}

	rows = append(rows, UtilizationRow{Engineer: "Z", Quarter: "Q1 FY2026"})
	m = Matrix(rows, MetricAllocated, HeatmapThreshold)
	if m.ChartKind != ChartHeatmap {
		t.Errorf("超过阈值应当使用热力图，实际 %s", m.ChartKind)
	}
	if m.Values[0][0] != 60 {
		t.Errorf("allocated 指标期望 60，实际 %v", m.Values[0][0])
	}
}

// ── Timeline / Pipeline 测试 ──

func TestTimeline(t *testing.T) {
	roster := []*domain.Engineer{engineer("Jane Doe", nil)}
	ledger := &Ledger{Assignments: []*domain.Assignment{
		assignment("Jane Doe", "Login", "2025-10", 20),
		assignment("Jane Doe", "Search", "2025-08", 40),
		assignment("Jane Doe", "Login", "2025-08", 0),
		assignment("Ghost", "Login", "2025-08", 50),
	}}

	bars, err := Timeline(roster, ledger)
	if err != nil {
		t.Fatalf("Timeline 返回错误: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("期望 1 根条，实际 %d", len(bars))
	}

	bar := bars[0]
	if bar.Start.Format(fiscal.MonthLayout) != "2025-08" || bar.Finish.Format("2006-01-02") != "2025-10-31" {
		t.Errorf("时间范围错误: %s ~ %s", bar.Start, bar.Finish)
	}
	if bar.Allocation != 30 || bar.Months != 2 {
		t.Errorf("期望 2 个月平均 30，实际 %d 个月平均 %v", bar.Months, bar.Allocation)
	}

	if _, err := Timeline(roster, &Ledger{Missing: []Dimension{DimensionProgram}}); !errors.Is(err, ErrDimensionUnavailable) {
		t.Errorf("缺少 Program 列时期望 ErrDimensionUnavailable，实际 %v", err)
	}
}

func TestSummarizePipeline(t *testing.T) {
	projects := []*domain.FutureProject{
		{Name: "Alpha", EstimatedEngineers: 2, Priority: domain.PriorityHigh},
		{Name: "Beta", EstimatedEngineers: 1, Priority: domain.PriorityMedium},
		{Name: "Gamma", EstimatedEngineers: 3, Priority: domain.PriorityCritical},
	}

	got := SummarizePipeline(projects)
	want := PipelineSummary{TotalProjects: 3, TotalEngineersNeeded: 6, HighPriorityProjects: 1, CriticalPriorityProjects: 1}
	if got != want {
		t.Errorf("SummarizePipeline 期望 %+v，实际 %+v", want, got)
	}
}

func TestProjectTimeline(t *testing.T) {
	date := func(month time.Month, day int) time.Time { return time.Date(2026, month, day, 0, 0, 0, 0, time.UTC) }
	projects := []*domain.FutureProject{
		{Name: "Gamma", ExpectedStartDate: date(3, 1), ExpectedEndDate: date(6, 30), Priority: domain.PriorityCritical, Status: domain.ProjectStatusApproved, EstimatedEngineers: 4},
		{Name: "Alpha", ExpectedStartDate: date(1, 1), ExpectedEndDate: date(2, 28), Priority: domain.PriorityHigh, Status: domain.ProjectStatusPlanning, EstimatedEngineers: 2},
		{Name: "Broken", ExpectedStartDate: date(5, 1), ExpectedEndDate: date(4, 1), Priority: domain.PriorityLow},
		{Name: "NoDates", Priority: domain.PriorityLow},
		nil,
		{Name: "Beta", ExpectedStartDate: date(1, 1), ExpectedEndDate: date(1, 31), Priority: domain.PriorityLow, Status: domain.ProjectStatusOnHold, EstimatedEngineers: 1},
	}

	bars := ProjectTimeline(projects)

	var names []string
	for _, b := range bars {
		names = append(names, b.Project)
	}
	if want := []string{"Alpha", "Beta", "Gamma"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("期望顺序 %v，实际 %v", want, names)
	}

	alpha := bars[0]
	if alpha.Color != "#FF6B6B" || alpha.Engineers != 2 || alpha.Status != domain.ProjectStatusPlanning || !alpha.Finish.Equal(date(2, 28)) {
		t.Errorf("Alpha 期望红色、2 人、Planning，实际 %+v", alpha)
	}
	if bars[2].Color != "#95A5A6" {
		t.Errorf("Critical 期望使用默认颜色，实际 %s", bars[2].Color)
	}

	if got := ProjectTimeline(nil); len(got) != 0 {
		t.Errorf("没有项目时期望空结果，实际 %v", got)
	}
}
