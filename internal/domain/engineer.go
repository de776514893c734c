package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// Engineer 是花名册中的一名工程师，Name 是唯一键（排期记录通过名字引用工程师）
type Engineer struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Team        string             `json:"team"`
	Role        string             `json:"role"`
	WeeklyHours float64            `json:"weeklyHours"`
	PTO         map[string]float64 `json:"pto"` // {"2025-08": 2.5}，单位为天
	CreatedAt   time.Time          `json:"createdAt"`
	Version     int32              `json:"-"`
}

// AnnualPTODays 总是由每月休假天数求和得到，不单独存储
func (e *Engineer) AnnualPTODays() float64 {
	total := 0.0
	for _, days := range e.PTO {
		total += days
	}
	return total
}

// PTOMonths 返回有休假记录的月份，按时间顺序排列
func (e *Engineer) PTOMonths() []string {
	months := make([]string, 0, len(e.PTO))
	for month := range e.PTO {
		months = append(months, month)
	}
	sort.Strings(months)
	return months
}

func (e Engineer) MarshalJSON() ([]byte, error) {
	type engineer Engineer
	pto := e.PTO
	if pto == nil {
		pto = map[string]float64{}
	}
	return json.Marshal(struct {
		engineer
		PTO           map[string]float64 `json:"pto"`
		AnnualPTODays float64            `json:"annualPTODays"`
	}{
		engineer:      engineer(e),
		PTO:           pto,
		AnnualPTODays: e.AnnualPTODays(),
	})
}
