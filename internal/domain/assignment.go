package domain

import "time"

type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

var Priorities = []Priority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// ParsePriority 对未知或空的优先级返回 Medium
func ParsePriority(s string) Priority {
	for _, p := range Priorities {
		if string(p) == s {
			return p
		}
	}
	return PriorityMedium
}

// Assignment 表示某名工程师在某个月投入到某个功能上的百分比
// 同一工程师同一个月可以有多条记录，它们的百分比相加
type Assignment struct {
	ID           int64     `json:"id"`
	EngineerName string    `json:"engineerName"`
	Program      string    `json:"program"`
	Feature      string    `json:"feature"`
	Priority     Priority  `json:"priority"`
	Month        string    `json:"month"` // YYYY-MM
	Allocation   float64   `json:"allocation"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
