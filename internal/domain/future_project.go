package domain

import "time"

type ProjectStatus string

const (
	ProjectStatusPlanning ProjectStatus = "Planning"
	ProjectStatusOnHold   ProjectStatus = "On Hold"
	ProjectStatusApproved ProjectStatus = "Approved"
	ProjectStatusCanceled ProjectStatus = "Canceled"
)

// FutureProject 是尚未进入排期的项目储备
type FutureProject struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	ExpectedStartDate  time.Time     `json:"expectedStartDate"`
	ExpectedEndDate    time.Time     `json:"expectedEndDate"`
	RequiredSkills     string        `json:"requiredSkills"`
	EstimatedEngineers int32         `json:"estimatedEngineers"`
	Priority           Priority      `json:"priority"`
	Status             ProjectStatus `json:"status"`
	Notes              string        `json:"notes"`
	CreatedAt          time.Time     `json:"createdAt"`
	Version            int32         `json:"-"`
}
