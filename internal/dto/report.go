package dto

import (
	"time"

	"github.com/noah-isme/stms-api/internal/reporting"
)

// OverviewReport is the teacher dashboard payload.
type OverviewReport struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Scope       string                    `json:"scope"`
	Counts      reporting.OverviewCounts  `json:"counts"`
	Classes     []reporting.ClassMetrics  `json:"classes"`
	Activity    []reporting.ActivityEvent `json:"activity"`
}

// StudentReport describes one student's progress.
type StudentReport struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Metrics     reporting.StudentMetrics `json:"metrics"`
	Tasks       []reporting.TaskProgress `json:"tasks"`
}

// ClassReport bundles class, task and student metrics for one class.
type ClassReport struct {
	GeneratedAt time.Time                  `json:"generatedAt"`
	Metrics     reporting.ClassMetrics     `json:"metrics"`
	Tasks       []reporting.TaskMetrics    `json:"tasks"`
	Students    []reporting.StudentMetrics `json:"students"`
}

// GradebookReport wraps the gradebook matrix.
type GradebookReport struct {
	GeneratedAt time.Time           `json:"generatedAt"`
	ClassID     string              `json:"classId,omitempty"`
	Gradebook   reporting.Gradebook `json:"gradebook"`
}

// ActivityReport is the activity feed payload.
type ActivityReport struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Events      []reporting.ActivityEvent `json:"events"`
}

// StudentOverview is the student's own dashboard.
type StudentOverview struct {
	GeneratedAt    time.Time                `json:"generatedAt"`
	StudentID      string                   `json:"studentId"`
	Name           string                   `json:"name"`
	ClassName      string                   `json:"className,omitempty"`
	TotalTasks     int                      `json:"totalTasks"`
	CompletedTasks int                      `json:"completedTasks"`
	PendingTasks   int                      `json:"pendingTasks"`
	OverdueTasks   int                      `json:"overdueTasks"`
	AverageGrade   float64                  `json:"averageGrade"`
	CompletionRate float64                  `json:"completionRate"`
	GradedTasks    []reporting.TaskProgress `json:"gradedTasks"`
}

// ExportLinkResponse describes a stored export reachable through a signed URL.
type ExportLinkResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ReadinessResponse reports dependency health.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ExportRequest is the body of POST /exports/gradebook.
type ExportRequest struct {
	Format  string `json:"format"`
	ClassID string `json:"classId"`
	Scope   string `json:"scope"`
}
