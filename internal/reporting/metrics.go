package reporting

import (
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/stms-api/internal/models"
)

// TaskStatus classifies a task from one student's point of view.
type TaskStatus string

const (
	TaskStatusGraded    TaskStatus = "graded"
	TaskStatusSubmitted TaskStatus = "submitted"
	TaskStatusOverdue   TaskStatus = "overdue"
	TaskStatusPending   TaskStatus = "pending"
)

// ClassifyTask resolves the status of a task for a student. A graded
// submission is always graded, even when it arrived after the deadline. A task
// without a known deadline is never overdue.
func ClassifyTask(task models.Task, submission *models.Submission, now time.Time) TaskStatus {
	switch {
	case submission != nil && submission.Grade != nil:
		return TaskStatusGraded
	case submission != nil:
		return TaskStatusSubmitted
	case task.Deadline != nil && now.After(*task.Deadline):
		return TaskStatusOverdue
	default:
		return TaskStatusPending
	}
}

// TaskProgress is one row of a student's task list.
type TaskProgress struct {
	TaskID         string     `json:"taskId"`
	Title          string     `json:"title"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Status         TaskStatus `json:"status"`
	SubmissionID   string     `json:"submissionId,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`
	Grade          *int       `json:"grade,omitempty"`
	TeacherComment *string    `json:"teacherComment,omitempty"`
}

// StudentMetrics aggregates a student's progress over the tasks of their class.
type StudentMetrics struct {
	StudentID       string  `json:"studentId"`
	Name            string  `json:"name"`
	ClassID         string  `json:"classId,omitempty"`
	ClassName       string  `json:"className,omitempty"`
	ApplicableTasks int     `json:"applicableTasks"`
	SubmittedCount  int     `json:"submittedCount"`
	GradedCount     int     `json:"gradedCount"`
	PendingCount    int     `json:"pendingCount"`
	OverdueCount    int     `json:"overdueCount"`
	AverageGrade    float64 `json:"averageGrade"`
	CompletionRate  float64 `json:"completionRate"`
}

// ClassMetrics aggregates a class's students over the tasks assigned to it.
type ClassMetrics struct {
	ClassID          string  `json:"classId"`
	Name             string  `json:"name"`
	Subject          string  `json:"subject,omitempty"`
	StudentCount     int     `json:"studentCount"`
	TaskCount        int     `json:"taskCount"`
	TotalSubmissions int     `json:"totalSubmissions"`
	GradedCount      int     `json:"gradedCount"`
	AverageGrade     float64 `json:"averageGrade"`
	CompletionRate   float64 `json:"completionRate"`
}

// TaskMetrics aggregates the students a task is assigned to.
type TaskMetrics struct {
	TaskID           string     `json:"taskId"`
	Title            string     `json:"title"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	AssignedStudents int        `json:"assignedStudents"`
	SubmittedCount   int        `json:"submittedCount"`
	GradedCount      int        `json:"gradedCount"`
	PendingCount     int        `json:"pendingCount"`
	OverdueCount     int        `json:"overdueCount"`
	AverageGrade     float64    `json:"averageGrade"`
	CompletionRate   float64    `json:"completionRate"`
}

// OverviewCounts are the headline counters of the teacher dashboard.
type OverviewCounts struct {
	TotalStudents int `json:"totalStudents"`
	TotalClasses  int `json:"totalClasses"`
	TotalTasks    int `json:"totalTasks"`
	ActiveTasks   int `json:"activeTasks"`
	NeedsGrading  int `json:"needsGrading"`
}

// StudentProgress lists every task applicable to the student with its status.
func StudentProgress(idx *Index, student models.User, now time.Time) []TaskProgress {
	tasks := idx.TasksForClass(student.ClassID)
	progress := make([]TaskProgress, 0, len(tasks))
	for _, task := range tasks {
		row := TaskProgress{TaskID: task.ID, Title: task.Title, Deadline: task.Deadline}
		var submission *models.Submission
		if sub, ok := idx.Submission(task.ID, student.ID); ok {
			submission = &sub
			row.SubmissionID = sub.ID
			row.SubmittedAt = sub.SubmittedAt
			row.Grade = sub.Grade
			row.TeacherComment = sub.TeacherComment
		}
		row.Status = ClassifyTask(task, submission, now)
		progress = append(progress, row)
	}
	return progress
}

// ComputeStudent derives a student's metrics.
func ComputeStudent(idx *Index, student models.User, now time.Time) StudentMetrics {
	progress := StudentProgress(idx, student, now)
	metrics := StudentMetrics{
		StudentID:       student.ID,
		Name:            student.DisplayName(),
		ClassID:         student.ClassID,
		ClassName:       idx.ClassName(student.ClassID),
		ApplicableTasks: len(progress),
	}
	grades := make([]int, 0, len(progress))
	for _, row := range progress {
		switch row.Status {
		case TaskStatusGraded:
			metrics.SubmittedCount++
			metrics.GradedCount++
			grades = append(grades, *row.Grade)
		case TaskStatusSubmitted:
			metrics.SubmittedCount++
		case TaskStatusOverdue:
			metrics.OverdueCount++
		case TaskStatusPending:
			metrics.PendingCount++
		}
	}
	metrics.AverageGrade = Round1(mean(grades))
	metrics.CompletionRate = Percent(metrics.SubmittedCount, metrics.ApplicableTasks)
	return metrics
}

// ComputeClass derives a class's metrics. The class average is the mean of the
// averages of students that have at least one grade.
func ComputeClass(idx *Index, class models.Class, now time.Time) ClassMetrics {
	students := idx.StudentsInClass(class.ID)
	tasks := idx.TasksForClass(class.ID)
	metrics := ClassMetrics{
		ClassID:      class.ID,
		Name:         class.Name,
		Subject:      class.Subject,
		StudentCount: len(students),
		TaskCount:    len(tasks),
	}
	studentAverages := make([]float64, 0, len(students))
	for _, student := range students {
		grades := make([]int, 0, len(tasks))
		for _, task := range tasks {
			sub, ok := idx.Submission(task.ID, student.ID)
			if !ok {
				continue
			}
			metrics.TotalSubmissions++
			if sub.Grade != nil {
				metrics.GradedCount++
				grades = append(grades, *sub.Grade)
			}
		}
		if len(grades) > 0 {
			studentAverages = append(studentAverages, mean(grades))
		}
	}
	if len(studentAverages) > 0 {
		metrics.AverageGrade = Round1(lo.Sum(studentAverages) / float64(len(studentAverages)))
	}
	metrics.CompletionRate = Percent(metrics.TotalSubmissions, metrics.StudentCount*metrics.TaskCount)
	return metrics
}

// ComputeTask derives a task's metrics over the students of its assigned classes.
func ComputeTask(idx *Index, task models.Task, now time.Time) TaskMetrics {
	metrics := TaskMetrics{TaskID: task.ID, Title: task.Title, Deadline: task.Deadline}
	grades := make([]int, 0)
	for _, classID := range task.AssignedClasses {
		for _, student := range idx.StudentsInClass(classID) {
			metrics.AssignedStudents++
			var submission *models.Submission
			if sub, ok := idx.Submission(task.ID, student.ID); ok {
				submission = &sub
			}
			switch ClassifyTask(task, submission, now) {
			case TaskStatusGraded:
				metrics.SubmittedCount++
				metrics.GradedCount++
				grades = append(grades, *submission.Grade)
			case TaskStatusSubmitted:
				metrics.SubmittedCount++
			case TaskStatusOverdue:
				metrics.OverdueCount++
			case TaskStatusPending:
				metrics.PendingCount++
			}
		}
	}
	metrics.AverageGrade = Round1(mean(grades))
	metrics.CompletionRate = Percent(metrics.SubmittedCount, metrics.AssignedStudents)
	return metrics
}

// ComputeOverview counts the dashboard headline figures.
func ComputeOverview(idx *Index, now time.Time) OverviewCounts {
	return OverviewCounts{
		TotalStudents: len(idx.Students()),
		TotalClasses:  len(idx.Classes()),
		TotalTasks:    len(idx.Tasks()),
		ActiveTasks: lo.CountBy(idx.Tasks(), func(task models.Task) bool {
			return task.Deadline != nil && task.Deadline.After(now)
		}),
		NeedsGrading: lo.CountBy(idx.Submissions(), func(sub models.Submission) bool {
			return sub.Grade == nil
		}),
	}
}

// Percent returns num/den as a percentage rounded to one decimal, 0 when den is 0.
func Percent(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return Round1(float64(num) / float64(den) * 100)
}

// Round1 rounds half away from zero to one decimal place.
func Round1(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return math.Round(value*10) / 10
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	return float64(lo.Sum(values)) / float64(len(values))
}
