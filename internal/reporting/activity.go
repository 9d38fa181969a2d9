package reporting

import (
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/noah-isme/stms-api/internal/models"
)

// ActivityKind enumerates the feed event types.
type ActivityKind string

const (
	ActivitySubmission       ActivityKind = "submission"
	ActivityNewStudent       ActivityKind = "new_student"
	ActivityDeadlineReminder ActivityKind = "deadline_reminder"
	ActivityNewTask          ActivityKind = "new_task"
)

const unknownStudentName = "Unknown Student"

var kindRank = map[ActivityKind]int{
	ActivitySubmission:       0,
	ActivityNewStudent:       1,
	ActivityDeadlineReminder: 2,
	ActivityNewTask:          3,
}

// ErrInvalidOptions is returned when feed options carry negative values.
var ErrInvalidOptions = errors.New("reporting: invalid feed options")

// ActivityEvent is one entry of the teacher activity feed.
type ActivityEvent struct {
	Kind              ActivityKind `json:"kind"`
	ID                string       `json:"id"`
	Timestamp         time.Time    `json:"timestamp"`
	StudentID         string       `json:"studentId,omitempty"`
	StudentName       string       `json:"studentName,omitempty"`
	ClassID           string       `json:"classId,omitempty"`
	ClassName         string       `json:"className,omitempty"`
	TaskID            string       `json:"taskId,omitempty"`
	TaskTitle         string       `json:"taskTitle,omitempty"`
	HasGrade          bool         `json:"hasGrade"`
	Grade             *int         `json:"grade,omitempty"`
	DaysUntilDeadline int          `json:"daysUntilDeadline,omitempty"`
}

// FeedOptions bound the feed. Zero values fall back to DefaultFeedOptions.
type FeedOptions struct {
	Limit          int
	RecentWindow   time.Duration
	ReminderWindow time.Duration
}

// DefaultFeedOptions mirrors the dashboard defaults.
func DefaultFeedOptions() FeedOptions {
	return FeedOptions{
		Limit:          10,
		RecentWindow:   7 * 24 * time.Hour,
		ReminderWindow: 3 * 24 * time.Hour,
	}
}

func (o FeedOptions) withDefaults() (FeedOptions, error) {
	if o.Limit < 0 || o.RecentWindow < 0 || o.ReminderWindow < 0 {
		return o, ErrInvalidOptions
	}
	defaults := DefaultFeedOptions()
	if o.Limit == 0 {
		o.Limit = defaults.Limit
	}
	if o.RecentWindow == 0 {
		o.RecentWindow = defaults.RecentWindow
	}
	if o.ReminderWindow == 0 {
		o.ReminderWindow = defaults.ReminderWindow
	}
	return o, nil
}

// BuildActivityFeed merges submissions, recently enrolled students, upcoming
// deadlines and recently created tasks into one list, newest first.
func BuildActivityFeed(idx *Index, now time.Time, opts FeedOptions) ([]ActivityEvent, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	recentFrom := now.Add(-opts.RecentWindow)
	reminderUntil := now.Add(opts.ReminderWindow)

	events := make([]ActivityEvent, 0)

	for _, sub := range idx.Submissions() {
		if sub.SubmittedAt == nil {
			continue
		}
		task, _ := idx.Task(sub.TaskID)
		student, _ := idx.Student(sub.StudentID)
		events = append(events, ActivityEvent{
			Kind:        ActivitySubmission,
			ID:          "submission:" + sub.ID,
			Timestamp:   *sub.SubmittedAt,
			StudentID:   sub.StudentID,
			StudentName: studentName(student, sub.StudentName),
			ClassID:     student.ClassID,
			ClassName:   idx.ClassName(student.ClassID),
			TaskID:      task.ID,
			TaskTitle:   task.Title,
			HasGrade:    sub.Grade != nil,
			Grade:       sub.Grade,
		})
	}

	for _, student := range idx.Students() {
		if !within(student.CreatedAt, recentFrom, now) {
			continue
		}
		events = append(events, ActivityEvent{
			Kind:        ActivityNewStudent,
			ID:          "student:" + student.ID,
			Timestamp:   *student.CreatedAt,
			StudentID:   student.ID,
			StudentName: studentName(student, ""),
			ClassID:     student.ClassID,
			ClassName:   idx.ClassName(student.ClassID),
		})
	}

	for _, task := range idx.Tasks() {
		if task.Deadline != nil && task.Deadline.After(now) && !task.Deadline.After(reminderUntil) {
			events = append(events, ActivityEvent{
				Kind:              ActivityDeadlineReminder,
				ID:                "deadline:" + task.ID,
				Timestamp:         *task.Deadline,
				TaskID:            task.ID,
				TaskTitle:         task.Title,
				DaysUntilDeadline: int(math.Ceil(task.Deadline.Sub(now).Hours() / 24)),
			})
		}
		if within(task.CreatedAt, recentFrom, now) {
			events = append(events, ActivityEvent{
				Kind:      ActivityNewTask,
				ID:        "task:" + task.ID,
				Timestamp: *task.CreatedAt,
				TaskID:    task.ID,
				TaskTitle: task.Title,
			})
		}
	}

	SortActivity(events)
	if len(events) > opts.Limit {
		events = events[:opts.Limit]
	}
	return events, nil
}

// SortActivity orders events newest first with a total, deterministic order.
func SortActivity(events []ActivityEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		if kindRank[a.Kind] != kindRank[b.Kind] {
			return kindRank[a.Kind] < kindRank[b.Kind]
		}
		return a.ID < b.ID
	})
}

func within(ts *time.Time, from, to time.Time) bool {
	return ts != nil && !ts.Before(from) && !ts.After(to)
}

func studentName(student models.User, fallback string) string {
	if name := strings.TrimSpace(student.Name); name != "" {
		return name
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	if name := student.DisplayName(); name != "" {
		return name
	}
	return unknownStudentName
}
