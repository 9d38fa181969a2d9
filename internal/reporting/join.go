package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/noah-isme/stms-api/internal/models"
)

// Index holds denormalized lookups over a snapshot. It is read-only once built.
type Index struct {
	users           map[string]models.User
	uidToID         map[string]string
	students        []models.User
	studentsByID    map[string]models.User
	studentsByClass map[string][]models.User
	classes         []models.Class
	classesByID     map[string]models.Class
	tasks           []models.Task
	tasksByID       map[string]models.Task
	tasksByClass    map[string][]models.Task
	byTask          map[string]map[string]models.Submission
	byStudent       map[string][]models.Submission
	submissions     []models.Submission
	dropped         int
	duplicates      int
}

// NewIndex joins the snapshot collections. Submissions referencing an unknown
// task or student are left out and counted as dropped. When a student has more
// than one submission for a task the most recent one is kept.
func NewIndex(s Snapshot) *Index {
	idx := &Index{
		users:           lo.KeyBy(s.Users, func(u models.User) string { return u.ID }),
		uidToID:         make(map[string]string),
		studentsByClass: make(map[string][]models.User),
		tasksByClass:    make(map[string][]models.Task),
		byTask:          make(map[string]map[string]models.Submission),
		byStudent:       make(map[string][]models.Submission),
	}
	for _, user := range s.Users {
		if user.UID != "" && user.UID != user.ID {
			if _, clash := idx.users[user.UID]; !clash {
				idx.uidToID[user.UID] = user.ID
			}
		}
	}

	idx.students = lo.Filter(s.Users, func(u models.User, _ int) bool { return u.IsStudent() })
	sortStudents(idx.students)
	idx.studentsByID = lo.KeyBy(idx.students, func(u models.User) string { return u.ID })
	for _, student := range idx.students {
		if student.ClassID != "" {
			idx.studentsByClass[student.ClassID] = append(idx.studentsByClass[student.ClassID], student)
		}
	}

	idx.classes = append([]models.Class(nil), s.Classes...)
	sort.SliceStable(idx.classes, func(i, j int) bool {
		a, b := strings.ToLower(idx.classes[i].Name), strings.ToLower(idx.classes[j].Name)
		if a != b {
			return a < b
		}
		return idx.classes[i].ID < idx.classes[j].ID
	})
	idx.classesByID = lo.KeyBy(idx.classes, func(c models.Class) string { return c.ID })

	idx.tasks = append([]models.Task(nil), s.Tasks...)
	sortTasks(idx.tasks)
	idx.tasksByID = lo.KeyBy(idx.tasks, func(t models.Task) string { return t.ID })
	for _, task := range idx.tasks {
		for _, classID := range task.AssignedClasses {
			idx.tasksByClass[classID] = append(idx.tasksByClass[classID], task)
		}
	}

	for _, sub := range s.Submissions {
		if _, ok := idx.tasksByID[sub.TaskID]; !ok {
			idx.dropped++
			continue
		}
		if _, ok := idx.studentsByID[sub.StudentID]; !ok {
			if _, known := idx.users[sub.StudentID]; !known {
				idx.dropped++
			}
			continue
		}
		perTask, ok := idx.byTask[sub.TaskID]
		if !ok {
			perTask = make(map[string]models.Submission)
			idx.byTask[sub.TaskID] = perTask
		}
		if current, exists := perTask[sub.StudentID]; exists {
			idx.duplicates++
			if !supersedes(sub, current) {
				continue
			}
		}
		perTask[sub.StudentID] = sub
	}

	for _, perTask := range idx.byTask {
		for studentID, sub := range perTask {
			idx.byStudent[studentID] = append(idx.byStudent[studentID], sub)
			idx.submissions = append(idx.submissions, sub)
		}
	}
	for studentID := range idx.byStudent {
		sortSubmissions(idx.byStudent[studentID])
	}
	sortSubmissions(idx.submissions)
	return idx
}

// Students returns active students ordered by name.
func (idx *Index) Students() []models.User {
	return idx.students
}

// Student looks up an active student by internal id or external uid.
func (idx *Index) Student(id string) (models.User, bool) {
	if student, ok := idx.studentsByID[id]; ok {
		return student, true
	}
	if canonical, ok := idx.uidToID[id]; ok {
		student, found := idx.studentsByID[canonical]
		return student, found
	}
	return models.User{}, false
}

// StudentsInClass returns the active students enrolled in the class.
func (idx *Index) StudentsInClass(classID string) []models.User {
	return idx.studentsByClass[classID]
}

// Classes returns classes ordered by name.
func (idx *Index) Classes() []models.Class {
	return idx.classes
}

// Class looks up a class by id.
func (idx *Index) Class(id string) (models.Class, bool) {
	class, ok := idx.classesByID[id]
	return class, ok
}

// ClassName resolves a class name, empty when the class is unknown.
func (idx *Index) ClassName(id string) string {
	return idx.classesByID[id].Name
}

// Tasks returns every task ordered by deadline.
func (idx *Index) Tasks() []models.Task {
	return idx.tasks
}

// Task looks up a task by id.
func (idx *Index) Task(id string) (models.Task, bool) {
	task, ok := idx.tasksByID[id]
	return task, ok
}

// TasksForClass returns the tasks whose assigned classes contain classID,
// ordered by deadline (unknown deadlines last).
func (idx *Index) TasksForClass(classID string) []models.Task {
	return idx.tasksByClass[classID]
}

// Submission reports whether the student submitted the task.
func (idx *Index) Submission(taskID, studentID string) (models.Submission, bool) {
	sub, ok := idx.byTask[taskID][studentID]
	return sub, ok
}

// SubmissionsForTask returns the task's submissions keyed by student id.
func (idx *Index) SubmissionsForTask(taskID string) map[string]models.Submission {
	return idx.byTask[taskID]
}

// SubmissionsByStudent returns the student's submissions, most recent first.
func (idx *Index) SubmissionsByStudent(studentID string) []models.Submission {
	return idx.byStudent[studentID]
}

// Submissions returns every joined submission, most recent first.
func (idx *Index) Submissions() []models.Submission {
	return idx.submissions
}

// Dropped counts submissions excluded because of a missing task or student.
func (idx *Index) Dropped() int {
	return idx.dropped
}

// Duplicates counts submissions superseded by a more recent one for the same
// student and task.
func (idx *Index) Duplicates() int {
	return idx.duplicates
}

// supersedes reports whether candidate should replace current: the later
// submission wins, a known time beats an unknown one, ties go to the larger id.
func supersedes(candidate, current models.Submission) bool {
	switch {
	case candidate.SubmittedAt != nil && current.SubmittedAt == nil:
		return true
	case candidate.SubmittedAt == nil && current.SubmittedAt != nil:
		return false
	case candidate.SubmittedAt != nil && !candidate.SubmittedAt.Equal(*current.SubmittedAt):
		return candidate.SubmittedAt.After(*current.SubmittedAt)
	default:
		return candidate.ID > current.ID
	}
}

func sortStudents(students []models.User) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := strings.ToLower(students[i].DisplayName()), strings.ToLower(students[j].DisplayName())
		if a != b {
			return a < b
		}
		return students[i].ID < students[j].ID
	})
}

func sortTasks(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if c := compareTimes(tasks[i].Deadline, tasks[j].Deadline); c != 0 {
			return c < 0
		}
		if tasks[i].Title != tasks[j].Title {
			return tasks[i].Title < tasks[j].Title
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func sortSubmissions(subs []models.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		ti, tj := subs[i].SubmittedAt, subs[j].SubmittedAt
		switch {
		case ti == nil && tj == nil:
			return subs[i].ID < subs[j].ID
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		default:
			return subs[i].ID < subs[j].ID
		}
	})
}

// compareTimes orders known instants ascending and unknown instants last.
func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case a.Before(*b):
		return -1
	case a.After(*b):
		return 1
	default:
		return 0
	}
}
