package reporting

import (
	"github.com/samber/lo"

	"github.com/noah-isme/stms-api/internal/models"
)

// Snapshot is one independently fetched copy of the four portal collections.
// Any of them may lag behind the others.
type Snapshot struct {
	Users       []models.User       `json:"users"`
	Classes     []models.Class      `json:"classes"`
	Tasks       []models.Task       `json:"tasks"`
	Submissions []models.Submission `json:"submissions"`
}

// CanonicalUserID resolves an internal id or auth uid to the internal user id.
// Unknown references are returned unchanged.
func (s Snapshot) CanonicalUserID(ref string) string {
	return newIdentities(s.Users).canonical(ref)
}

// ScopeToTeacher narrows the snapshot to the classes and tasks created by the
// teacher, the students enrolled in those classes and the submissions made
// against those tasks.
func (s Snapshot) ScopeToTeacher(teacherID string) Snapshot {
	classes := lo.Filter(s.Classes, func(class models.Class, _ int) bool {
		return class.CreatedBy == teacherID
	})
	classIDs := lo.SliceToMap(classes, func(class models.Class) (string, struct{}) {
		return class.ID, struct{}{}
	})
	tasks := lo.Filter(s.Tasks, func(task models.Task, _ int) bool {
		return task.CreatedBy == teacherID
	})
	taskIDs := lo.SliceToMap(tasks, func(task models.Task) (string, struct{}) {
		return task.ID, struct{}{}
	})
	users := lo.Filter(s.Users, func(user models.User, _ int) bool {
		if user.Role != models.RoleStudent {
			return false
		}
		_, ok := classIDs[user.ClassID]
		return ok
	})
	submissions := lo.Filter(s.Submissions, func(sub models.Submission, _ int) bool {
		_, ok := taskIDs[sub.TaskID]
		return ok
	})
	return Snapshot{Users: users, Classes: classes, Tasks: tasks, Submissions: submissions}
}
