package models

import "time"

// Task is an assignment published to one or more classes.
type Task struct {
	ID              string     `db:"id" bson:"_id" json:"id"`
	Title           string     `db:"title" bson:"title" json:"title"`
	Description     string     `db:"description" bson:"description" json:"description,omitempty"`
	Deadline        *time.Time `db:"deadline" bson:"deadline" json:"deadline,omitempty"`
	AssignedClasses []string   `db:"assigned_classes" bson:"assignedClasses" json:"assignedClasses"`
	CreatedBy       string     `db:"created_by" bson:"createdBy" json:"createdBy"`
	CreatedAt       *time.Time `db:"created_at" bson:"createdAt" json:"createdAt,omitempty"`
}

// AssignedTo reports whether the task is published to the class.
func (t Task) AssignedTo(classID string) bool {
	if classID == "" {
		return false
	}
	for _, id := range t.AssignedClasses {
		if id == classID {
			return true
		}
	}
	return false
}
