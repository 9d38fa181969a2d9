package models

import "time"

// Class represents a teaching group created by a teacher.
type Class struct {
	ID        string     `db:"id" bson:"_id" json:"id"`
	Name      string     `db:"name" bson:"name" json:"name"`
	Subject   string     `db:"subject" bson:"subject" json:"subject"`
	CreatedBy string     `db:"created_by" bson:"createdBy" json:"createdBy"`
	CreatedAt *time.Time `db:"created_at" bson:"createdAt" json:"createdAt,omitempty"`
}
