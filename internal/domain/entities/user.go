package entities

import (
	"time"
)

// User represents a staff member managed from the admin dashboard
type User struct {
	ID          string    `json:"id" db:"id"`
	Company     string    `json:"company" db:"company"`
	Identifier  string    `json:"identifier" db:"identifier"`
	LastName    string    `json:"last_name" db:"last_name"`
	FirstName   string    `json:"first_name" db:"first_name"`
	BirthDate   time.Time `json:"birth_date" db:"birth_date"`
	ArrivalDate time.Time `json:"arrival_date" db:"arrival_date"`
	JobTitle    string    `json:"job_title" db:"job_title"`
	JobLevel    string    `json:"job_level" db:"job_level"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
