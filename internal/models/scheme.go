package models

import "time"

// Scheme is a government scheme record used to ground bot answers.
type Scheme struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Ministry            string    `json:"ministry"`
	EligibilityCriteria string    `json:"eligibility_criteria"`
	Benefits            []string  `json:"benefits"`
	Link                string    `json:"link"`
	CreatedAt           time.Time `json:"created_at"`
}
