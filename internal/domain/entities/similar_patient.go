package entities

import "time"

// SimilarPatient is a past patient of a doctor clustered by symptom breadth
// and visit frequency
type SimilarPatient struct {
	PatientID        string          `json:"patient_id"`
	Patient          PatientSnapshot `json:"patient"`
	AppointmentCount int             `json:"appointment_count"`
	Symptoms         []string        `json:"symptoms"`
	LastVisit        time.Time       `json:"last_visit"`
	SimilarityScore  float64         `json:"similarity_score"`
}
