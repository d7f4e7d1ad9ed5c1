package repositories

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

// PatientRepository defines the interface for patient record reads
type PatientRepository interface {
	// GetByID retrieves a patient with preferences and medical history
	GetByID(ctx context.Context, id string) (*entities.Patient, error)
}
