package repositories

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

// DoctorRepository defines the interface for doctor directory reads
type DoctorRepository interface {
	// GetByID retrieves a doctor by ID
	GetByID(ctx context.Context, id string) (*entities.Doctor, error)

	// ListAvailable retrieves every doctor currently accepting appointments
	ListAvailable(ctx context.Context) ([]*entities.Doctor, error)
}
