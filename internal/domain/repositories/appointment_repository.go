package repositories

import (
	"context"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment ledger reads
type AppointmentRepository interface {
	// ListByDoctor retrieves every appointment booked with a doctor, optionally
	// leaving out cancelled ones
	ListByDoctor(ctx context.Context, doctorID string, excludeCancelled bool) ([]*entities.Appointment, error)
}
