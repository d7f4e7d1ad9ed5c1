package database

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

// AppointmentAdapter implements AppointmentRepository
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListByDoctor retrieves appointments booked with a doctor, oldest first
func (a *AppointmentAdapter) ListByDoctor(ctx context.Context, doctorID string, excludeCancelled bool) ([]*entities.Appointment, error) {
	where := goqu.Ex{"doctor_id": doctorID}
	if excludeCancelled {
		where["cancelled"] = false
	}

	query, args, err := a.db.Select(
		"id", "doctor_id", "patient_id", "patient_name", "patient_email", "patient_phone",
		"symptoms", "slot_date", "cancelled",
	).From("appointments").
		Where(where).
		Order(goqu.I("slot_date").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*entities.Appointment, 0)
	for rows.Next() {
		appt := &entities.Appointment{}
		var (
			name, email, phone sql.NullString
			symptoms           []byte
		)

		err := rows.Scan(
			&appt.ID,
			&appt.DoctorID,
			&appt.PatientID,
			&name,
			&email,
			&phone,
			&symptoms,
			&appt.SlotDate,
			&appt.Cancelled,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}

		appt.PatientSnapshot = entities.PatientSnapshot{
			Name:  name.String,
			Email: email.String,
			Phone: phone.String,
		}
		if len(symptoms) > 0 {
			appt.Symptoms = &entities.Symptoms{}
			if err := json.Unmarshal(symptoms, appt.Symptoms); err != nil {
				return nil, apperrors.NewInternalError("failed to decode appointment symptoms", err)
			}
		}

		appointments = append(appointments, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}
