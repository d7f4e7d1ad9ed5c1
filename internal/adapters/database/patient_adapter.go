package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

// PatientAdapter implements PatientRepository. Preferences and medical
// history are stored as jsonb documents.
type PatientAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPatientAdapter creates a new patient adapter
func NewPatientAdapter(client *postgres.Client) repositories.PatientRepository {
	return &PatientAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a patient by ID
func (a *PatientAdapter) GetByID(ctx context.Context, id string) (*entities.Patient, error) {
	query, args, err := a.db.Select("id", "name", "email", "preferences", "medical_history").
		From("patients").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	patient := &entities.Patient{}
	var (
		name, email          sql.NullString
		preferences, history []byte
	)
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&patient.ID,
		&name,
		&email,
		&preferences,
		&history,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("patient %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get patient", err)
	}

	patient.Name = name.String
	patient.Email = email.String

	if len(preferences) > 0 {
		patient.Preferences = &entities.PatientPreferences{}
		if err := json.Unmarshal(preferences, patient.Preferences); err != nil {
			return nil, apperrors.NewInternalError("failed to decode patient preferences", err)
		}
	}
	if len(history) > 0 {
		patient.MedicalHistory = &entities.MedicalHistory{}
		if err := json.Unmarshal(history, patient.MedicalHistory); err != nil {
			return nil, apperrors.NewInternalError("failed to decode patient medical history", err)
		}
	}

	return patient, nil
}
