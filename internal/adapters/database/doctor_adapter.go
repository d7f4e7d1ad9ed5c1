package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/domain/repositories"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

var doctorColumns = []interface{}{
	"id", "name", "speciality", "degree", "experience", "about",
	"fees", "available", "gender", "address_line1", "address_line2",
}

// DoctorAdapter implements DoctorRepository
type DoctorAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewDoctorAdapter creates a new doctor adapter
func NewDoctorAdapter(client *postgres.Client) repositories.DoctorRepository {
	return &DoctorAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a doctor by ID
func (a *DoctorAdapter) GetByID(ctx context.Context, id string) (*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	doctor, err := scanDoctor(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get doctor", err)
	}
	return doctor, nil
}

// ListAvailable retrieves every doctor currently accepting appointments
func (a *DoctorAdapter) ListAvailable(ctx context.Context) ([]*entities.Doctor, error) {
	query, args, err := a.db.Select(doctorColumns...).
		From("doctors").
		Where(goqu.Ex{"available": true}).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list available doctors", err)
	}
	defer rows.Close()

	doctors := make([]*entities.Doctor, 0)
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan doctor", err)
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate doctors", err)
	}

	return doctors, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDoctor(row rowScanner) (*entities.Doctor, error) {
	doctor := &entities.Doctor{}
	var (
		speciality, degree, experience, about sql.NullString
		gender, line1, line2                  sql.NullString
		fees                                  sql.NullFloat64
	)

	err := row.Scan(
		&doctor.ID,
		&doctor.Name,
		&speciality,
		&degree,
		&experience,
		&about,
		&fees,
		&doctor.Available,
		&gender,
		&line1,
		&line2,
	)
	if err != nil {
		return nil, err
	}

	doctor.Speciality = speciality.String
	doctor.Degree = degree.String
	doctor.Experience = experience.String
	doctor.About = about.String
	doctor.Fees = fees.Float64
	doctor.Gender = gender.String
	doctor.Address = entities.DoctorAddress{Line1: line1.String, Line2: line2.String}
	return doctor, nil
}
