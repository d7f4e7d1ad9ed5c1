//go:build integration

package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/doctordirectory/backend/migrations"
	"github.com/zatekoja/doctordirectory/backend/pkg/config"
	apperrors "github.com/zatekoja/doctordirectory/backend/pkg/errors"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newTestPostgresClient(t *testing.T) *postgres.Client {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("Skipping integration test: TEST_DB_HOST not set")
	}
	port, err := strconv.Atoi(getEnv("TEST_DB_PORT", "5432"))
	require.NoError(t, err)

	client, err := postgres.NewClient(&config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "doctor_directory_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	})
	require.NoError(t, err, "Failed to create postgres client")
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, migrations.Apply(context.Background(), client.DB()))
	_, err = client.DB().Exec("TRUNCATE appointments, patients, doctors CASCADE")
	require.NoError(t, err)
	return client
}

func TestAdaptersIntegration(t *testing.T) {
	ctx := context.Background()
	client := newTestPostgresClient(t)
	db := client.DB()

	_, err := db.Exec(`INSERT INTO doctors (id, name, speciality, experience, fees, available, gender, address_line1)
		VALUES ('doc-1', 'Dr. Ada Okafor', 'Cardiologist', '12 Years', 150, TRUE, 'female', 'Lagos'),
		       ('doc-2', 'Dr. Tunde Bello', 'Dermatologist', '4 Years', 60, FALSE, 'male', NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO patients (id, name, email, preferences)
		VALUES ('pat-1', 'Musa', 'musa@example.com', '{"urgency":"high","max_fee":200}')`)
	require.NoError(t, err)
	slot := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	_, err = db.Exec(`INSERT INTO appointments (id, doctor_id, patient_id, patient_name, patient_email, symptoms, slot_date, cancelled)
		VALUES ('appt-1', 'doc-1', 'pat-1', 'Musa', 'musa@example.com', '{"primary":"chest pain","secondary":["fatigue"]}', $1, FALSE),
		       ('appt-2', 'doc-1', 'pat-1', 'Musa', 'musa@example.com', NULL, $2, TRUE)`, slot, slot.AddDate(0, 0, 14))
	require.NoError(t, err)

	t.Run("doctors", func(t *testing.T) {
		repo := NewDoctorAdapter(client)

		available, err := repo.ListAvailable(ctx)
		require.NoError(t, err)
		require.Len(t, available, 1)
		assert.Equal(t, "doc-1", available[0].ID)
		assert.Equal(t, 150.0, available[0].Fees)
		assert.Equal(t, "Lagos", available[0].Address.Line1)

		doctor, err := repo.GetByID(ctx, "doc-2")
		require.NoError(t, err)
		assert.False(t, doctor.Available)
		assert.Empty(t, doctor.Address.Line1)

		_, err = repo.GetByID(ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("patients", func(t *testing.T) {
		repo := NewPatientAdapter(client)

		patient, err := repo.GetByID(ctx, "pat-1")
		require.NoError(t, err)
		require.NotNil(t, patient.Preferences)
		assert.Equal(t, "high", patient.Preferences.Urgency)
		require.NotNil(t, patient.Preferences.MaxFee)
		assert.Equal(t, 200.0, *patient.Preferences.MaxFee)
		assert.Nil(t, patient.MedicalHistory)
	})

	t.Run("appointments", func(t *testing.T) {
		repo := NewAppointmentAdapter(client)

		all, err := repo.ListByDoctor(ctx, "doc-1", false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		active, err := repo.ListByDoctor(ctx, "doc-1", true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, []string{"chest pain", "fatigue"}, active[0].Symptoms.Values())
		assert.Equal(t, "Musa", active[0].PatientSnapshot.Name)
		assert.True(t, slot.Equal(active[0].SlotDate))
	})
}
