package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/doctordirectory/backend/internal/domain/entities"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/doctordirectory/backend/internal/infrastructure/observability"
	"github.com/zatekoja/doctordirectory/backend/migrations"
	"github.com/zatekoja/doctordirectory/backend/pkg/config"
)

var seedDoctors = []entities.Doctor{
	{Name: "Dr. Amaka Obi", Speciality: "Cardiologist", Degree: "MBBS, FWACP", Experience: "14 Years", About: "Heart failure and hypertension clinic lead", Fees: 25000, Available: true, Gender: "female", Address: entities.DoctorAddress{Line1: "1-3 Broad Street", Line2: "Lagos Island"}},
	{Name: "Dr. Tunde Bakare", Speciality: "Cardiologist", Degree: "MBBS", Experience: "4 Years", About: "Echocardiography and arrhythmia follow-up", Fees: 15000, Available: true, Gender: "male", Address: entities.DoctorAddress{Line1: "Oba Akinjobi Way", Line2: "Ikeja"}},
	{Name: "Dr. Zainab Musa", Speciality: "Dermatologist", Degree: "MBBS, FMCDerm", Experience: "9 Years", About: "Acne, eczema and skin lesion care", Fees: 18000, Available: true, Gender: "female", Address: entities.DoctorAddress{Line1: "Tafawa Balewa Way", Line2: "Garki"}},
	{Name: "Dr. Emeka Eze", Speciality: "Neurologist", Degree: "MBBS, PhD", Experience: "17 Years", About: "Migraine, epilepsy and movement disorders", Fees: 30000, Available: true, Gender: "male", Address: entities.DoctorAddress{Line1: "Samuel Ademulegun St", Line2: "Central Business District"}},
	{Name: "Dr. Funke Adeyemi", Speciality: "Gastroenterologist", Degree: "MBBS", Experience: "7 Years", About: "Endoscopy and reflux management", Fees: 20000, Available: true, Gender: "female", Address: entities.DoctorAddress{Line1: "T.O.S. Benson Road", Line2: "Ikorodu"}},
	{Name: "Dr. Ibrahim Sani", Speciality: "Pediatrician", Degree: "MBBS, FMCPaed", Experience: "11 Years", About: "Childhood fevers, vaccination and growth", Fees: 12000, Available: true, Gender: "male", Address: entities.DoctorAddress{Line1: "Area 8", Line2: "Garki"}},
	{Name: "Dr. Ngozi Okafor", Speciality: "Gynecologist", Degree: "MBBS, FWACS", Experience: "13 Years", About: "Fertility and antenatal care", Fees: 22000, Available: true, Gender: "female", Address: entities.DoctorAddress{Line1: "Adeola Odeku Street", Line2: "Victoria Island"}},
	{Name: "Dr. Segun Alabi", Speciality: "General physician", Degree: "MBBS", Experience: "2 Years", About: "Primary care for fevers, colds and body aches", Fees: 8000, Available: true, Gender: "male", Address: entities.DoctorAddress{Line1: "Allen Avenue", Line2: "Ikeja"}},
	{Name: "Dr. Halima Yusuf", Speciality: "General physician", Degree: "MBBS", Experience: "6 Years", About: "Family medicine", Fees: 9000, Available: false, Gender: "female", Address: entities.DoctorAddress{Line1: "Ahmadu Bello Way", Line2: "Kaduna"}},
}

type seedPatient struct {
	patient  entities.Patient
	doctor   int
	symptoms [][]string
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

var seedPatients = []seedPatient{
	{
		patient: entities.Patient{
			Name:  "Chidi Nwosu",
			Email: "chidi@example.com",
			Preferences: &entities.PatientPreferences{
				PreferredSpecialities: []string{"Cardiologist"},
				MaxFee:                floatPtr(20000),
				Location:              "Ikeja",
				MinExperience:         intPtr(3),
			},
			MedicalHistory: &entities.MedicalHistory{ChronicConditions: []string{"hypertension"}},
		},
		doctor:   0,
		symptoms: [][]string{
			{"chest pain", "shortness of breath"},
			{"palpitations", "dizziness"},
			{"fatigue", "swelling in legs"},
			{"high blood pressure", "headache"},
			{"irregular heartbeat", "nausea"},
		},
	},
	{
		patient: entities.Patient{
			Name:        "Bisi Ade",
			Email:       "bisi@example.com",
			Preferences: &entities.PatientPreferences{Gender: "female", Urgency: "urgent"},
		},
		doctor:   2,
		symptoms: [][]string{{"rash"}, {"itching", "dry skin"}},
	},
	{
		patient:  entities.Patient{Name: "Musa Bello", Email: "musa@example.com"},
		doctor:   3,
		symptoms: [][]string{
			{"migraine", "tingling"},
			{"numbness", "tremors", "memory loss"},
			{"seizures"},
		},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("doctor-directory-seed", cfg.Env)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, pgClient.DB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx, `TRUNCATE TABLE appointments, patients, doctors CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	if err := seed(ctx, goqu.New("postgres", pgClient.DB())); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}

func seed(ctx context.Context, db *goqu.Database) error {
	doctorIDs := make([]string, 0, len(seedDoctors))
	for _, d := range seedDoctors {
		id := uuid.NewString()
		_, err := db.Insert("doctors").Rows(goqu.Record{
			"id":            id,
			"name":          d.Name,
			"speciality":    d.Speciality,
			"degree":        d.Degree,
			"experience":    d.Experience,
			"about":         d.About,
			"fees":          d.Fees,
			"available":     d.Available,
			"gender":        d.Gender,
			"address_line1": d.Address.Line1,
			"address_line2": d.Address.Line2,
		}).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert doctor %s: %w", d.Name, err)
		}
		doctorIDs = append(doctorIDs, id)
	}
	log.Info().Int("count", len(doctorIDs)).Msg("Seeded doctors")

	start := time.Now().AddDate(0, -6, 0).Truncate(24 * time.Hour)
	appointments := 0
	for i, sp := range seedPatients {
		p := sp.patient
		p.ID = uuid.NewString()

		preferences, err := jsonOrNil(p.Preferences)
		if err != nil {
			return err
		}
		history, err := jsonOrNil(p.MedicalHistory)
		if err != nil {
			return err
		}
		_, err = db.Insert("patients").Rows(goqu.Record{
			"id":              p.ID,
			"name":            p.Name,
			"email":           p.Email,
			"preferences":     preferences,
			"medical_history": history,
		}).Executor().ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("insert patient %s: %w", p.Name, err)
		}

		doctorID := doctorIDs[sp.doctor]
		for visit, symptoms := range sp.symptoms {
			payload, err := json.Marshal(entities.Symptoms{Primary: symptoms[0], Secondary: symptoms[1:]})
			if err != nil {
				return err
			}
			_, err = db.Insert("appointments").Rows(goqu.Record{
				"id":            uuid.NewString(),
				"doctor_id":     doctorID,
				"patient_id":    p.ID,
				"patient_name":  p.Name,
				"patient_email": p.Email,
				"symptoms":      string(payload),
				"slot_date":     start.AddDate(0, 0, 14*visit+i),
				"cancelled":     false,
			}).Executor().ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("insert appointment for %s: %w", p.Name, err)
			}
			appointments++
		}
	}
	log.Info().Int("patients", len(seedPatients)).Int("appointments", appointments).Msg("Seeded patients and appointments")
	return nil
}

func jsonOrNil[T any](v *T) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
