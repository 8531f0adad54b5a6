package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medibook/booking-engine/internal/db"
)

const (
	doctorCount  = 20
	patientCount = 500
	slotDays     = 7
	slotMinutes  = 30
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	typeIDs, err := seedAppointmentTypes(context.Background(), pool)
	if err != nil {
		log.Fatalf("seed appointment types: %v", err)
	}
	doctorIDs, err := seedDoctors(context.Background(), pool, doctorCount)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, patientCount); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedSlots(context.Background(), pool, doctorIDs, typeIDs); err != nil {
		log.Fatalf("seed slots: %v", err)
	}
	if err := seedSampleBlock(context.Background(), pool, doctorIDs[0]); err != nil {
		log.Fatalf("seed sample block: %v", err)
	}

	log.Println("seed complete")
}

func seedAppointmentTypes(ctx context.Context, pool *pgxpool.Pool) ([]uuid.UUID, error) {
	types := []struct {
		name     string
		duration int
	}{
		{"General Consultation", 30},
		{"Follow-up", 15},
		{"Annual Checkup", 45},
		{"Specialist Referral", 30},
	}

	log.Printf("seeding %d appointment types", len(types))

	ids := make([]uuid.UUID, 0, len(types))
	for _, t := range types {
		id := uuid.New()
		_, err := pool.Exec(ctx, `
			INSERT INTO appointment_types (id, name, duration_minutes)
			VALUES ($1, $2, $3)
		`, id, t.name, t.duration)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO doctors (id, first_name, last_name, title, specialty, created_at, updated_at)
			VALUES ($1, $2, $3, 'Dr.', $4, now(), now())
		`, id, gofakeit.FirstName(), gofakeit.LastName(), spec)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, uuid.New(), gofakeit.FirstName(), gofakeit.LastName(), gofakeit.Email())
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedSlots fills the next slotDays days with half-hour slots from 09:00
// to 17:00 for every doctor.
func seedSlots(ctx context.Context, pool *pgxpool.Pool, doctorIDs, typeIDs []uuid.UUID) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	total := 0
	now := time.Now()
	for day := 0; day < slotDays; day++ {
		date := now.AddDate(0, 0, day)
		dayStart := time.Date(date.Year(), date.Month(), date.Day(), 9, 0, 0, 0, time.Local)
		dayEnd := time.Date(date.Year(), date.Month(), date.Day(), 17, 0, 0, 0, time.Local)

		for _, doctorID := range doctorIDs {
			for start := dayStart; start.Before(dayEnd); start = start.Add(slotMinutes * time.Minute) {
				typeID := typeIDs[gofakeit.Number(0, len(typeIDs)-1)]
				_, err := tx.Exec(ctx, `
					INSERT INTO slots (id, doctor_id, appointment_type_id, start_time, end_time, is_available, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, true, now(), now())
				`, uuid.New(), doctorID, typeID, start, start.Add(slotMinutes*time.Minute))
				if err != nil {
					return err
				}
				total++
			}
		}
	}

	log.Printf("seeded %d slots", total)
	return tx.Commit(ctx)
}

func seedSampleBlock(ctx context.Context, pool *pgxpool.Pool, doctorID uuid.UUID) error {
	start := time.Now().AddDate(0, 0, 3)
	blockStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.Local)
	blockEnd := time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 999999999, time.Local)

	_, err := pool.Exec(ctx, `
		INSERT INTO availability_blocks (id, doctor_id, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, 'Conference day', now())
	`, uuid.New(), doctorID, blockStart, blockEnd)
	return err
}
