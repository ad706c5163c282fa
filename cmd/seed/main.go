package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/careloop/hms-backend/internal/config"
	"github.com/careloop/hms-backend/internal/db"
	"github.com/careloop/hms-backend/internal/user"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate schema: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	svc := user.NewService(user.NewPgRepository(pool))

	if err := seedAdmin(context.Background(), svc); err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	if err := seedDoctors(context.Background(), svc, 10); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), svc, 50); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedAdmin(ctx context.Context, svc *user.Service) error {
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	admin := user.User{Username: "admin", Email: "admin@careloop.local"}
	if err := admin.SetPassword(password); err != nil {
		return err
	}
	if err := svc.CreateAdmin(ctx, admin); err != nil {
		return err
	}

	log.Println("admin seeded (username=admin)")
	return nil
}

func seedDoctors(ctx context.Context, svc *user.Service, count int) error {
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

	for i := 0; i < count; i++ {
		username := fmt.Sprintf("doctor%d", i+1)
		profile := user.Doctor{
			FullName:        "Dr. " + gofakeit.Name(),
			Specialization:  specialties[gofakeit.Number(0, len(specialties)-1)],
			ExperienceYears: gofakeit.Number(1, 30),
			About:           gofakeit.Sentence(12),
		}
		if _, err := svc.CreateDoctor(ctx, username, gofakeit.Email(), "doctor123", profile); err != nil {
			return err
		}
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, svc *user.Service, count int) error {
	log.Printf("seeding %d patients", count)

	bloodGroups := []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}

	for i := 0; i < count; i++ {
		username := fmt.Sprintf("patient%d", i+1)
		height := gofakeit.Float64Range(150, 195)
		weight := gofakeit.Float64Range(45, 110)
		profile := user.Patient{
			FullName:   gofakeit.Name(),
			Gender:     gofakeit.Gender(),
			DOB:        gofakeit.DateRange(time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2005, 12, 31, 0, 0, 0, 0, time.UTC)).Format("2006-01-02"),
			Address:    gofakeit.Address().Address,
			Phone:      gofakeit.Phone(),
			HeightCM:   &height,
			WeightKG:   &weight,
			BloodGroup: bloodGroups[gofakeit.Number(0, len(bloodGroups)-1)],
		}
		if _, err := svc.CreatePatient(ctx, username, gofakeit.Email(), "patient123", profile); err != nil {
			return err
		}

		if (i+1)%25 == 0 {
			log.Printf("patients seeded: %d/%d", i+1, count)
		}
	}

	log.Println("patients seeded")
	return nil
}
