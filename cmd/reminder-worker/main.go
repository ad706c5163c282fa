package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/careloop/hms-backend/internal/appointment"
	"github.com/careloop/hms-backend/internal/config"
	"github.com/careloop/hms-backend/internal/db"
	"github.com/careloop/hms-backend/internal/schedule"
)

// Notifier delivers one reminder. The log notifier is the only
// implementation; an SMTP or SMS sender would slot in here.
type Notifier interface {
	Remind(ctx context.Context, appt appointment.Detail) error
}

type logNotifier struct{}

func (logNotifier) Remind(_ context.Context, appt appointment.Detail) error {
	log.Printf("reminder: appointment %d patient=%q doctor=%q at %s %s",
		appt.ID, appt.PatientName, appt.DoctorName, appt.Date, appt.TimeSlot)
	return nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("reminder-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running reminder worker in env=%s interval=%s", cfg.Env, cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	repo := appointment.NewPgRepository(pgPool)
	notifier := logNotifier{}

	// Run once at startup
	runOnce(rootCtx, repo, notifier)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, repo, notifier)
		}
	}
}

func runOnce(ctx context.Context, repo appointment.Repository, notifier Notifier) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	due, err := repo.List(runCtx, appointment.ListFilter{
		Date:   schedule.Today(),
		Status: appointment.StatusBooked,
	})
	if err != nil {
		log.Printf("reminder run error: %v", err)
		return
	}

	var sent int
	for _, appt := range due {
		if err := notifier.Remind(runCtx, appt); err != nil {
			log.Printf("reminder for appointment %d failed: %v", appt.ID, err)
			continue
		}
		sent++
	}
	log.Printf("reminder run complete: %d/%d sent in %s", sent, len(due), time.Since(start))
}
