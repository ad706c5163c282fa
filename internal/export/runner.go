package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/careloop/hms-backend/internal/appointment"
)

// HistorySource supplies the rows an export renders.
type HistorySource interface {
	PatientHistory(ctx context.Context, patientID int64) ([]appointment.Visit, error)
}

// Runner consumes the export queue and writes one CSV per task.
type Runner struct {
	queue   *Queue
	history HistorySource
	dir     string
	log     zerolog.Logger
}

func NewRunner(queue *Queue, history HistorySource, dir string, log zerolog.Logger) *Runner {
	return &Runner{queue: queue, history: history, dir: dir, log: log}
}

// Run processes tasks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		task, err := r.queue.Next(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.log.Error().Err(err).Msg("export queue read failed")
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue
		}

		r.process(ctx, *task)
	}
}

func (r *Runner) process(ctx context.Context, task Task) {
	res := Result{TaskID: task.ID, PatientID: task.PatientID, Status: TaskRunning, UpdatedAt: time.Now()}
	if err := r.queue.setResult(ctx, res); err != nil {
		r.log.Error().Err(err).Str("task_id", task.ID).Msg("mark export task running failed")
	}

	path, err := r.writeCSV(ctx, task)
	res.UpdatedAt = time.Now()
	if err != nil {
		r.log.Error().Err(err).Str("task_id", task.ID).Int64("patient_id", task.PatientID).Msg("export failed")
		res.Status = TaskFailed
		res.Error = err.Error()
	} else {
		res.Status = TaskDone
		res.FilePath = path
		r.cleanupOlderExports(task.PatientID, path)
	}

	if err := r.queue.setResult(ctx, res); err != nil {
		r.log.Error().Err(err).Str("task_id", task.ID).Msg("store export result failed")
	}
}

func (r *Runner) writeCSV(ctx context.Context, task Task) (string, error) {
	visits, err := r.history.PatientHistory(ctx, task.PatientID)
	if err != nil {
		return "", fmt.Errorf("load patient history: %w", err)
	}

	name := fmt.Sprintf("patient_%d_history_%s.csv", task.PatientID, time.Now().Format("20060102T150405"))
	path := filepath.Join(r.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"appointment_id", "date", "time_slot", "status", "doctor",
		"specialization", "reason", "diagnosis", "prescription",
		"tests", "precautions", "notes", "follow_up_date",
	}
	if err := w.Write(header); err != nil {
		return "", err
	}

	for _, v := range visits {
		row := []string{
			strconv.FormatInt(v.ID, 10),
			v.Date,
			v.TimeSlot,
			string(v.Status),
			v.DoctorName,
			v.DoctorSpecialization,
			derefStr(v.Reason),
		}
		if v.Treatment != nil {
			row = append(row,
				v.Treatment.Diagnosis,
				v.Treatment.Prescription,
				strings.Join(v.Treatment.Tests(), "; "),
				v.Treatment.Precautions,
				v.Treatment.Notes,
				derefStr(v.Treatment.FollowUpDate),
			)
		} else {
			row = append(row, "", "", "", "", "", "")
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}

// cleanupOlderExports keeps only the newest CSV for a patient. Delete errors
// are logged and ignored; retention is housekeeping, not correctness.
func (r *Runner) cleanupOlderExports(patientID int64, keep string) {
	pattern := filepath.Join(r.dir, fmt.Sprintf("patient_%d_history_*.csv", patientID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	sort.Strings(matches)

	for _, m := range matches {
		if m == keep {
			continue
		}
		if err := os.Remove(m); err != nil {
			r.log.Warn().Err(err).Str("file", m).Msg("failed to remove old export")
		}
	}
}

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
