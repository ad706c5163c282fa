package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/careloop/hms-backend/internal/schedule"
)

// simulate drives concurrent booking traffic against a running api-server.
// Its main purpose is proving the double-booking guard: when every worker
// targets the same (doctor, date, slot), exactly one booking must succeed
// and the rest must come back as conflicts.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	DoctorID   int64
	Date       string
	Contend    bool
	Duration   time.Duration
}

type Metrics struct {
	Total    int64
	Created  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (m *Metrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&m.Total, 1)
	switch {
	case err != nil:
		atomic.AddInt64(&m.Error, 1)
	case status == http.StatusCreated:
		atomic.AddInt64(&m.Created, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.Conflict, 1)
	default:
		atomic.AddInt64(&m.Rejected, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *Metrics) Stats() (avg, p50, p95 time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(m.latencies))
	copy(latencies, m.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))

	p50 = latencies[len(latencies)*50/100]
	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]
	return avg, p50, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	log.Printf("config: base_url=%s workers=%d doctor_id=%d date=%s contend=%v",
		cfg.APIBaseURL, cfg.Workers, cfg.DoctorID, cfg.Date, cfg.Contend)

	client := &http.Client{Timeout: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	// one seeded patient account per worker
	tokens := make([]string, cfg.Workers)
	for i := range tokens {
		token, err := login(ctx, client, cfg.APIBaseURL, fmt.Sprintf("patient%d", i+1), "patient123")
		if err != nil {
			log.Fatalf("login patient%d: %v", i+1, err)
		}
		tokens[i] = token
	}
	log.Printf("logged in %d patients", len(tokens))

	grid := schedule.DefaultGrid()
	slots := grid.Slots()

	var metrics Metrics
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			slot := slots[0]
			if !cfg.Contend {
				slot = slots[rng.Intn(len(slots))]
			}
			book(ctx, client, cfg, tokens[workerID], slot, &metrics)
		}(i)
	}

	wg.Wait()
	printReport(cfg, &metrics, time.Since(start))
}

func login(ctx context.Context, client *http.Client, baseURL, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed: status=%d body=%s", resp.StatusCode, raw)
	}

	var parsed struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.Token, nil
}

func book(ctx context.Context, client *http.Client, cfg SimConfig, token, slot string, metrics *Metrics) {
	body, _ := json.Marshal(map[string]any{
		"doctor_id":        cfg.DoctorID,
		"appointment_date": cfg.Date,
		"time_slot":        slot,
		"reason":           "load test booking",
	})

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, "POST", cfg.APIBaseURL+"/api/patient/appointments", bytes.NewReader(body))
	if err != nil {
		metrics.Record(time.Since(start), 0, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		metrics.Record(latency, 0, err)
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	metrics.Record(latency, resp.StatusCode, nil)
}

func printReport(cfg SimConfig, m *Metrics, elapsed time.Duration) {
	avg, p50, p95 := m.Stats()

	fmt.Println("\n================ SIMULATION REPORT ================")
	fmt.Printf("Elapsed: %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Workers: %d (contend=%v)\n", cfg.Workers, cfg.Contend)
	fmt.Printf("Total: %d created=%d conflict=%d rejected=%d error=%d\n",
		atomic.LoadInt64(&m.Total), atomic.LoadInt64(&m.Created),
		atomic.LoadInt64(&m.Conflict), atomic.LoadInt64(&m.Rejected),
		atomic.LoadInt64(&m.Error))
	fmt.Printf("Latency: avg=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond))

	if cfg.Contend {
		created := atomic.LoadInt64(&m.Created)
		if created == 1 {
			fmt.Println("PASS: exactly one booking won the contended slot")
		} else {
			fmt.Printf("FAIL: expected exactly 1 winner, got %d\n", created)
		}
	}
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Workers:    getInt("SIM_WORKERS", 20),
		DoctorID:   int64(getInt("SIM_DOCTOR_ID", 1)),
		Date:       getEnv("SIM_DATE", schedule.AddDays(schedule.Today(), 1)),
		Contend:    getEnv("SIM_CONTEND", "true") == "true",
		Duration:   getDuration("SIM_DURATION", 60*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
