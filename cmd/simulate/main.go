// Booking load simulator. Points many concurrent patients at one
// doctor's day of slots and reports how the races resolved: every slot
// must be won exactly once, every other attempt must get a conflict.
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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-engine/internal/db"
)

type simConfig struct {
	apiBaseURL string
	doctorID   uuid.UUID
	date       string
	workers    int
	attempts   int
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{
		apiBaseURL: envOr("API_BASE_URL", "http://localhost:8080"),
		date:       envOr("SIM_DATE", time.Now().Format("2006-01-02")),
		workers:    envIntOr("SIM_WORKERS", 50),
		attempts:   envIntOr("SIM_ATTEMPTS", 20),
	}

	doctorID, err := uuid.Parse(os.Getenv("SIM_DOCTOR_ID"))
	if err != nil {
		log.Fatal("SIM_DOCTOR_ID must be a valid doctor UUID")
	}
	cfg.doctorID = doctorID

	patients, err := loadPatientIDs(os.Getenv("POSTGRES_DSN"))
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	if len(patients) == 0 {
		log.Fatal("no patients in database, run the seed first")
	}

	slots, err := fetchSlots(cfg, patients[0])
	if err != nil {
		log.Fatalf("fetch slots: %v", err)
	}
	if len(slots) == 0 {
		log.Fatal("no available slots for that doctor and date")
	}
	log.Printf("simulating %d workers x %d attempts against %d slots", cfg.workers, cfg.attempts, len(slots))

	var booked, conflicts, failures int64
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))

			for i := 0; i < cfg.attempts; i++ {
				slot := slots[rng.Intn(len(slots))]
				patient := patients[rng.Intn(len(patients))]

				switch status := bookSlot(cfg, patient, slot); status {
				case http.StatusCreated:
					atomic.AddInt64(&booked, 1)
				case http.StatusConflict:
					atomic.AddInt64(&conflicts, 1)
				default:
					atomic.AddInt64(&failures, 1)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	log.Printf("done in %s: booked=%d conflicts=%d failures=%d slots=%d",
		time.Since(start), booked, conflicts, failures, len(slots))
	if booked > int64(len(slots)) {
		log.Fatalf("INVARIANT BROKEN: %d bookings committed for %d slots", booked, len(slots))
	}
}

func loadPatientIDs(dsn string) ([]uuid.UUID, error) {
	if dsn == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func fetchSlots(cfg simConfig, patient uuid.UUID) ([]uuid.UUID, error) {
	url := fmt.Sprintf("%s/slots?doctorId=%s&date=%s", cfg.apiBaseURL, cfg.doctorID, cfg.date)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	setPrincipal(req, patient)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("slots request returned %d: %s", resp.StatusCode, body)
	}

	var slots []struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&slots); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func bookSlot(cfg simConfig, patient, slot uuid.UUID) int {
	payload, _ := json.Marshal(map[string]string{"slot_id": slot.String()})
	req, err := http.NewRequest(http.MethodPost, cfg.apiBaseURL+"/appointments", bytes.NewReader(payload))
	if err != nil {
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	setPrincipal(req, patient)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode
}

func setPrincipal(req *http.Request, patient uuid.UUID) {
	req.Header.Set("X-User-ID", patient.String())
	req.Header.Set("X-User-Role", "patient")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
