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
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/interview-scheduling/internal/config"
	"github.com/hackgods/interview-scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL       string
	Duration         time.Duration
	Workers          int
	CreateRatio      float64
	RaceRatio        float64
	ReadRatio        float64
	Racers           int
	ApplicationLimit int
	PostgresDSN      string
}

// Application is one student/job pair an employer can send a request for.
type Application struct {
	ID         uuid.UUID
	StudentID  uuid.UUID
	EmployerID uuid.UUID
	JobID      uuid.UUID
}

type pendingRequest struct {
	ID         uuid.UUID
	StudentID  uuid.UUID
	EmployerID uuid.UUID
	SlotIDs    []string
}

type DataPool struct {
	Applications []Application
	mu           sync.Mutex
	pending      []pendingRequest
	created      []pendingRequest
}

func (dp *DataPool) AddRequest(r pendingRequest) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.pending = append(dp.pending, r)
	dp.created = append(dp.created, r)
}

// TakePending removes a random pending request so that only one race is run
// against it.
func (dp *DataPool) TakePending(rng *rand.Rand) (pendingRequest, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.pending) == 0 {
		return pendingRequest{}, false
	}
	idx := rng.Intn(len(dp.pending))
	r := dp.pending[idx]
	dp.pending[idx] = dp.pending[len(dp.pending)-1]
	dp.pending = dp.pending[:len(dp.pending)-1]
	return r, true
}

func (dp *DataPool) RandomCreated(rng *rand.Rand) (pendingRequest, bool) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	if len(dp.created) == 0 {
		return pendingRequest{}, false
	}
	return dp.created[rng.Intn(len(dp.created))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	if len(latencies) > 0 {
		p50Idx := len(latencies) * 50 / 100
		if p50Idx >= len(latencies) {
			p50Idx = len(latencies) - 1
		}
		p50 = latencies[p50Idx]

		p95Idx := len(latencies) * 95 / 100
		if p95Idx >= len(latencies) {
			p95Idx = len(latencies) - 1
		}
		p95 = latencies[p95Idx]
	}

	return avg, min, max, p50, p95
}

type Metrics struct {
	Create       OperationMetrics
	Select       OperationMetrics
	ReadByID     OperationMetrics
	ListEmployer OperationMetrics
	ListStudent  OperationMetrics

	Races         int64
	RaceAnomalies int64
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d racers=%d create=%.2f race=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.Racers, cfg.CreateRatio, cfg.RaceRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 2)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d applications", len(dataPool.Applications))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	if atomic.LoadInt64(&sim.metrics.RaceAnomalies) > 0 {
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:       getEnv("SIM_API_BASE_URL", "http://localhost:"+baseCfg.HTTPPort),
		Duration:         getDuration("SIM_DURATION", 30*time.Second),
		Workers:          getInt("SIM_WORKERS", 10),
		CreateRatio:      getFloat("SIM_CREATE_RATIO", 0.4),
		RaceRatio:        getFloat("SIM_RACE_RATIO", 0.3),
		ReadRatio:        getFloat("SIM_READ_RATIO", 0.3),
		Racers:           getInt("SIM_RACERS", 8),
		ApplicationLimit: getInt("SIM_APPLICATION_LIMIT", 4000),
		PostgresDSN:      baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.CreateRatio + cfg.RaceRatio + cfg.ReadRatio
	if total > 0 {
		cfg.CreateRatio /= total
		cfg.RaceRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Racers < 2 {
		return fmt.Errorf("SIM_RACERS must be >= 2")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT a.id, a.student_id, j.employer_id, a.job_id
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		ORDER BY random()
		LIMIT $1
	`, cfg.ApplicationLimit)
	if err != nil {
		return nil, fmt.Errorf("load applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Application
		if err := rows.Scan(&a.ID, &a.StudentID, &a.EmployerID, &a.JobID); err != nil {
			return nil, err
		}
		dataPool.Applications = append(dataPool.Applications, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Applications) == 0 {
		return nil, fmt.Errorf("no applications loaded, run cmd/seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			if r < s.config.CreateRatio {
				s.doCreate(ctx, rng)
			} else if r < s.config.CreateRatio+s.config.RaceRatio {
				s.doSelectRace(ctx, rng)
			} else {
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListForEmployer(ctx, rng)
				case 2:
					s.doListForStudent(ctx, rng)
				}
			}
		}
	}
}

func (s *Simulator) newRequest(ctx context.Context, method, path string, actor uuid.UUID, body any) *http.Request {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req, _ := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, rdr)
	req.Header.Set("X-Actor-ID", actor.String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (s *Simulator) doCreate(ctx context.Context, rng *rand.Rand) {
	app := s.pool.Applications[rng.Intn(len(s.pool.Applications))]
	appID := app.ID.String()

	body := map[string]any{
		"student_id":       app.StudentID.String(),
		"job_id":           app.JobID.String(),
		"application_id":   appID,
		"duration_minutes": []int{30, 45, 60}[rng.Intn(3)],
	}

	start := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, http.MethodPost, "/interview-requests", app.EmployerID, body))
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var created struct {
				ID            uuid.UUID `json:"id"`
				ProposedSlots []struct {
					ID string `json:"id"`
				} `json:"proposed_slots"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&created); err == nil && created.ID != uuid.Nil {
				r := pendingRequest{ID: created.ID, StudentID: app.StudentID, EmployerID: app.EmployerID}
				for _, slot := range created.ProposedSlots {
					r.SlotIDs = append(r.SlotIDs, slot.ID)
				}
				s.pool.AddRequest(r)
			}
		case http.StatusUnprocessableEntity:
			// Employer has no free time in the window.
			conflict = true
		}
	}

	s.metrics.Create.Record(latency, success, conflict)
}

// doSelectRace fires Racers concurrent selects at one pending request, each
// for a different proposed slot where possible. Exactly one may win.
func (s *Simulator) doSelectRace(ctx context.Context, rng *rand.Rand) {
	target, ok := s.pool.TakePending(rng)
	if !ok || len(target.SlotIDs) == 0 {
		return
	}

	var (
		wg   sync.WaitGroup
		wins int64
	)
	gate := make(chan struct{})
	for i := 0; i < s.config.Racers; i++ {
		slotID := target.SlotIDs[i%len(target.SlotIDs)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate

			start := time.Now()
			resp, err := s.client.Do(s.newRequest(ctx, http.MethodPost,
				fmt.Sprintf("/interview-requests/%s/select", target.ID), target.StudentID,
				map[string]string{"slot_id": slotID}))
			latency := time.Since(start)

			success := false
			conflict := false
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				success = resp.StatusCode == http.StatusOK
				conflict = resp.StatusCode == http.StatusConflict
			}
			if success {
				atomic.AddInt64(&wins, 1)
			}
			s.metrics.Select.Record(latency, success, conflict)
		}()
	}
	close(gate)
	wg.Wait()

	atomic.AddInt64(&s.metrics.Races, 1)
	if wins > 1 || (wins == 0 && ctx.Err() == nil) {
		atomic.AddInt64(&s.metrics.RaceAnomalies, 1)
		log.Printf("race anomaly: request=%s winners=%d", target.ID, wins)
	}
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	target, ok := s.pool.RandomCreated(rng)
	if !ok {
		return
	}

	actor, role := target.StudentID, "student"
	if rng.Intn(2) == 0 {
		actor, role = target.EmployerID, "employer"
	}

	start := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, http.MethodGet,
		fmt.Sprintf("/interview-requests/%s?role=%s", target.ID, role), actor, nil))
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ReadByID.Record(latency, success, false)
}

func (s *Simulator) doListForEmployer(ctx context.Context, rng *rand.Rand) {
	app := s.pool.Applications[rng.Intn(len(s.pool.Applications))]

	start := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, http.MethodGet,
		"/interview-requests?role=employer&limit=20&offset=0", app.EmployerID, nil))
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ListEmployer.Record(latency, success, false)
}

func (s *Simulator) doListForStudent(ctx context.Context, rng *rand.Rand) {
	app := s.pool.Applications[rng.Intn(len(s.pool.Applications))]

	start := time.Now()
	resp, err := s.client.Do(s.newRequest(ctx, http.MethodGet,
		"/interview-requests?role=student&status=pending", app.StudentID, nil))
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	s.metrics.ListStudent.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Select races: %d (anomalies: %d)\n",
		atomic.LoadInt64(&s.metrics.Races), atomic.LoadInt64(&s.metrics.RaceAnomalies))
	fmt.Println()

	printOperationReport("Create request", &s.metrics.Create)
	printOperationReport("Select slot", &s.metrics.Select)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List for employer", &s.metrics.ListEmployer)
	printOperationReport("List for student", &s.metrics.ListStudent)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func repeat(s string, n int) string {
	return strings.Repeat(s, n)
}
