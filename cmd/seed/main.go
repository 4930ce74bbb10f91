package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/interview-scheduling/internal/db"
	"github.com/hackgods/interview-scheduling/internal/scheduling"
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

	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	if err == nil {
		err = db.Migrate(ctx, pool)
	}
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	employers, err := seedEmployers(context.Background(), pool, 100)
	if err != nil {
		log.Fatalf("seed employers: %v", err)
	}
	jobs, err := seedJobs(context.Background(), pool, employers, 3)
	if err != nil {
		log.Fatalf("seed jobs: %v", err)
	}
	students, err := seedStudents(context.Background(), pool, 4000)
	if err != nil {
		log.Fatalf("seed students: %v", err)
	}
	if err := seedApplications(context.Background(), pool, students, jobs, 2); err != nil {
		log.Fatalf("seed applications: %v", err)
	}

	log.Println("seed complete")
}

// fakeBusy builds a few meetings per day across the next week, aligned to
// quarter hours so the generated calendars look like real ones.
func fakeBusy(now time.Time) []scheduling.RawInterval {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	labels := []string{"Standup", "1:1", "Design review", "Hiring sync", "Customer call", "Focus time"}

	var out []scheduling.RawInterval
	for d := 0; d < 7; d++ {
		base := day.AddDate(0, 0, d)
		for n := gofakeit.Number(0, 4); n > 0; n-- {
			start := base.Add(time.Duration(gofakeit.Number(8*4, 17*4)) * 15 * time.Minute)
			end := start.Add(time.Duration(gofakeit.Number(1, 8)) * 15 * time.Minute)
			out = append(out, scheduling.RawInterval{
				ID:    uuid.NewString(),
				Start: start.Format(time.RFC3339),
				End:   end.Format(time.RFC3339),
				Label: labels[gofakeit.Number(0, len(labels)-1)],
			})
		}
	}
	return out
}

func seedEmployers(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d employers", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		busy, err := json.Marshal(fakeBusy(now))
		if err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO employer_profiles (id, company_name, busy_intervals, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Company(), busy)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("employers seeded")
	return ids, nil
}

func seedJobs(ctx context.Context, pool *pgxpool.Pool, employers []uuid.UUID, perEmployer int) ([]uuid.UUID, error) {
	log.Printf("seeding %d jobs per employer", perEmployer)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, len(employers)*perEmployer)
	for _, employerID := range employers {
		for i := 0; i < perEmployer; i++ {
			id := uuid.New()
			title := gofakeit.JobLevel() + " " + gofakeit.JobTitle() + " Co-op"

			_, err := tx.Exec(ctx, `
				INSERT INTO jobs (id, employer_id, title, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, employerID, title)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("jobs seeded")
	return ids, nil
}

func seedStudents(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d students", count)

	const batchSize = 500

	ids := make([]uuid.UUID, 0, count)
	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()

			_, err := tx.Exec(ctx, `
				INSERT INTO student_profiles (id, full_name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, id, gofakeit.Name(), gofakeit.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("students seeded: %d/%d", end, count)
	}

	return ids, nil
}

func seedApplications(ctx context.Context, pool *pgxpool.Pool, students, jobs []uuid.UUID, perStudent int) error {
	log.Printf("seeding up to %d applications per student", perStudent)

	const batchSize = 500

	for offset := 0; offset < len(students); offset += batchSize {
		end := offset + batchSize
		if end > len(students) {
			end = len(students)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, studentID := range students[offset:end] {
			for i := 0; i < perStudent; i++ {
				jobID := jobs[gofakeit.Number(0, len(jobs)-1)]

				_, err := tx.Exec(ctx, `
					INSERT INTO applications (id, student_id, job_id, created_at)
					VALUES ($1, $2, $3, now())
					ON CONFLICT (student_id, job_id) DO NOTHING
				`, uuid.New(), studentID, jobID)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("applications seeded for students: %d/%d", end, len(students))
	}

	return nil
}
