package integration

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/postgres"
	pgmigrations "campus-quiz-service/internal/infra/postgres/migrations"
	infraredis "campus-quiz-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(t, ctx, pgURL)
	defer db.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	var quizzes app.QuizRepository = postgres.NewQuizStore(db)
	quizzes = infraredis.NewQuizCache(redisClient, quizzes, 5*time.Minute)
	subs := postgres.NewSubmissionStore(db)

	notifier := infraredis.NewNotifier(redisClient, "")
	aggregator := app.NewStatisticsAggregator(quizzes, subs)
	manager := app.NewLifecycleManager(quizzes, subs, notifier)
	service := app.NewSubmissionService(quizzes, subs, aggregator, notifier)

	quiz, err := manager.Create(ctx, "prof-1", app.QuizSpec{
		Name:             "Databases Final",
		TimeLimitMinutes: 30,
		Visibility:       domain.VisibilityPublic,
		ShowResults:      true,
		Questions: []app.QuestionSpec{
			{Text: "ACID: what is the A?", Options: []string{"Atomicity", "Availability"}, CorrectAnswer: "Atomicity", Points: 3},
			{Text: "Is SQL declarative?", Options: []string{"yes", "no"}, CorrectAnswer: "yes", Points: 2},
		},
	})
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.TotalPoints != 5 || quiz.TotalQuestions != 2 {
		t.Fatalf("unexpected totals: %+v", quiz)
	}

	// The cache must survive a round trip, password and all.
	got, err := quizzes.Get(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if got.Name != quiz.Name || len(got.Questions) != 2 {
		t.Fatalf("unexpected cached quiz: %+v", got)
	}

	result, err := service.Submit(ctx, "u1", quiz.ID, app.SubmitRequest{
		StudentID:        "s1",
		StudentName:      "Alice",
		Answers:          []string{"Atomicity", "no"},
		TimeSpentSeconds: 300,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Submission.TotalScore != 3 || result.Submission.LetterGrade != "D-" {
		t.Fatalf("unexpected grade: %+v", result.Submission)
	}
	if !result.StatsRefreshed || result.Stats.Count != 1 {
		t.Fatalf("expected refreshed stats, got %+v", result)
	}

	// Concurrent duplicates: exactly one attempt gets through.
	var wg sync.WaitGroup
	accepted := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Submit(ctx, "u2", quiz.ID, app.SubmitRequest{
				StudentID: "s2", StudentName: "Bob", Answers: []string{"Atomicity", "yes"},
			})
			if err == nil {
				accepted <- struct{}{}
			} else if !errors.Is(err, domain.ErrDuplicateSubmission) {
				t.Errorf("unexpected submit error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(accepted)
	if n := len(accepted); n != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", n)
	}

	stats, err := aggregator.Recompute(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if stats.Count != 2 || stats.MaxPercentage != 100 || stats.MinPercentage != 60 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Export straight from Postgres.
	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	var buf bytes.Buffer
	if err := postgres.NewResultsReader(pool).ExportCSV(ctx, quiz.ID, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(buf.String(), "Alice,s1,3,60.00,D-") {
		t.Fatalf("unexpected CSV:\n%s", buf.String())
	}

	// Ending the quiz blocks further submissions.
	if _, err := manager.End(ctx, "prof-1", quiz.ID); err != nil {
		t.Fatalf("end: %v", err)
	}
	if _, err := service.Submit(ctx, "u3", quiz.ID, app.SubmitRequest{
		StudentID: "s3", StudentName: "Cara", Answers: []string{"", ""},
	}); !errors.Is(err, domain.ErrQuizInactive) {
		t.Fatalf("expected inactive error, got %v", err)
	}
}

func openDB(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
