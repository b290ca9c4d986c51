package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/config"
	"campus-quiz-service/internal/infra/memory"
	"campus-quiz-service/internal/infra/postgres"
	infraredis "campus-quiz-service/internal/infra/redis"
	transport "campus-quiz-service/internal/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var quizzes app.QuizRepository
	var subs app.SubmissionRepository
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		quizzes = postgres.NewQuizStore(db)
		subs = postgres.NewSubmissionStore(db)
	} else {
		// Single-instance development mode.
		quizzes = memory.NewQuizStore()
		subs = memory.NewSubmissionStore()
	}

	broadcaster := memory.NewBroadcaster()
	notifiers := app.MultiNotifier{broadcaster}

	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
		quizzes = infraredis.NewQuizCache(redisClient, quizzes, cacheTTL)
		notifiers = append(notifiers, infraredis.NewNotifier(redisClient, cfg.Redis.Channel))
	}

	aggregator := app.NewStatisticsAggregator(quizzes, subs)
	manager := app.NewLifecycleManager(quizzes, subs, notifiers)
	service := app.NewSubmissionService(quizzes, subs, aggregator, notifiers)
	gate := app.NewAccessGate(quizzes)
	feed := transport.NewFeedHandler(manager, broadcaster)

	mux := http.NewServeMux()
	transport.NewHandler(manager, gate, service, feed).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
