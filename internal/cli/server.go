package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"pubquiz-service/internal/app"
	"pubquiz-service/internal/config"
	"pubquiz-service/internal/domain"
	"pubquiz-service/internal/infra/memory"
	pgstore "pubquiz-service/internal/infra/postgres"
	redisstore "pubquiz-service/internal/infra/redis"
	transport "pubquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the pub-quiz server",
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var saver app.QuizSaver
	var loader memory.QuizLoader
	if pool != nil {
		quizStore := pgstore.NewQuizStore(pool)
		loader = quizStore
		saver = quizStore
	} else {
		static := memory.NewStaticQuizLoader(sampleQuizzes())
		loader = static
		saver = static
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizCache(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizCache(loader, quizTTL)
	}

	var store app.Store
	switch {
	case cfg.Store.Backend == "memory":
		store = memory.NewStore()
	case redisClient != nil:
		store = redisstore.NewStore(redisClient)
	case cfg.Store.Backend == "redis":
		// Redis explicitly requested but no address configured.
		store = app.UnconfiguredStore{}
	default:
		store = memory.NewStore()
	}

	service := app.NewGameService(store, quizRepo)
	wsHandler := transport.NewWSHandler(service)
	gameHandler := transport.NewGameHandler(service, saver)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	mux.HandleFunc("/games", gameHandler.CreateGame)
	mux.HandleFunc("/quizzes", gameHandler.CreateQuiz)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting pub-quiz service on :%s", finalPort)
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

// sampleQuizzes seeds demo content when no Postgres backend is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:   "quiz-1",
			Name: "General Knowledge Warmup",
			Rounds: []domain.Round{
				{
					Name: "Numbers",
					Questions: []domain.Question{
						{
							Prompt:       "What is 2 + 2?",
							Options:      []string{"3", "4", "5", "22"},
							CorrectIndex: 1,
							TimeLimitSec: 30,
						},
						{
							Prompt:       "How many sides does a hexagon have?",
							Options:      []string{"5", "8", "6", "7"},
							CorrectIndex: 2,
							TimeLimitSec: 20,
						},
					},
				},
				{
					Name: "Geography",
					Questions: []domain.Question{
						{
							Prompt:       "Which city is the capital of Australia?",
							Options:      []string{"Sydney", "Melbourne", "Perth", "Canberra"},
							CorrectIndex: 3,
							TimeLimitSec: 30,
						},
					},
				},
			},
		},
	}
}
