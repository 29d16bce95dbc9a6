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

	"github.com/vibhuti45/vishwaas-academy/internal/app"
	"github.com/vibhuti45/vishwaas-academy/internal/attempt"
	"github.com/vibhuti45/vishwaas-academy/internal/config"
	"github.com/vibhuti45/vishwaas-academy/internal/domain"
	"github.com/vibhuti45/vishwaas-academy/internal/infra/memory"
	pgstore "github.com/vibhuti45/vishwaas-academy/internal/infra/postgres"
	redisstore "github.com/vibhuti45/vishwaas-academy/internal/infra/redis"
	transport "github.com/vibhuti45/vishwaas-academy/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the academy quiz server",
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

	var (
		content attempt.ContentStore
		writer  app.ContentWriter
		ledger  app.Ledger
		history app.History
	)
	if pool != nil {
		store := pgstore.NewContentStore(pool)
		content, writer = store, store
		ledger = pgstore.NewLedger(pool)
	} else {
		store := memory.NewContentStore(sampleQuizzes())
		content, writer = store, store
		ledger = memory.NewLedger()
		log.Printf("no postgres configured, using in-memory stores with sample data")
	}

	if redisClient != nil {
		cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
		content = redisstore.NewContentCache(redisClient, content, cacheTTL)
		history = redisstore.NewHistoryStore(redisClient)
	} else {
		history = memory.NewHistoryStore()
	}

	service := app.NewAttemptService(content, ledger, history, nil)
	editor := app.NewEditorService(writer)
	editor.AllowUnpublish = cfg.Editor.AllowUnpublish

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)
	transport.NewRESTHandler(service).Register(mux)
	transport.NewEditorHandler(editor).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting academy quiz service on :%s", finalPort)
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

// sampleQuizzes seeds the in-memory store for local development.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:              "quiz-1",
			Title:           "Mechanics Basics",
			DurationMinutes: 10,
			Published:       true,
			Marking:         domain.MarkingScheme{PointsForCorrect: 4, PointsForIncorrect: 1},
			Questions: []domain.Question{
				{
					ID:            "q1",
					Prompt:        "What is 2 + 2?",
					Options:       []string{"3", "4", "5", "6"},
					CorrectOption: 1,
				},
			},
		},
	}
}
