package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-game/internal/config"
	"quiz-game/internal/domain"
	"quiz-game/internal/game"
	"quiz-game/internal/infra/memory"
	pgstore "quiz-game/internal/infra/postgres"
	redisstore "quiz-game/internal/infra/redis"
	"quiz-game/internal/obslog"
	"quiz-game/internal/scoring"
	transport "quiz-game/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz game server",
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
	logger := obslog.New(cfg.Log)
	defer func() { _ = logger.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 0)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions scoring.QuestionRepository
	if redisClient != nil {
		questions = redisstore.NewQuestionRepository(redisClient, loader, bankTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, bankTTL)
	}

	var store scoring.Store
	switch {
	case pool != nil:
		store = pgstore.NewStore(pool)
	case redisClient != nil:
		store = redisstore.NewStore(redisClient, redisTTL)
	default:
		store = memory.NewStore()
	}

	engine := scoring.NewEngine(store, questions, cfg.Game.Categories, cfg.Game.PointsPerRound,
		scoring.WithLogger(logger.Named("scoring")))
	wsHandler := transport.NewWSHandler(engine, logger.Named("ws"), game.WithSettings(game.Settings{
		MaxRounds:      cfg.Game.MaxRounds,
		RoundSeconds:   cfg.Game.RoundSeconds,
		PointsPerRound: cfg.Game.PointsPerRound,
		PerfectSeconds: cfg.Game.PerfectSeconds,
		HistoryLimit:   cfg.Game.HistoryLimit,
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("server_starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("server_shutdown", zap.String("reason", "signal"))
	case <-ctx.Done():
		logger.Info("server_shutdown", zap.String("reason", "context canceled"))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds the static loader when no database is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "budgeting-1", Category: "budgeting", Difficulty: "easy", Prompt: "In the 50/30/20 rule, what does the 20% cover?", Options: []string{"Wants", "Needs", "Savings and debt repayment"}, CorrectAnswer: "Savings and debt repayment", Explanation: "20% of after-tax income goes to savings and paying down debt.", Points: 10},
		{ID: "budgeting-2", Category: "budgeting", Difficulty: "medium", Prompt: "A zero-based budget assigns every dollar a job. True or false?", Options: []string{"True", "False"}, CorrectAnswer: "True", Explanation: "Income minus planned spending and saving equals zero.", Points: 10},
		{ID: "saving-1", Category: "saving", Difficulty: "easy", Prompt: "How many months of expenses should an emergency fund usually hold?", Options: []string{"1", "3 to 6", "24"}, CorrectAnswer: "3 to 6", Explanation: "Three to six months covers most job or health disruptions.", Points: 10},
		{ID: "investing-1", Category: "investing", Difficulty: "medium", Prompt: "What does an index fund track?", Options: []string{"A single stock", "A market index", "Interest rates"}, CorrectAnswer: "A market index", Explanation: "Index funds hold the securities of an index such as the S&P 500.", Points: 10},
		{ID: "credit-1", Category: "credit", Difficulty: "medium", Prompt: "Which factor weighs most in a FICO score?", Options: []string{"Payment history", "Credit mix", "New credit"}, CorrectAnswer: "Payment history", Explanation: "Payment history is about 35% of the score.", Points: 10},
		{ID: "retirement-1", Category: "retirement", Difficulty: "hard", Prompt: "What is an employer 401(k) match?", Options: []string{"A loan", "Free contributions matching yours", "A tax penalty"}, CorrectAnswer: "Free contributions matching yours", Explanation: "Employers add money in proportion to what you contribute.", Points: 10},
		{ID: "taxes-1", Category: "taxes", Difficulty: "medium", Prompt: "A tax deduction reduces what?", Options: []string{"Taxable income", "Tax owed dollar for dollar"}, CorrectAnswer: "Taxable income", Explanation: "Credits reduce tax owed; deductions reduce taxable income.", Points: 10},
	}
}
