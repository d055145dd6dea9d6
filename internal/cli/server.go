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

	"spin-wheel-service/internal/app"
	"spin-wheel-service/internal/config"
	"spin-wheel-service/internal/domain"
	"spin-wheel-service/internal/infra/memory"
	pgloader "spin-wheel-service/internal/infra/postgres"
	redisinfra "spin-wheel-service/internal/infra/redis"
	"spin-wheel-service/internal/logger"
	"spin-wheel-service/internal/metrics"
	transport "spin-wheel-service/internal/transport/http"
	"spin-wheel-service/internal/wheel"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the wheel server",
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
	log := logger.New(logConfig(cfg))
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
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
	redisTTL := config.DurationOr(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	service := newGameService(cfg, log, redisClient, redisTTL, wheelLoader(cfg, pool))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting wheel service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	// In-flight spins settle once their connections close; wait so their
	// final state is saved before the stores go away.
	service.Wait()
	return err
}

func newGameService(cfg config.Config, log *zap.Logger, redisClient *redis.Client, redisTTL time.Duration, loader memory.WheelLoader) *app.GameService {
	wheelTTL := config.DurationOr(cfg.Cache.TTL, 10*time.Minute)

	var (
		wheels   app.WheelRepository
		players  app.PlayerStore
		sessions app.SessionRepository
	)
	if redisClient != nil {
		wheels = redisinfra.NewWheelRepository(redisClient, loader, wheelTTL)
		players = redisinfra.NewPlayerStore(redisClient, redisTTL)
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		wheels = memory.NewWheelRepository(loader, wheelTTL)
		players = memory.NewPlayerStore(redisTTL)
		sessions = memory.NewSessionStore()
	}

	return app.NewGameService(wheels, players, sessions,
		app.WithRules(rulesFromConfig(cfg.Game)),
		app.WithSpinConfig(spinConfig(cfg.Spin)),
		app.WithFrameInterval(config.DurationOr(cfg.Spin.FrameInterval, wheel.DefaultFrameInterval)),
		app.WithSourceFactory(wheel.SeededFactory(cfg.Spin.Seed)),
		app.WithLogger(log),
		app.WithMetrics(metrics.Prometheus{}),
	)
}

// wheelLoader prefers Postgres, then wheels declared in the config file, then
// the built-in samples.
func wheelLoader(cfg config.Config, pool *pgxpool.Pool) memory.WheelLoader {
	if pool != nil {
		return pgloader.NewWheelLoader(pool)
	}
	if len(cfg.Wheels) > 0 {
		return memory.NewStaticWheelLoader(cfg.WheelMap())
	}
	return memory.NewStaticWheelLoader(sampleWheels())
}

func rulesFromConfig(g config.Game) app.Rules {
	return app.Rules{
		InitialPoints:   g.InitialPoints,
		InitialSpins:    g.InitialSpins,
		SpinCost:        g.SpinCost,
		JackpotAward:    g.JackpotAward,
		BonusMultiplier: g.BonusMultiplier,
		BonusSpins:      g.BonusSpins,
		FreeSpinsAward:  g.FreeSpinsAward,
		HistoryLimit:    g.HistoryLimit,
		RefillInterval:  config.DurationOr(g.RefillInterval, 0),
		RefillThreshold: g.RefillThreshold,
		RefillAmount:    g.RefillAmount,
	}
}

func spinConfig(s config.Spin) wheel.Config {
	def := wheel.DefaultConfig()
	cfg := wheel.Config{
		Duration:       config.DurationOr(s.Duration, def.Duration),
		MinRotations:   s.MinRotations,
		JitterFraction: def.JitterFraction,
	}
	if cfg.MinRotations == 0 {
		cfg.MinRotations = def.MinRotations
	}
	if s.JitterFraction != nil {
		cfg.JitterFraction = *s.JitterFraction
	}
	return cfg
}

// sampleWheels is served when neither Postgres nor the config declares wheels.
func sampleWheels() map[string]domain.Wheel {
	return map[string]domain.Wheel{
		"lucky": {
			ID:      "lucky",
			Name:    "Lucky Wheel",
			Variant: domain.VariantPrize,
			Segments: []domain.Segment{
				{Label: "100 POIN", Kind: domain.KindPoints, Points: 100, Color: "red", Weight: domain.Weight(20)},
				{Label: "200 POIN", Kind: domain.KindPoints, Points: 200, Color: "teal", Weight: domain.Weight(18)},
				{Label: "50 POIN", Kind: domain.KindPoints, Points: 50, Color: "yellow", Weight: domain.Weight(22)},
				{Label: "300 POIN", Kind: domain.KindPoints, Points: 300, Color: "green", Weight: domain.Weight(15)},
				{Label: "2X BONUS", Kind: domain.KindMultiplier, Color: "blue", Weight: domain.Weight(10)},
				{Label: "JACKPOT", Kind: domain.KindJackpot, Color: "pink", Weight: domain.Weight(5)},
				{Label: "SPIN GRATIS", Kind: domain.KindFreeSpins, Color: "purple", Weight: domain.Weight(5)},
				{Label: "25 POIN", Kind: domain.KindPoints, Points: 25, Color: "orange", Weight: domain.Weight(5)},
			},
		},
		"trivia": {
			ID:      "trivia",
			Name:    "Trivia Wheel",
			Variant: domain.VariantQuiz,
			Segments: []domain.Segment{
				{Label: "Math", Kind: domain.KindQuestion, QuestionID: "q1", Color: "red"},
				{Label: "Space", Kind: domain.KindQuestion, QuestionID: "q2", Color: "blue"},
			},
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{ID: "o1", Text: "3"},
						{ID: "o2", Text: "4", Correct: true},
						{ID: "o3", Text: "5"},
					},
					Points: 1,
				},
				{
					ID:     "q2",
					Prompt: "Which planet is closest to the sun?",
					Options: []domain.Option{
						{ID: "o1", Text: "Mercury", Correct: true},
						{ID: "o2", Text: "Venus"},
						{ID: "o3", Text: "Mars"},
					},
					Points: 2,
				},
			},
		},
		"categories": {
			ID:      "categories",
			Name:    "Category Wheel",
			Variant: domain.VariantCategoryQuiz,
			Segments: []domain.Segment{
				{Label: "Science", Kind: domain.KindCategory, Category: "science", Color: "green"},
				{Label: "History", Kind: domain.KindCategory, Category: "history", Color: "yellow"},
			},
			Questions: []domain.Question{
				{
					ID:       "s1",
					Category: "science",
					Prompt:   "What gas do plants absorb?",
					Options: []domain.Option{
						{ID: "a", Text: "Carbon dioxide", Correct: true},
						{ID: "b", Text: "Oxygen"},
					},
				},
				{
					ID:       "h1",
					Category: "history",
					Prompt:   "In which year did the Berlin Wall fall?",
					Options: []domain.Option{
						{ID: "a", Text: "1989", Correct: true},
						{ID: "b", Text: "1991"},
					},
				},
			},
		},
	}
}
