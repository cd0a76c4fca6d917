package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fablecourt/continuity/internal/queue"
	mid "github.com/fablecourt/continuity/internal/server/middleware"
	"github.com/fablecourt/continuity/internal/storage"
	"github.com/fablecourt/continuity/internal/util"
	"github.com/fablecourt/continuity/pkg/ai"
	oll "github.com/fablecourt/continuity/pkg/ai/ollama"
	oai "github.com/fablecourt/continuity/pkg/ai/openai"
	"github.com/fablecourt/continuity/pkg/eval"
	"github.com/fablecourt/continuity/pkg/judge"
	"github.com/fablecourt/continuity/pkg/logger"
	storepgx "github.com/fablecourt/continuity/pkg/store/pgx"

	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewJudgeClient creates the configured model client for semantic
// judgment, Ollama or OpenAI-compatible depending on AI_ADAPTER.
func NewJudgeClient() ai.JudgeClient {
	adapter := util.GetEnv("AI_ADAPTER")

	switch adapter {
	case "ollama":
		client, err := oll.NewJudgeOllamaClient(oll.NewJudgeOllamaClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			EvaluateModel: util.GetEnv("AI_EVALUATE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Failed to create Ollama client", "err", err)
		}
		return client
	default:
		return oai.NewJudgeOpenAIClient(oai.NewJudgeOpenAIClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			EvaluateModel: util.GetEnv("AI_EVALUATE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
	}
}

func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	databaseURL := util.GetEnv("DATABASE_URL")
	if err := storepgx.RunMigrations(util.GetEnvString("MIGRATIONS_URL", "file://migrations"), databaseURL); err != nil {
		logger.Fatal("Failed to run migrations", "err", err)
	}

	conn, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()
	st := storepgx.NewScenarioDBStorageWithConnection(conn)

	que := queue.Init()
	defer que.Close()
	ch, err := que.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	if err := queue.SetupQueues(ch, []string{queue.EvaluateQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	s3 := storage.NewS3Client(ctx)
	registry := storage.NewAssetRegistry(s3)

	j := judge.NewJudge(judge.NewJudgeParams{
		Client:            NewJudgeClient(),
		RequestsPerSecond: util.GetEnvNumeric("JUDGE_RPS", 0),
		Timeout:           time.Duration(util.GetEnvInt("JUDGE_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:        util.GetEnvInt("JUDGE_MAX_RETRIES", 2),
	})

	orchestrator := eval.NewOrchestrator(eval.NewOrchestratorParams{
		Judge:            j,
		Registry:         registry,
		Tracker:          eval.NewTracker(st),
		MaxPaths:         util.GetEnvInt("EVAL_MAX_PATHS", 0),
		ClassifyParallel: util.GetEnvInt("EVAL_CLASSIFY_PARALLEL", 4),
		PathParallel:     util.GetEnvInt("EVAL_PATH_PARALLEL", 4),
	})

	app := &mid.App{
		DBConn:       conn,
		Queue:        ch,
		S3:           s3,
		Storage:      st,
		Orchestrator: orchestrator,
		APIKey:       util.GetEnv("API_KEY"),
	}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("32M"))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
