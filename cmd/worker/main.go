package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fablecourt/continuity/internal/queue"
	"github.com/fablecourt/continuity/internal/storage"
	"github.com/fablecourt/continuity/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fablecourt/continuity/pkg/ai"
	oll "github.com/fablecourt/continuity/pkg/ai/ollama"
	oai "github.com/fablecourt/continuity/pkg/ai/openai"
	"github.com/fablecourt/continuity/pkg/eval"
	"github.com/fablecourt/continuity/pkg/judge"
	"github.com/fablecourt/continuity/pkg/logger"
	"github.com/fablecourt/continuity/pkg/logger/console"
	storepgx "github.com/fablecourt/continuity/pkg/store/pgx"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	// Init s3 client
	s3Client := storage.NewS3Client(ctx)
	registry := storage.NewAssetRegistry(s3Client)

	// Judge client
	adapter := util.GetEnv("AI_ADAPTER")
	var aiClient ai.JudgeClient

	switch adapter {
	case "ollama":
		client, err := oll.NewJudgeOllamaClient(oll.NewJudgeOllamaClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			EvaluateModel: util.GetEnv("AI_EVALUATE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		aiClient = client
	default:
		aiClient = oai.NewJudgeOpenAIClient(oai.NewJudgeOpenAIClientParams{
			ClassifyModel: util.GetEnv("AI_CLASSIFY_MODEL"),
			EvaluateModel: util.GetEnv("AI_EVALUATE_MODEL"),

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			APIKey:  util.GetEnv("AI_CHAT_KEY"),
		})
	}

	j := judge.NewJudge(judge.NewJudgeParams{
		Client:            aiClient,
		RequestsPerSecond: util.GetEnvNumeric("JUDGE_RPS", 0),
		Timeout:           time.Duration(util.GetEnvInt("JUDGE_TIMEOUT_SECONDS", 120)) * time.Second,
		MaxRetries:        util.GetEnvInt("JUDGE_MAX_RETRIES", 2),
	})

	// Init pgx client
	pgConn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Unable to connect to database", "err", err)
	}
	defer pgConn.Close()
	st := storepgx.NewScenarioDBStorageWithConnection(pgConn)

	orchestrator := eval.NewOrchestrator(eval.NewOrchestratorParams{
		Judge:            j,
		Registry:         registry,
		Tracker:          eval.NewTracker(st),
		MaxPaths:         util.GetEnvInt("EVAL_MAX_PATHS", 0),
		ClassifyParallel: util.GetEnvInt("EVAL_CLASSIFY_PARALLEL", 4),
		PathParallel:     util.GetEnvInt("EVAL_PATH_PARALLEL", 4),
	})

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	// Init rabbitmq queues if not exist
	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	queues := []string{queue.EvaluateQueue}
	if err := queue.SetupQueues(ch, queues); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	if err := queue.RequeueInterruptedOperations(ctx, ch, st); err != nil {
		logger.Error("Failed to requeue interrupted operations", "err", err)
	}

	logger.Info("Listening for messages")

	// One consumer channel with prefetch=1 so only a single evaluation
	// runs at a time; path-level parallelism happens inside the job.
	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	err = consumerCh.Qos(1, 0, true)
	if err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	type queuedMessage struct {
		msg       amqp.Delivery
		queueName string
	}

	messageChan := make(chan queuedMessage)

	for _, queueName := range queues {
		go func(qName string) {
			consumerTag := fmt.Sprintf("%s_consumer", qName)
			msgs, err := consumerCh.Consume(
				qName,
				consumerTag,
				false, // autoAck
				false, // exclusive
				false, // noLocal
				false, // noWait
				nil,   // args
			)
			if err != nil {
				logger.Fatal("Failed to start consuming", "queue", qName, "err", err)
			}

			for {
				select {
				case <-ctx.Done():
					logger.Info("Stopping consumer", "queue", qName)
					return
				case msg, ok := <-msgs:
					if !ok {
						logger.Info("Message channel closed", "queue", qName)
						return
					}
					messageChan <- queuedMessage{msg: msg, queueName: qName}
				}
			}
		}(queueName)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case qm := <-messageChan:
				startTime := time.Now()
				logger.Info("Received message", "queue", qm.queueName)

				var processingErr error
				switch qm.queueName {
				case queue.EvaluateQueue:
					processingErr = queue.ProcessEvaluateMessage(ctx, orchestrator, st, string(qm.msg.Body))
				}

				// If there was an error send to retry or dead-letter, otherwise ack the message
				if processingErr != nil {
					logger.Error("Error processing message", "queue", qm.queueName, "err", processingErr)
					handleProcessingError(consumerCh, qm.msg, qm.queueName)
				} else {
					if err := qm.msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
					logger.Info("Message processed successfully", "queue", qm.queueName)
				}

				metrics := aiClient.GetMetrics()
				aiDuration := time.Duration(metrics.DurationMs) * time.Millisecond
				aiHours := int(aiDuration.Hours())
				aiMinutes := int(aiDuration.Minutes()) % 60
				aiSeconds := int(aiDuration.Seconds()) % 60
				logger.Info(
					"AI Metrics",
					"input_tokens", metrics.InputTokens,
					"output_tokens", metrics.OutputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", fmt.Sprintf("%02d:%02d:%02d", aiHours, aiMinutes, aiSeconds),
				)

				processingDuration := time.Since(startTime)
				hours := int(processingDuration.Hours())
				minutes := int(processingDuration.Minutes()) % 60
				seconds := int(processingDuration.Seconds()) % 60
				logger.Info(
					"Processing time",
					"duration", fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds),
				)
				logger.Info("Waiting for next message")
				aiClient.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the message goes to the dead-letter queue
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
