package openai

import (
	"sync"

	"github.com/fablecourt/continuity/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// JudgeOpenAIClient implements ai.JudgeClient against an OpenAI-compatible
// chat completion endpoint.
type JudgeOpenAIClient struct {
	classifyModel string
	evaluateModel string

	baseURL string
	apiKey  string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	ChatClient *openai.Client
}

// NewJudgeOpenAIClientParams defines the configuration for creating a new
// JudgeOpenAIClient. ClassifyModel is used for per-scene entity
// classification, EvaluateModel for whole-path consistency evaluation.
type NewJudgeOpenAIClientParams struct {
	ClassifyModel string
	EvaluateModel string

	BaseURL string
	APIKey  string
}

// NewJudgeOpenAIClient creates and returns a new JudgeOpenAIClient
// configured with the provided parameters.
func NewJudgeOpenAIClient(params NewJudgeOpenAIClientParams) *JudgeOpenAIClient {
	opts := []option.RequestOption{}
	if params.APIKey != "" {
		opts = append(opts, option.WithAPIKey(params.APIKey))
	}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &JudgeOpenAIClient{
		classifyModel: params.ClassifyModel,
		evaluateModel: params.EvaluateModel,

		baseURL: params.BaseURL,
		apiKey:  params.APIKey,

		ChatClient: &client,
	}
}

func (c *JudgeOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *JudgeOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated model metrics.
func (c *JudgeOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
