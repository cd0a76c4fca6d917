package ollama

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/fablecourt/continuity/pkg/ai"

	"github.com/ollama/ollama/api"
)

// JudgeOllamaClient implements ai.JudgeClient against a locally hosted
// Ollama server.
type JudgeOllamaClient struct {
	classifyModel string
	evaluateModel string

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	Client *api.Client
}

// NewJudgeOllamaClientParams contains configuration options for creating a
// new JudgeOllamaClient.
type NewJudgeOllamaClientParams struct {
	ClassifyModel string
	EvaluateModel string

	BaseURL string
	APIKey  string
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewJudgeOllamaClient creates a new Ollama-based judge client. It connects
// to the Ollama server at the given BaseURL (or the default if empty) and
// uses the configured models for classification and path evaluation.
func NewJudgeOllamaClient(params NewJudgeOllamaClientParams) (*JudgeOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.APIKey,
			},
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	return &JudgeOllamaClient{
		classifyModel: params.ClassifyModel,
		evaluateModel: params.EvaluateModel,

		baseURL:    u,
		apiKey:     params.APIKey,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

func (c *JudgeOllamaClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears the accumulated model metrics.
func (c *JudgeOllamaClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the accumulated model metrics.
func (c *JudgeOllamaClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
