package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mkuzmin/askdoc/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds a client for the Ollama HTTP API. executor may be nil; calls
// then run without retry or breaker protection.
func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// Generator adapts the client to the language-model port.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return g.client.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}

	var err error
	if g.client.executor != nil {
		err = g.client.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}

// CompleteStream runs a single streamed generation. Streamed calls bypass
// the retry executor: a retry after forwarded fragments would replay them.
func (g *Generator) CompleteStream(
	ctx context.Context,
	prompt string,
	onFragment func(string) error,
) (string, error) {
	reqBody := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": true,
	}

	var full strings.Builder
	err := g.client.postStream(ctx, "/api/generate", reqBody, "generate_stream", func(fragment string) error {
		full.WriteString(fragment)
		if onFragment == nil {
			return nil
		}
		return onFragment(fragment)
	})
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate_stream", err)
	}
	return full.String(), nil
}

// Embedder adapts the client to the embedding port.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	reqBody := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", reqBody, &response, "embed")
	}

	var err error
	if e.client.executor != nil {
		err = e.client.executor.Execute(ctx, "ollama.embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
