package translate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/Mulet-J/desktopeye/config"
	"github.com/Mulet-J/desktopeye/errors"
	"github.com/Mulet-J/desktopeye/provider"
	"github.com/Mulet-J/desktopeye/resilience"
)

const systemPrompt = "You are a translation engine. Translate the user's text and reply with the translation only, without notes or quotes."

// LLMTranslator asks an OpenAI-compatible chat endpoint for translations.
// Loading lists the server's models and settles which one to use: the
// configured model must exist, and with none configured the first model
// served is taken.
type LLMTranslator struct {
	cfg     config.LLMConfig
	client  openai.Client
	breaker *resilience.CircuitBreaker
	gate    provider.LoadGate

	mu    sync.RWMutex
	model string
}

// NewLLMTranslator creates a client for cfg. httpClient may be nil.
func NewLLMTranslator(cfg config.LLMConfig, httpClient *http.Client) *LLMTranslator {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL(cfg.BaseURL)))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &LLMTranslator{
		cfg:     cfg,
		client:  openai.NewClient(opts...),
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("llm")),
	}
}

// Model returns the model settled by the last successful load.
func (l *LLMTranslator) Model() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.model
}

// LoadRequired resolves the model. modelHint, when set, overrides the
// configured model.
func (l *LLMTranslator) LoadRequired(ctx context.Context, modelHint string) (bool, error) {
	return l.gate.Load(ctx, func(ctx context.Context) (bool, error) {
		want := l.cfg.Model
		if modelHint != "" {
			want = modelHint
		}

		page, err := l.client.Models.List(ctx)
		if err != nil {
			return false, err
		}
		model := ""
		for _, m := range page.Data {
			if want == "" || m.ID == want {
				model = m.ID
				break
			}
		}
		if model == "" {
			if want == "" {
				return false, fmt.Errorf("server at %s serves no models", l.cfg.BaseURL)
			}
			return false, fmt.Errorf("model %q is not served at %s", want, l.cfg.BaseURL)
		}

		l.mu.Lock()
		l.model = model
		l.mu.Unlock()
		return true, nil
	})
}

func (l *LLMTranslator) Translate(ctx context.Context, text string, source, target language.Tag) (string, error) {
	if ok, err := l.LoadRequired(ctx, ""); !ok {
		return "", loadError(LLM, err)
	}

	var out string
	err := l.breaker.Execute(func() error {
		resp, err := l.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: l.Model(),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(instruction(text, source, target)),
			},
			Temperature: openai.Float(0),
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}
		out = strings.TrimSpace(resp.Choices[0].Message.Content)
		return nil
	})
	switch {
	case err == nil:
		return out, nil
	case errors.IsContext(err):
		return "", errors.FromContext(err)
	case errors.Is(err, errors.ErrCodeServiceUnavailable):
		return "", err
	default:
		return "", errors.ExternalServiceError("llm", err)
	}
}

func (l *LLMTranslator) Close() error { return nil }

// instruction phrases the request with English language names, which chat
// models follow more reliably than BCP 47 codes.
func instruction(text string, source, target language.Tag) string {
	names := display.English.Tags()
	if undetermined(source) {
		return fmt.Sprintf("Translate into %s:\n\n%s", names.Name(target), text)
	}
	return fmt.Sprintf("Translate from %s into %s:\n\n%s", names.Name(source), names.Name(target), text)
}

// baseURL makes sure the endpoint ends in a slash so request paths are
// joined beneath it.
func baseURL(u string) string {
	if strings.HasSuffix(u, "/") {
		return u
	}
	return u + "/"
}
