// Package ai classifies chat messages and answers questions with a
// generative model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GetStream/chat-assistant-backend/chatapp"
	"github.com/GetStream/chat-assistant-backend/metrics"
	"google.golang.org/genai"
)

// A Generator produces content from a model. *genai.Models implements it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the model calls.
type Config struct {
	Model string
	// Temperature is the sampling temperature, DefaultTemperature when nil.
	Temperature *float32
}

const (
	DefaultModel       = "gemini-2.0-flash"
	DefaultTemperature = 0.4
)

var errNoText = errors.New("response has no text")

// Service answers questions using a Generator.
type Service struct {
	Logger *slog.Logger
	gen    Generator
	cfg    Config
}

// New returns a Service calling gen. Unset fields of cfg are replaced with
// their defaults.
func New(gen Generator, cfg Config, logger *slog.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == nil {
		cfg.Temperature = genai.Ptr[float32](DefaultTemperature)
	}
	return &Service{Logger: logger, gen: gen, cfg: cfg}
}

// Predict sends prompt as a single user turn and returns the text of the
// first part of the first candidate.
func (s *Service) Predict(ctx context.Context, prompt string) (string, error) {
	return s.predict(ctx, "raw", prompt)
}

func (s *Service) predict(ctx context.Context, name, prompt string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.PredictionDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := s.gen.GenerateContent(ctx, s.cfg.Model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(*s.cfg.Temperature),
	})
	if err != nil {
		metrics.Predictions.WithLabelValues(name, "error").Inc()
		return "", &chatapp.PredictionError{Prompt: name, Err: err}
	}

	text, err := firstText(resp)
	if err != nil {
		metrics.Predictions.WithLabelValues(name, "empty").Inc()
		return "", &chatapp.PredictionError{Prompt: name, Err: err}
	}
	metrics.Predictions.WithLabelValues(name, "ok").Inc()
	s.Logger.Debug("Prediction", "prompt", name, "duration", time.Since(start))
	return text, nil
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates: %w", errNoText)
	}
	c := resp.Candidates[0].Content
	if c == nil || len(c.Parts) == 0 || c.Parts[0] == nil {
		return "", fmt.Errorf("no parts: %w", errNoText)
	}
	return c.Parts[0].Text, nil
}

// IsQuestion asks the model whether text is a question. Any response
// containing "yes", in any case, counts as a question. Note this also
// matches words such as "yesterday".
func (s *Service) IsQuestion(ctx context.Context, text string) (bool, error) {
	resp, err := s.predict(ctx, "classify", classifyPrompt(text))
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(resp), "yes"), nil
}

// Answer answers question using only the texts of history as context.
func (s *Service) Answer(ctx context.Context, question string, history []chatapp.Message) (string, error) {
	return s.predict(ctx, "answer", answerPrompt(question, history))
}
