// Package scout writes short scouting blurbs for auction lots using a
// generative language model.
package scout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/auction-room/internal/config"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

const (
	// NoReport is returned when the model answers with no text.
	NoReport = "No scouting report available."
	// Unavailable is returned when the model cannot be reached.
	Unavailable = "Scout unavailable - but data suggests this player is a game changer."

	instrumentationName = "github.com/jensholdgaard/auction-room/internal/scout"
	maxErrorBody        = 512
)

// Reporter produces a scouting report for a player. It never fails; a
// fallback sentence stands in for any error.
type Reporter interface {
	Report(ctx context.Context, p roster.Player) string
}

// Static is a Reporter that always returns the same text.
type Static string

func (s Static) Report(context.Context, roster.Player) string { return string(s) }

// Client calls a generateContent endpoint.
type Client struct {
	http        *http.Client
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	logger      *slog.Logger
	tracer      trace.Tracer
}

// NewClient returns a Client for cfg. base may be nil to use
// http.DefaultTransport; it is wrapped with otelhttp either way.
func NewClient(cfg config.ScoutConfig, base http.RoundTripper, logger *slog.Logger, tp trace.TracerProvider) *Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		http: &http.Client{
			Transport: otelhttp.NewTransport(base, otelhttp.WithTracerProvider(tp)),
			Timeout:   cfg.Timeout,
		},
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		logger:      logger,
		tracer:      tp.Tracer(instrumentationName),
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Report asks the model for a two-sentence report on p.
func (c *Client) Report(ctx context.Context, p roster.Player) string {
	ctx, span := c.tracer.Start(ctx, "Client.Report",
		trace.WithAttributes(
			attribute.String("player.id", p.ID),
			attribute.String("scout.model", c.model),
		),
	)
	defer span.End()

	text, err := c.generate(ctx, Prompt(p))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.WarnContext(ctx, "scout request failed",
			slog.String("player_id", p.ID),
			slog.Any("error", err),
		)
		return Unavailable
	}
	if text == "" {
		return NoReport
	}
	return text
}

// Prompt is the instruction sent for p.
func Prompt(p roster.Player) string {
	stats, _ := json.Marshal(p.Stats)
	return fmt.Sprintf("Provide a brief, witty, 2-sentence scouting report for the IPL player %s.\n"+
		"Stats: %s. Role: %s.\n"+
		"Keep it energetic and professional for a cricket auction.", p.Name, stats, p.Role)
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("model returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	c.logger.DebugContext(ctx, "scout report generated", slog.Duration("took", time.Since(start)))

	if len(out.Candidates) == 0 {
		return "", nil
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}
