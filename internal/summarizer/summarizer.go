// Package summarizer turns a radiology report, tumor measurements and the
// lab-based stage into a short narrative report using an LLM.
package summarizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pancstage/pancstage/schema"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const systemPrompt = "You are an oncology assistant writing a concise patient report summary for a clinician. Respond in Markdown only."

// DefaultModel is used when no summarizer model is configured.
const DefaultModel = anthropic.ModelClaudeSonnet4_20250514

// missingReport replaces an empty radiology report.
const missingReport = "Radiology report text was not provided."

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("summarizer returned an empty response")

// LLMCaller generates a completion for a prompt.
type LLMCaller interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// AnthropicMessager is the subset of the Anthropic client used here.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClientCreator builds a messages client for an API key.
type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

// AnthropicCaller implements LLMCaller with the Anthropic Messages API.
type AnthropicCaller struct {
	messages AnthropicMessager
	model    anthropic.Model
}

var _ LLMCaller = &AnthropicCaller{} // Compile-time check

// NewAnthropicCallerFromEnv reads ANTHROPIC_API_KEY and returns a caller for model.
// An empty model selects DefaultModel.
func NewAnthropicCallerFromEnv(model string) (*AnthropicCaller, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	m := anthropic.Model(strings.TrimSpace(model))
	if m == "" {
		m = DefaultModel
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey), model: m}, nil
}

// Generate sends the prompt and concatenates the text blocks of the reply.
func (a *AnthropicCaller) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   2048,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// Input is everything the narrative report is built from.
type Input struct {
	ReportText  string
	Measurement *schema.TumorMeasurement // nil when no segmentation was run
	Prediction  schema.Prediction
}

// Summary is the generated report in Markdown and rendered HTML.
type Summary struct {
	Prompt   string `json:"-"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

// BuildPrompt assembles the report, measurements and predicted stage together
// with the task and rule list the model must follow.
func BuildPrompt(in Input) string {
	report := strings.TrimSpace(in.ReportText)
	if report == "" {
		report = missingReport
	}

	var sb strings.Builder
	sb.WriteString("## Radiology Report\n\n")
	sb.WriteString(report)
	sb.WriteString("\n\n## AI Predictions (use as given)\n\n")
	if in.Measurement != nil {
		fmt.Fprintf(&sb, "- Tumor volume: %.2f mL\n", in.Measurement.VolumeML())
		fmt.Fprintf(&sb, "- Tumor maximum diameter: %.2f mm\n", in.Measurement.MaxDiameterMM)
	} else {
		sb.WriteString("- Tumor imaging measurements: not available\n")
	}
	fmt.Fprintf(&sb, "- Lab-based predicted stage: %s\n", in.Prediction.Stage)
	fmt.Fprintf(&sb, "- Lab-based survival estimate: %s\n", in.Prediction.Survival.Text)

	sb.WriteString(`
## Tasks

1. Quote only the exact phrases from the report that indicate tumor or malignancy, in **bold**.
2. Briefly summarize tumor size and extent using the provided imaging values.
3. Briefly restate the lab-based stage prediction.
4. Provide concise clinical recommendations in bullet points.

## Rules

- Do not validate, compare, or question predictions
- No TNM or staging logic
- No inconsistency analysis
- Markdown only, start with a level-two heading
`)
	return sb.String()
}

// Summarize builds the prompt, calls the model and renders its answer.
func Summarize(ctx context.Context, caller LLMCaller, in Input) (*Summary, error) {
	prompt := BuildPrompt(in)
	raw, err := caller.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("summarizer request failed: %w", err)
	}
	markdown := stripCodeFences(raw)
	if markdown == "" {
		return nil, ErrEmptyResponse
	}

	rendered, err := RenderHTML(markdown)
	if err != nil {
		return nil, err
	}
	return &Summary{Prompt: prompt, Markdown: markdown, HTML: rendered}, nil
}

// RenderHTML converts GitHub-flavored Markdown to an HTML fragment.
func RenderHTML(markdown string) (string, error) {
	var out bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return out.String(), nil
}

// stripCodeFences removes a surrounding ``` block some models wrap answers in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if _, rest, ok := strings.Cut(s, "\n"); ok {
		s = rest
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// HTMLDocument wraps a rendered fragment in a standalone HTML page.
func HTMLDocument(title, body string) string {
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>body{font-family:sans-serif;max-width:860px;margin:2rem auto;line-height:1.5;}</style>" +
		"</head><body>" + body + "</body></html>\n"
}
