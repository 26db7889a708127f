// Package gemini implements ai.Service and offers.Finder on the Vertex AI
// generateContent API, authenticated with an express mode API key.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	aiplatform "google.golang.org/api/aiplatform/v1"
	goption "google.golang.org/api/option"

	"spesacasa/internal/ai"
	"spesacasa/internal/core"
	"spesacasa/internal/log"
	"spesacasa/internal/offers"
	"spesacasa/internal/views"
)

// DefaultModel is used when none is configured.
const DefaultModel = "gemini-2.5-flash"

var (
	_ ai.Service    = (*Client)(nil)
	_ offers.Finder = (*Client)(nil)
)

var errEmptyResponse = errors.New("empty model response")

type (
	part    = aiplatform.GoogleCloudAiplatformV1Part
	blob    = aiplatform.GoogleCloudAiplatformV1Blob
	content = aiplatform.GoogleCloudAiplatformV1Content
	request = aiplatform.GoogleCloudAiplatformV1GenerateContentRequest
	answer  = aiplatform.GoogleCloudAiplatformV1GenerateContentResponse
)

type Client struct {
	svc   *aiplatform.Service
	model string
	log   *slog.Logger
}

// New authenticates with an API key. An empty key yields ai.ErrUnavailable
// so callers can fall back to a nil service.
func New(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ai.ErrUnavailable
	}
	svc, err := aiplatform.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini service: %w", err)
	}
	return NewWithService(svc, model, logger), nil
}

func NewWithService(svc *aiplatform.Service, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{svc: svc, model: model, log: log.WithComponent(logger, log.ComponentAI)}
}

func (c *Client) Categorize(ctx context.Context, product, store string) (string, error) {
	prompt := fmt.Sprintf(
		"Classify this household purchase into one short expense category name "+
			"(for example Groceries, Home, Transport, Health, Dining, Fun). "+
			"Reply with the category name only.\nProduct: %s\nStore: %s", product, store)
	text, err := c.generate(ctx, false, &part{Text: prompt})
	if err != nil {
		return "", err
	}
	return strings.Trim(strings.TrimSpace(text), `."'`), nil
}

func (c *Client) AnalyzeSpending(ctx context.Context, expenses []core.Expense) (string, error) {
	var b strings.Builder
	b.WriteString("Give a short, friendly analysis of this household's spending with one or two saving tips.\n")
	fmt.Fprintf(&b, "Total: %s over %d purchases\n", views.Total(expenses), len(expenses))
	for _, cat := range views.ByCategory(expenses, views.TopCategories) {
		fmt.Fprintf(&b, "- %s: %s\n", cat.Name, cat.Amount)
	}
	for _, st := range views.ByStore(expenses) {
		fmt.Fprintf(&b, "- store %s: %s\n", st.Name, st.Amount)
	}
	return c.generate(ctx, false, &part{Text: b.String()})
}

func (c *Client) ParseReceipt(ctx context.Context, image []byte, mimeType string) (*ai.Receipt, error) {
	prompt := "Read this shopping receipt. Answer with JSON only: " +
		`{"store": string, "date": "YYYY-MM-DD", "items": [{"product": string, "quantity": number, "unitPrice": number, "total": number, "category": string}]}`
	text, err := c.generate(ctx, true,
		&part{Text: prompt},
		&part{InlineData: &blob{MimeType: mimeType, Data: base64.StdEncoding.EncodeToString(image)}})
	if err != nil {
		return nil, err
	}
	var r ai.Receipt
	if err := json.Unmarshal([]byte(stripFences(text)), &r); err != nil {
		return nil, fmt.Errorf("decode receipt: %w", err)
	}
	return &r, nil
}

func (c *Client) FindOffers(ctx context.Context, city string, stores []string) ([]offers.Offer, error) {
	prompt := fmt.Sprintf("List the current promotional flyers for these supermarkets in %s: %s. "+
		`Answer with a JSON array only: [{"storeName": string, "flyerLink": string, "validUntil": "YYYY-MM-DD", "topOffers": [string]}]`,
		city, strings.Join(stores, ", "))
	text, err := c.generate(ctx, true, &part{Text: prompt})
	if err != nil {
		return nil, err
	}
	var out []offers.Offer
	if err := json.Unmarshal([]byte(stripFences(text)), &out); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, jsonOut bool, parts ...*part) (string, error) {
	req := &request{
		Contents: []*content{{Role: "user", Parts: parts}},
	}
	if jsonOut {
		req.GenerationConfig = &aiplatform.GoogleCloudAiplatformV1GenerationConfig{ResponseMimeType: "application/json"}
	}
	resp, err := c.svc.Publishers.Models.GenerateContent(modelName(c.model), req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errEmptyResponse
	}
	c.log.DebugContext(ctx, "Model answered", "model", c.model, "chars", len(text))
	return text, nil
}

// modelName expands a bare model id to its publisher resource name.
func modelName(model string) string {
	if strings.HasPrefix(model, "publishers/") {
		return model
	}
	return "publishers/google/models/" + model
}

func responseText(resp *answer) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range cand.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}
	return ""
}

// stripFences removes a ```json ... ``` wrapper some models add even in
// JSON mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
