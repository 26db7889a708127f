package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	aiplatform "google.golang.org/api/aiplatform/v1"
	goption "google.golang.org/api/option"

	"spesacasa/internal/ai"
	"spesacasa/internal/core"
)

// testClient serves generateContent with text as the single candidate.
func testClient(t *testing.T, text string, capture *request) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/publishers/google/models/test-model:generateContent") {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		if capture != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, capture)
		}
		resp := answer{Candidates: []*aiplatform.GoogleCloudAiplatformV1Candidate{{
			Content: &content{Role: "model", Parts: []*part{{Text: text}}},
		}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	svc, err := aiplatform.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatal(err)
	}
	return NewWithService(svc, "test-model", nil)
}

func TestCategorize(t *testing.T) {
	var req request
	c := testClient(t, " Groceries.\n", &req)
	got, err := c.Categorize(context.Background(), "Latte", "Coop")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Groceries" {
		t.Fatalf("Categorize() = %q", got)
	}
	if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "Latte") {
		t.Fatalf("prompt missing product: %+v", req.Contents)
	}
	if req.GenerationConfig != nil {
		t.Fatalf("plain text call should not force JSON")
	}
}

func TestParseReceipt(t *testing.T) {
	var req request
	body := "```json\n" + `{"store":"Coop","date":"2024-05-09","items":[{"product":"Latte","quantity":2,"unitPrice":1.2,"total":2.4,"category":"Groceries"}]}` + "\n```"
	c := testClient(t, body, &req)

	r, err := c.ParseReceipt(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if r.Store != "Coop" || len(r.Items) != 1 || r.Items[0].Total != core.Cents(240) {
		t.Fatalf("unexpected receipt %+v", r)
	}
	parts := req.Contents[0].Parts
	if len(parts) != 2 || parts[1].InlineData == nil || parts[1].InlineData.MimeType != "image/png" {
		t.Fatalf("image not attached: %+v", parts)
	}
	if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
		t.Fatalf("JSON mode not requested")
	}
}

func TestParseReceiptBadJSON(t *testing.T) {
	c := testClient(t, "sorry, I cannot read this", nil)
	if _, err := c.ParseReceipt(context.Background(), []byte("x"), "image/jpeg"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestFindOffers(t *testing.T) {
	c := testClient(t, `[{"storeName":"Lidl","flyerLink":"https://lidl.example/f","topOffers":["Mele 1.29/kg"]}]`, nil)
	got, err := c.FindOffers(context.Background(), "Milano", []string{"Lidl"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].StoreName != "Lidl" || len(got[0].TopOffers) != 1 {
		t.Fatalf("unexpected offers %+v", got)
	}
}

func TestEmptyResponse(t *testing.T) {
	c := testClient(t, "   ", nil)
	if _, err := c.AnalyzeSpending(context.Background(), nil); !errors.Is(err, errEmptyResponse) {
		t.Fatalf("expected errEmptyResponse, got %v", err)
	}
}

func TestNewWithoutKey(t *testing.T) {
	if _, err := New(context.Background(), "", "", nil); !errors.Is(err, ai.ErrUnavailable) {
		t.Fatalf("expected ai.ErrUnavailable, got %v", err)
	}
}

func TestModelName(t *testing.T) {
	if got := modelName("gemini-2.5-flash"); got != "publishers/google/models/gemini-2.5-flash" {
		t.Errorf("modelName(bare) = %q", got)
	}
	if got := modelName("publishers/acme/models/x"); got != "publishers/acme/models/x" {
		t.Errorf("modelName(full) = %q", got)
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]string{
		"{}":                     "{}",
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n[]\n```":           "[]",
		"  plain  ":              "plain",
	}
	for in, want := range tests {
		if got := stripFences(in); got != want {
			t.Errorf("stripFences(%q) = %q, want %q", in, got, want)
		}
	}
}
