package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
)

func TestImageFormat(t *testing.T) {
	tests := map[string]string{
		"":           "jpeg",
		"image/jpeg": "jpeg",
		"image/PNG":  "png",
	}
	for input, expected := range tests {
		if got := imageFormat(input); got != expected {
			t.Errorf("imageFormat(%q): expected %s, got %s", input, expected, got)
		}
	}
}

func TestDescribeRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New().Describe(context.Background(), providers.Config{Model: "gemini-1.5-flash"})
	if err == nil || !strings.Contains(err.Error(), "GEMINI_API_KEY") {
		t.Errorf("Expected missing key error, got %v", err)
	}
}

func TestDescribeRequiresPhoto(t *testing.T) {
	g := &Gemini{APIKey: "test-key"}
	_, err := g.Describe(context.Background(), providers.Config{Model: "gemini-1.5-flash"})
	if err == nil || !strings.Contains(err.Error(), "photo bytes") {
		t.Errorf("Expected missing photo error, got %v", err)
	}
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name:    "no content",
			resp:    &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}},
			wantErr: true,
		},
		{
			name: "single part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"name":"pizza","calories":285}`)}}},
			}},
			want: `{"name":"pizza","calories":285}`,
		},
		{
			name: "split parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"name":"apple",`), genai.Text(`"calories":52}`)}}},
			}},
			want: `{"name":"apple","calories":52}`,
		},
		{
			name: "blank text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if tt.wantErr {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Errorf("Expected ErrEmptyResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
