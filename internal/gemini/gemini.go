package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/snapcatalog/internal/providers"
	"google.golang.org/api/option"
)

// ErrEmptyResponse means Gemini answered without any text to parse.
var ErrEmptyResponse = errors.New("gemini returned no text")

// Gemini labels photos with a Gemini vision model. The key is read from
// GEMINI_API_KEY when APIKey is empty.
type Gemini struct {
	APIKey string
}

// New returns a Gemini backend that reads its key from the environment.
func New() *Gemini {
	return &Gemini{}
}

// Describe sends the photo followed by the label prompt and returns the
// model's JSON answer.
func (g *Gemini) Describe(ctx context.Context, config providers.Config) (string, error) {
	apiKey := g.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return "", errors.New("gemini backend needs GEMINI_API_KEY")
	}
	if len(config.Image) == 0 {
		return "", errors.New("gemini backend needs photo bytes")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(config.Model)
	model.SetTemperature(float32(config.Temperature))
	model.SetCandidateCount(1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(config.MimeType), config.Image),
		genai.Text(config.Prompt),
	)
	if err != nil {
		return "", fmt.Errorf("gemini label request: %w", err)
	}
	return responseText(resp)
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, candidate.FinishReason)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, candidate.FinishReason)
	}
	return sb.String(), nil
}

// imageFormat turns "image/png" into the "png" genai.ImageData expects.
func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(mimeType), "image/")
	if format == "" {
		return "jpeg"
	}
	return format
}
