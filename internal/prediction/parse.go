package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/snapcatalog/internal/models"
)

type labelResponse struct {
	Name     string   `json:"name"`
	Calories *float64 `json:"calories"`
}

// buildLabelPrompt asks a vision model for the same body the inference
// endpoint returns.
func buildLabelPrompt() string {
	return `You are a nutrition assistant. Identify the main food item in this photo and estimate its calories for the portion shown.

OUTPUT FORMAT:
Respond with ONLY a JSON object in the following format:

{"name": "pizza", "calories": 285}

"name" is a short, lower-case common food name. "calories" is a number (kcal) with no units.
If several distinct foods are visible, respond with a JSON array of such objects, most prominent first.`
}

// ParseLabels parses {"name","calories"} or an array of them, optionally
// wrapped in a Markdown code fence.
func ParseLabels(response string) ([]models.Label, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if response == "" {
		return nil, errors.New("empty prediction response")
	}

	var items []labelResponse
	if strings.HasPrefix(response, "[") {
		if err := json.Unmarshal([]byte(response), &items); err != nil {
			return nil, fmt.Errorf("malformed prediction response: %w", err)
		}
	} else {
		var item labelResponse
		if err := json.Unmarshal([]byte(response), &item); err != nil {
			return nil, fmt.Errorf("malformed prediction response: %w", err)
		}
		items = []labelResponse{item}
	}

	if len(items) == 0 {
		return nil, errors.New("prediction response contained no labels")
	}

	labels := make([]models.Label, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, fmt.Errorf("malformed prediction response: label %d has no name", i)
		}
		if item.Calories == nil {
			return nil, fmt.Errorf("malformed prediction response: label %q has no calories", name)
		}
		labels = append(labels, models.Label{Name: name, Value: *item.Calories})
	}
	return labels, nil
}
