package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/classpulse/classpulse-api/internal/models"
	"github.com/classpulse/classpulse-api/pkg/config"
)

// Client talks to the Gemini generative language REST API. The service
// is treated as non-deterministic and potentially slow or unavailable;
// every call is bounded by the injected HTTP timeout and callers are
// expected to wrap invocations in their own deadline.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
}

// New constructs a Gemini client from configuration.
func New(cfg config.GeminiConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-pro"
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// AnalyzeMoodData asks the model for a structured reading of the raw
// class mood entries.
func (c *Client) AnalyzeMoodData(ctx context.Context, entries []models.MoodEntry) (*models.MoodAnalysis, error) {
	moodData := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		moodData = append(moodData, map[string]interface{}{
			"user_id":   e.UserID,
			"mood":      e.Mood,
			"score":     e.Score,
			"timestamp": e.Timestamp.Format(time.RFC3339),
		})
	}
	encoded, err := json.Marshal(moodData)
	if err != nil {
		return nil, fmt.Errorf("encode mood data: %w", err)
	}

	prompt := fmt.Sprintf(`Analyze the following student mood survey data:
%s

Extract:
1. The overall class atmosphere
2. Prominent mood trends
3. Notable points
4. Teaching strategy recommendations

Answer as JSON:
{
    "general_atmosphere": "string",
    "mood_trends": ["string"],
    "notable_points": ["string"],
    "teaching_recommendations": ["string"]
}`, encoded)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var analysis models.MoodAnalysis
	if err := decodeJSONText(text, &analysis); err != nil {
		// Keep the verbatim reply when it is not valid JSON.
		return &models.MoodAnalysis{RawAnalysis: text}, nil
	}
	return &analysis, nil
}

type templatePlan struct {
	Sections []string
	Style    string
}

var templatePlans = map[models.TemplateType]templatePlan{
	models.TemplateBalanced: {
		Sections: []string{"Introduction", "Topic Review", "Student Participation", "Practical Applications", "Conclusion"},
		Style:    "Balanced and interactive",
	},
	models.TemplateInteractive: {
		Sections: []string{"Opening Question", "Concept Map", "Group Activities", "Discussion", "Summary"},
		Style:    "Focused on active participation",
	},
	models.TemplateVisual: {
		Sections: []string{"Visual Introduction", "Infographic", "Video Integration", "Visual Summaries", "Closing"},
		Style:    "Visually driven",
	},
}

// GeneratePresentation asks the model to build lesson content shaped
// by the mood analysis, the subject/topic, and the template type.
func (c *Client) GeneratePresentation(ctx context.Context, analysis *models.MoodAnalysis, subject, topic string, template models.TemplateType) (*models.PresentationContent, error) {
	plan, ok := templatePlans[template]
	if !ok {
		plan = templatePlans[models.TemplateBalanced]
	}

	atmosphere := analysis.GeneralAtmosphere
	if atmosphere == "" {
		atmosphere = "normal"
	}

	prompt := fmt.Sprintf(`Prepare a %s lesson presentation using the following context:

Topic: %s
Class atmosphere: %s
Teaching recommendations: %s

Presentation structure: %s
Presentation style: %s

For each section provide:
1. A title
2. Content suggestions
3. Activity/interaction ideas
4. Visual suggestions

Return JSON:
{
    "title": "string",
    "sections": [
        {
            "title": "string",
            "content": "string",
            "activities": ["string"],
            "visual_suggestions": ["string"]
        }
    ]
}`, subject, topic, atmosphere, strings.Join(analysis.TeachingRecommendations, "; "), strings.Join(plan.Sections, ", "), plan.Style)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var presentation models.PresentationContent
	if err := decodeJSONText(text, &presentation); err != nil {
		return &models.PresentationContent{RawContent: text}, nil
	}
	return &presentation, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gemini api key not configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d: %s", resp.StatusCode, truncate(string(payload), 256))
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}

// decodeJSONText tolerates markdown code fences around the JSON body.
func decodeJSONText(text string, dest interface{}) error {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return json.Unmarshal([]byte(trimmed), dest)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
