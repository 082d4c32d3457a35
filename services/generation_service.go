package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"

	"boldlyAPI/internal/apperr"
	"boldlyAPI/internal/types/challenge"
	"boldlyAPI/internal/types/user"
)

// ChallengeGenerator produces challenge proposals from a difficulty tier and
// the user's personalization ratings.
type ChallengeGenerator interface {
	GenerateChallenge(ctx context.Context, difficulty challenge.Difficulty, ratings user.Ratings) (title, description string, tags []string, err error)
}

const generationPrompt = `You write short personal challenges for "Boldly", a social app where
users dare themselves to do real-world activities and post proof.

Difficulty tier: %s (%s).
The user rated their interests 1-5: adventure=%d, creativity=%d, social=%d, fitness=%d, learning=%d.
Lean the challenge toward their highest-rated interests.

Respond with JSON only, no markdown fences:
{"title": "imperative, under 60 characters", "description": "2-3 sentences telling the user exactly what to do", "tags": ["one", "two"]}`

func difficultyHint(d challenge.Difficulty) string {
	switch d {
	case challenge.DifficultyMedium:
		return "achievable within 3 days, takes real effort"
	case challenge.DifficultyHard:
		return "a week-long push outside the comfort zone"
	default:
		return "doable today in under an hour"
	}
}

type GenerationService struct {
	client *genai.Client
	models []string
}

func NewGenerationService(ctx context.Context, apiKey string) (*GenerationService, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, err
	}

	return &GenerationService{
		client: client,
		models: []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"},
	}, nil
}

var _ ChallengeGenerator = (*GenerationService)(nil)

type generatedChallenge struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// GenerateChallenge asks the model for a proposal, falling back through the
// model list on quota errors. A response that is not valid JSON surfaces as
// an external-service failure.
func (s *GenerationService) GenerateChallenge(ctx context.Context, difficulty challenge.Difficulty, ratings user.Ratings) (string, string, []string, error) {
	prompt := fmt.Sprintf(generationPrompt,
		difficulty, difficultyHint(difficulty),
		ratings.Adventure, ratings.Creativity, ratings.Social, ratings.Fitness, ratings.Learning)

	var lastErr error
	for _, model := range s.models {
		result, err := s.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			errStr := strings.ToLower(err.Error())
			if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
				strings.Contains(errStr, "exhausted") || strings.Contains(errStr, "not found") {
				lastErr = err
				continue
			}
			return "", "", nil, fmt.Errorf("%w: %v", apperr.ErrExternal, err)
		}

		if result == nil || len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
			lastErr = fmt.Errorf("empty response from %s", model)
			continue
		}

		var gen generatedChallenge
		raw := cleanJSON(result.Candidates[0].Content.Parts[0].Text)
		if err := json.Unmarshal([]byte(raw), &gen); err != nil {
			return "", "", nil, fmt.Errorf("%w: unparseable generation response: %v", apperr.ErrExternal, err)
		}
		if gen.Title == "" {
			return "", "", nil, fmt.Errorf("%w: generation response missing title", apperr.ErrExternal)
		}

		return gen.Title, gen.Description, gen.Tags, nil
	}

	return "", "", nil, fmt.Errorf("%w: all models failed: %v", apperr.ErrExternal, lastErr)
}

func cleanJSON(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
