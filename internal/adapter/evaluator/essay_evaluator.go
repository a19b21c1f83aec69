package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"skillquest/internal/domain"
	"skillquest/internal/logger"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// llmEssayAssistant implements domain.EssayAssistant over a local LLM. Its
// output is advisory only; the service persists scores solely through the
// teacher grading flow. Concurrent suggestion requests for the same answer
// collapse into a single LLM call.
type llmEssayAssistant struct {
	llmClient *ollama.LLM
	timeout   time.Duration
	sfGroup   singleflight.Group
}

// NewLLMEssayAssistant creates a new instance of llmEssayAssistant.
func NewLLMEssayAssistant(llm *ollama.LLM, timeout time.Duration) domain.EssayAssistant {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &llmEssayAssistant{
		llmClient: llm,
		timeout:   timeout,
	}
}

// SuggestGrade implements domain.EssayAssistant.
func (e *llmEssayAssistant) SuggestGrade(ctx context.Context, question, answer string, maxPoints int) (*domain.EssaySuggestion, error) {
	key := suggestionKey(question, answer, maxPoints)
	res, err, _ := e.sfGroup.Do(key, func() (interface{}, error) {
		return e.suggestGrade(ctx, question, answer, maxPoints)
	})
	if err != nil {
		return nil, err
	}
	return res.(*domain.EssaySuggestion), nil
}

func suggestionKey(question, answer string, maxPoints int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d", question, answer, maxPoints)
	return hex.EncodeToString(h.Sum(nil))
}

func (e *llmEssayAssistant) suggestGrade(ctx context.Context, question, answer string, maxPoints int) (*domain.EssaySuggestion, error) {
	l := logger.Get()
	l.Info("Requesting essay grading suggestion from LLM",
		zap.String("question", question),
		zap.Int("maxPoints", maxPoints))

	prompt := fmt.Sprintf(`You are an essay grading assistant for a teacher. Evaluate the student's answer and respond with ONLY a JSON object in the following format:
{
    "suggested_score": 0,
    "feedback": "brief feedback here"
}

Question: %s
Student's Answer: %s
Maximum Points: %d

Rules:
1. suggested_score must be an integer between 0 and %d
2. Feedback must be under 100 words, focusing on key strengths and areas for improvement
3. Address the feedback to the student, not to the teacher`, question, answer, maxPoints, maxPoints)

	rawResponse, err := e.callLLM(ctx, prompt)
	if err != nil {
		l.Error("callLLM failed during essay suggestion", zap.Error(err))
		return nil, domain.NewAssistantUnavailableError(fmt.Errorf("callLLM failed: %w", err))
	}

	l.Debug("Raw LLM response received", zap.String("raw_response", rawResponse))

	cleaned := strings.TrimSpace(rawResponse)
	if thinkStart := strings.Index(cleaned, "<think>"); thinkStart != -1 {
		if thinkEnd := strings.Index(cleaned, "</think>"); thinkEnd != -1 && thinkEnd > thinkStart {
			cleaned = strings.TrimSpace(cleaned[:thinkStart] + cleaned[thinkEnd+len("</think>"):])
		}
	}

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart == -1 || jsonEnd <= jsonStart {
		l.Error("Could not find valid JSON object delimiters in LLM response",
			zap.String("cleaned_response", cleaned))
		return nil, domain.NewAssistantUnavailableError(fmt.Errorf("no JSON object found in LLM response"))
	}

	extracted := cleaned[jsonStart : jsonEnd+1]

	var llmResp struct {
		SuggestedScore int    `json:"suggested_score"`
		Feedback       string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(extracted), &llmResp); err != nil {
		l.Error("Failed to unmarshal extracted JSON from LLM response",
			zap.Error(err),
			zap.String("json_string_tried_to_parse", extracted))
		return nil, domain.NewAssistantUnavailableError(fmt.Errorf("failed to unmarshal JSON from LLM: %w", err))
	}

	// Clamp to the grading scale; the model occasionally overshoots.
	if llmResp.SuggestedScore < 0 {
		llmResp.SuggestedScore = 0
	}
	if llmResp.SuggestedScore > maxPoints {
		llmResp.SuggestedScore = maxPoints
	}

	return &domain.EssaySuggestion{
		SuggestedScore: llmResp.SuggestedScore,
		Feedback:       llmResp.Feedback,
	}, nil
}

func (e *llmEssayAssistant) callLLM(ctx context.Context, prompt string) (string, error) {
	l := logger.Get()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	response, err := e.llmClient.Call(ctx, prompt, llms.WithTemperature(0.1))
	if err != nil {
		if err == context.DeadlineExceeded {
			l.Error("LLM request timed out", zap.Error(err))
			return "", fmt.Errorf("LLM request timed out: %w", err)
		}
		l.Error("Failed to get response from LLM", zap.Error(err))
		return "", fmt.Errorf("LLM call failed: %w", err)
	}

	return response, nil
}
