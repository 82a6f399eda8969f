package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinic-tools/advisory-engine/pkg/models/domain"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are an advisor for dental clinics reviewing patient feedback analytics.
You receive a JSON digest of one clinic's aggregated survey data together with
the titles of the rule-based report sections already produced. Write at most
two additional sections with observations the rule-based sections do not
already cover. Respond with a JSON array only, each element an object with
"title" and "content" string fields. Respond with [] when you have nothing
to add. Do not invent numbers that are not present in the digest.`

type Config struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxSections int     `mapstructure:"max_sections"`
	Temperature float32 `mapstructure:"temperature"`
}

type openAIGenerator struct {
	client      *openai.Client
	model       string
	maxSections int
	temperature float32
}

// NewOpenAIGenerator builds the go-openai backed generator. An empty API key
// returns the Disabled generator, so callers configure but never branch.
func NewOpenAIGenerator(cfg Config) SectionGenerator {
	if cfg.APIKey == "" {
		return Disabled{}
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	maxSections := cfg.MaxSections
	if maxSections <= 0 {
		maxSections = 2
	}
	return &openAIGenerator{
		client:      openai.NewClient(cfg.APIKey),
		model:       model,
		maxSections: maxSections,
		temperature: cfg.Temperature,
	}
}

func (g *openAIGenerator) Generate(
	ctx context.Context,
	snap *domain.AnalysisSnapshot,
	sections []domain.AdvisorySection,
) ([]domain.AdvisorySection, error) {
	logger := zerolog.Ctx(ctx)

	body, err := json.Marshal(buildPayload(snap, sections))
	if err != nil {
		logger.Warn().Err(err).Msg("augmentation payload marshal failed, skipping")
		return nil, nil
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(body)},
		},
	})
	if err != nil {
		logger.Warn().Err(err).Str("model", g.model).Msg("augmentation call failed, report continues without it")
		return nil, nil
	}
	if len(resp.Choices) == 0 {
		logger.Warn().Msg("augmentation returned no choices")
		return nil, nil
	}

	generated, err := parseSections(resp.Choices[0].Message.Content)
	if err != nil {
		logger.Warn().Err(err).Msg("augmentation response was not a section array")
		return nil, nil
	}
	if len(generated) > g.maxSections {
		generated = generated[:g.maxSections]
	}
	return generated, nil
}

func parseSections(content string) ([]domain.AdvisorySection, error) {
	content = strings.TrimSpace(content)
	// Models occasionally wrap the array in a code fence despite instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var raw []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse sections: %w", err)
	}

	sections := make([]domain.AdvisorySection, 0, len(raw))
	for _, s := range raw {
		if s.Title == "" || s.Content == "" {
			continue
		}
		sections = append(sections, domain.AdvisorySection{
			Title:   s.Title,
			Content: s.Content,
			Type:    domain.SectionLLM,
		})
	}
	return sections, nil
}
