package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const narrativeSystemPrompt = `Você é um analista de dados especialista em performance de contact centers.
Você recebe um JSON com os dados já calculados do dia: atendentes, desempenho por atendente
(clientes atendidos e tempo total de pausa), registros de pausa e, quando disponível, o
histórico de relatórios anteriores.

Escreva um resumo geral sobre o dia, destacando a produtividade geral, a distribuição de
trabalho e quaisquer observações ou recomendações importantes. Se houver histórico, escreva
também uma análise de tendência comparando o dia atual com os dias anteriores.

Responda somente com um objeto JSON com exatamente estes campos:
- "overallSummary": o resumo geral do dia (texto corrido)
- "historicalAnalysis": a análise de tendência (texto corrido; string vazia se não houver histórico)

Não recalcule números: use os valores fornecidos. Não inclua cercas de markdown.`

// AnthropicEngine implements NarrativeEngine on the Anthropic Messages API
type AnthropicEngine struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropicEngine creates a narrative engine with the given API key and model
func NewAnthropicEngine(apiKey, model string) *AnthropicEngine {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicEngine{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// GenerateNarrative sends the structured snapshot and returns the prose
// fields. Any numeric re-derivations the model emits are ignored: the
// response is decoded into Narrative, which has no numeric fields.
func (e *AnthropicEngine) GenerateNarrative(ctx context.Context, input AnalysisInput) (Narrative, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return Narrative{}, fmt.Errorf("marshaling analysis input: %w", err)
	}

	msg, err := e.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: narrativeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Dados do dia:\n\n" + string(payload))),
		},
	})
	if err != nil {
		return Narrative{}, fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return Narrative{}, fmt.Errorf("no text content in API response")
	}

	// Strip markdown fencing if present
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var narrative Narrative
	if err := json.Unmarshal([]byte(text), &narrative); err != nil {
		return Narrative{}, fmt.Errorf("parse narrative response as JSON: %w\nraw response: %s", err, text)
	}

	return narrative, nil
}
