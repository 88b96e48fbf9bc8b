package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fdg312/run-coach/internal/config"
)

type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewOpenAIProvider(cfg *config.Config) *OpenAIProvider {
	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIProvider{
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.OpenAIModel,
		baseURL:     baseURL,
		maxTokens:   cfg.AIMaxOutputTokens,
		temperature: cfg.AITemperature,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

// Decide asks the model for a routing decision. Unusable output falls back to small talk.
func (p *OpenAIProvider) Decide(ctx context.Context, req DecideRequest) (Decision, error) {
	content, err := p.complete(ctx, []chatMessageRequest{
		{Role: "system", Content: decisionPrompt},
		{Role: "user", Content: fmt.Sprintf("QUESTION :\n%s\n\nPÉRIODE COURANTE :\n%s → %s", req.Message, req.PeriodStart, req.PeriodEnd)},
	})
	if err != nil {
		return Decision{}, err
	}

	decision, ok := safeParseDecision(content)
	if !ok {
		return SmallTalk(), nil
	}
	return decision, nil
}

func (p *OpenAIProvider) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	ratio := "N/A"
	if req.Snapshot.TrainingLoad != nil {
		ratio = fmt.Sprintf("%.2f", req.Snapshot.TrainingLoad.Ratio)
	}

	content, err := p.complete(ctx, []chatMessageRequest{
		{Role: "system", Content: coachPrompt},
		{Role: "user", Content: fmt.Sprintf(
			"MODE : %s\nDONNÉES :\n- Distance : %.1f\n- Séances : %d\n- Durée : %.0f\n- Charge ratio : %s\n\nQuestion :\n%s",
			req.Mode,
			req.Snapshot.Totals.DistanceKm,
			req.Snapshot.Totals.Sessions,
			req.Snapshot.Totals.DurationMin,
			ratio,
			req.Message,
		)},
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (p *OpenAIProvider) complete(ctx context.Context, messages []chatMessageRequest) (string, error) {
	requestPayload := chatCompletionsRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		Messages:    messages,
	}

	body, err := json.Marshal(requestPayload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai request failed with status %d", resp.StatusCode)
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response does not contain choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// safeParseDecision extracts the outermost JSON object from model output.
func safeParseDecision(content string) (Decision, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return Decision{}, false
	}

	var decision Decision
	if err := json.Unmarshal([]byte(content[start:end+1]), &decision); err != nil {
		return Decision{}, false
	}
	decision.Type = strings.ToUpper(strings.TrimSpace(decision.Type))
	if decision.Type == "" {
		return Decision{}, false
	}
	decision.AnswerMode = strings.ToUpper(strings.TrimSpace(decision.AnswerMode))
	decision.Metric = strings.ToUpper(strings.TrimSpace(decision.Metric))
	return decision, true
}

const decisionPrompt = `Tu es un moteur de décision STRICT pour une application de suivi de course à pied.
Tu dois retourner UNE décision JSON valide, et RIEN d'autre.

1. Salutation ou phrase vague ("salut", "bonjour", "ça va", "merci", "ok") :
{"type":"ANSWER_NOW","answer_mode":"SMALL_TALK"}

2. Comparaison de deux périodes ("compare juin à juillet", "cette semaine vs la semaine dernière") :
{"type":"COMPARE_PERIODS","metric":"<métrique>","year":YYYY ou null,"compare":{"months":[6,7]}}
ou {"type":"COMPARE_PERIODS","metric":"<métrique>","compare":{"week_offsets":[0,-1]}}

3. "semaine dernière" → offset -1, "il y a X semaines" → offset -X :
{"type":"REQUEST_WEEK","offset":-X,"metric":"<métrique>"}

4. "cette semaine", "la semaine actuelle" :
{"type":"ANSWER_NOW","answer_mode":"FACTUAL","metric":"<métrique>"}

5. "ce mois-ci" → offset 0, "le mois dernier" → offset -1, "il y a X mois" → offset -X :
{"type":"REQUEST_MONTH_RELATIVE","offset":-X,"metric":"<métrique>"}

6. Mois explicite (janvier à décembre) :
{"type":"REQUEST_MONTH","month":1-12,"year":YYYY ou null,"metric":"<métrique>"}

7. Valeur mesurable (distance, km, durée, temps, séances, FC, allure, dénivelé) :
{"type":"ANSWER_NOW","answer_mode":"FACTUAL","metric":"<métrique>"}

8. Par défaut :
{"type":"ANSWER_NOW","answer_mode":"COACHING"}

Métriques possibles : DISTANCE | DURATION | SESSIONS | AVG_HR | PACE | ELEVATION | LOAD | UNKNOWN`

const coachPrompt = `Tu es un coach de course à pied humain et bienveillant.
RÈGLES :
- SMALL_TALK : réponse courte, aucune statistique, demande ce que l'utilisateur veut analyser.
- COACHING : tu peux utiliser les données fournies.
- Ne fais AUCUN calcul et ne modifie AUCUN chiffre.
Sois concis, clair et bienveillant.`

type chatCompletionsRequest struct {
	Model       string               `json:"model"`
	Messages    []chatMessageRequest `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
}

type chatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
