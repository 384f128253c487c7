// Package reranker содержит клиент языковой модели, переранжирующей
// результаты поиска под цель исследования пользователя.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/researchnest/researchnest/internal/config"
	"github.com/researchnest/researchnest/internal/models"
)

type Client struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient создаёт новый клиент переранжирования.
func NewClient(cfg config.Reranker) *Client {
	timeout := cfg.RerankerTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiURL:     strings.TrimRight(cfg.RerankerURL, "/"),
		apiKey:     cfg.RerankerAPIKey,
		model:      cfg.RerankerModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Rerank просит модель выбрать target наиболее релевантных статей.
// Кандидаты нумеруются с единицы, модель возвращает JSON-массив номеров.
// Номера вне диапазона отбрасываются. Любая ошибка модели или разбора
// возвращается вызывающей стороне, усечение исходного порядка — её дело.
func (c *Client) Rerank(ctx context.Context, papers []models.Paper, researchGoal string, target int) ([]models.Paper, error) {
	const op = "reranker.Rerank"

	prompt := buildPrompt(papers, researchGoal, target)
	var buf bytes.Buffer
	err := json.NewEncoder(&buf).Encode(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty response", op)
	}

	indices, err := ParseIndices(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ranked := make([]models.Paper, 0, target)
	for _, idx := range indices {
		if idx < 1 || idx > len(papers) {
			continue
		}
		ranked = append(ranked, papers[idx-1])
		if len(ranked) == target {
			break
		}
	}
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%s: no valid indices in response", op)
	}
	return ranked, nil
}

func buildPrompt(papers []models.Paper, researchGoal string, target int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research goal: %s\n\nCandidate papers:\n", researchGoal)
	for i, p := range papers {
		fmt.Fprintf(&b, "%d. %s", i+1, p.Title)
		if p.Abstract != "" {
			abstract := p.Abstract
			if len(abstract) > 300 {
				abstract = abstract[:300]
			}
			fmt.Fprintf(&b, " — %s", abstract)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nSelect the %d most relevant papers for the research goal. "+
		"Respond with ONLY a JSON array of 1-based paper numbers, most relevant first. "+
		"Example: [3, 1, 7]", target)
	return b.String()
}

// ParseIndices извлекает массив номеров из ответа модели.
// Ограждения ```json вокруг массива срезаются.
func ParseIndices(content string) ([]int, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var indices []int
	if err := json.Unmarshal([]byte(content), &indices); err != nil {
		return nil, errors.New("malformed index array: " + err.Error())
	}
	return indices, nil
}
