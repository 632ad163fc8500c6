// Package icd provides a reusable SDK for the WHO ICD-11 classification API.
//
// Architecture:
//
// Это API SDK, а не просто "тупой" HTTP клиент:
//   - HTTP клиент с rate limiting и классификацией ошибок
//   - Token получает через OAuth2 client credentials exchange
//   - Lookup собирает по-словный mapping код → ссылка
//
// Usage pattern:
//   - pkg/icd — переиспользуемый SDK (можно использовать в любом проекте)
//   - pkg/tools/std — тонкая обёртка для LLM function calling
//
// Токен НЕ кэшируется между вызовами Lookup: один Lookup — один токен,
// переиспользуемый для всех слов этого вызова. Свежесть важнее экономии.
package icd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilkoid/kodik-ai/pkg/config"
	"github.com/ilkoid/kodik-ai/pkg/utils"
	"golang.org/x/time/rate"
)

// Параметры client credentials exchange (фиксированы WHO API).
const (
	scopeICDAPI            = "icdapi_access"
	grantClientCredentials = "client_credentials"
)

// HTTPClient интерфейс для выполнения HTTP запросов.
//
// Позволяет мокировать HTTP клиент в тестах.
// Стандартный *http.Client реализует этот интерфейс.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Entity — одна сущность из destinationEntities ответа поиска.
type Entity struct {
	TheCode string `json:"theCode"`
	ID      string `json:"id"` // Каноническая ссылка на сущность
	Title   string `json:"title"`
}

// CodeMapping — результат lookup'а: слово → {код → ссылка}.
//
// Строится заново на каждый вызов Lookup, никогда не мержится с предыдущим.
type CodeMapping map[string]map[string]string

// JSON сериализует mapping в строку для tool-result сообщения.
//
// Содержимое tool сообщения в диалоге может быть только текстом.
func (m CodeMapping) JSON() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal code mapping: %w", err)
	}
	return string(b), nil
}

// Client — клиент ICD-11 API.
type Client struct {
	clientID     string
	clientSecret string
	tokenURL     string
	searchURL    string
	apiVersion   string
	language     string

	// tokenizedLinks — добавлять access_token к ссылкам результатов,
	// чтобы их можно было открыть без отдельной авторизации
	tokenizedLinks bool

	httpClient HTTPClient // Интерфейс вместо конкретного типа для testability
	limiter    *rate.Limiter
}

// NewFromConfig создает новый клиент из конфигурации.
//
// Поля с нулевыми значениями используют дефолты через GetDefaults().
// Rate limiter общий для всех поисковых запросов клиента.
func NewFromConfig(cfg config.ICDConfig) (*Client, error) {
	cfg = cfg.GetDefaults()

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("icd.client_id and icd.client_secret are required")
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid icd.timeout format: %w", err)
	}

	return &Client{
		clientID:       cfg.ClientID,
		clientSecret:   cfg.ClientSecret,
		tokenURL:       cfg.TokenEndpoint,
		searchURL:      cfg.SearchEndpoint,
		apiVersion:     cfg.APIVersion,
		language:       cfg.Language,
		tokenizedLinks: cfg.TokenizedLinks,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimit)), cfg.BurstLimit),
	}, nil
}

// SetHTTPClient подменяет HTTP клиент (для тестов).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// tokenResponse — JSON тело ответа token endpoint'а.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Token выполняет client credentials exchange и возвращает bearer token.
//
// Любой не-200 ответ или отсутствие access_token в теле — *CredentialError:
// вызывающий код обязан НЕ продолжать lookup и сообщить отказ пользователю.
// Токен не кэшируется.
func (c *Client) Token(ctx context.Context) (string, error) {
	form := url.Values{
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {scopeICDAPI},
		"grant_type":    {grantClientCredentials},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &CredentialError{Detail: fmt.Sprintf("token request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		utils.Error("ICD token exchange failed", "status", resp.StatusCode)
		return "", &CredentialError{
			StatusCode: resp.StatusCode,
			Detail:     "token endpoint returned non-200",
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &CredentialError{Detail: fmt.Sprintf("failed to parse token response: %v", err)}
	}
	if tr.AccessToken == "" {
		return "", &CredentialError{Detail: "token response has no access_token"}
	}

	return tr.AccessToken, nil
}

// searchResponse — JSON тело ответа поиска.
type searchResponse struct {
	DestinationEntities []Entity `json:"destinationEntities"`
}

// Search выполняет один поисковый запрос по слову с готовым токеном.
//
// Rate limiter блокирует горутину, если лимит запросов превышен.
func (c *Client) Search(ctx context.Context, token, word string) ([]Entity, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	searchURL := fmt.Sprintf("%s?q=%s", c.searchURL, url.QueryEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("API-Version", c.apiVersion)
	req.Header.Set("Accept-Language", c.language)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icd api error: status %d, body: %s", resp.StatusCode, utils.Truncate(string(body), 200))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return sr.DestinationEntities, nil
}

// Lookup резолвит свободный текст в mapping слово → {код → ссылка}.
//
// Алгоритм:
//  1. Один token exchange на весь вызов (*CredentialError — фатально,
//     поисковые запросы не выполняются)
//  2. Фраза режется по whitespace, у каждого слова отрезаются
//     хвостовые запятые
//  3. По одному поисковому GET на слово; отказ одного слова НЕ прерывает
//     фразу — слово остаётся в mapping с пустым вложенным map
//
// Результат всегда содержит ключ для каждого слова фразы, даже если все
// запросы отказали. Частичный результат полезнее для кодера, чем ничего.
func (c *Client) Lookup(ctx context.Context, phrase string) (CodeMapping, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	mappings := make(CodeMapping)

	for _, word := range strings.Fields(phrase) {
		word = strings.TrimRight(word, ",")
		if word == "" {
			continue
		}
		if _, ok := mappings[word]; !ok {
			mappings[word] = make(map[string]string)
		}

		entities, err := c.Search(ctx, token, word)
		if err != nil {
			// Skip-and-continue: слово остаётся с пустым mapping
			utils.Warn("ICD search failed for word", "word", word, "error", err)
			continue
		}

		for _, e := range entities {
			link := e.ID
			if c.tokenizedLinks {
				link = authenticatedURL(link, token)
			}
			mappings[word][e.TheCode] = link
		}
	}

	utils.Info("ICD lookup completed", "words", len(mappings))
	return mappings, nil
}

// authenticatedURL добавляет access_token к ссылке, делая её открываемой
// без отдельного заголовка Authorization.
func authenticatedURL(baseURL, token string) string {
	return fmt.Sprintf("%s?access_token=%s", baseURL, token)
}
