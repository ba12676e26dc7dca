package eino

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	gemini "github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"
)

// Config represents the configuration for the LLM integration
type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
}

// Service wraps an Eino chat model for structured page-data extraction.
type Service struct {
	config       Config
	chatModel    model.BaseChatModel
	chatTemplate prompt.ChatTemplate
	geminiClient *genai.Client
}

// pageDataSpec is the fixed output schema handed to the model. Field names are
// part of the output contract; keep them stable.
var pageDataSpec = map[string]interface{}{
	"site_name":       "string",
	"headline":        "string",
	"phone":           "string",
	"email":           "string",
	"primary_address": "string",
}

// maxHTMLLength bounds the HTML sent to the model so requests stay under the
// provider's size limits.
const maxHTMLLength = 20000

// NewService creates the extraction service with the configured provider.
func NewService(config Config) (*Service, error) {
	s := &Service{config: config}
	if err := s.initializeChatModel(); err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}
	s.initializeChatTemplate()
	return s, nil
}

// NewServiceWithModel creates the service around a pre-built chat model.
// Used by tests to inject a fake model.
func NewServiceWithModel(config Config, chatModel model.BaseChatModel) *Service {
	s := &Service{config: config, chatModel: chatModel}
	s.initializeChatTemplate()
	return s
}

func (s *Service) initializeChatModel() error {
	switch strings.ToLower(s.config.Provider) {
	case "gemini":
		return s.initializeGeminiModel()
	default:
		return fmt.Errorf("unsupported provider: %s. Supported: gemini", s.config.Provider)
	}
}

func (s *Service) initializeGeminiModel() error {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: s.config.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.geminiClient = client

	geminiModel, err := gemini.NewChatModel(context.Background(), &gemini.Config{
		Client: client,
		Model:  s.config.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create Gemini chat model: %w", err)
	}
	s.chatModel = geminiModel
	return nil
}

func (s *Service) initializeChatTemplate() {
	systemTemplate := schema.SystemMessage(`You are an expert HTML parser that extracts structured company data from a web page.

CRITICAL REQUIREMENTS:
1. You MUST return ONLY a valid JSON object that exactly matches the provided schema
2. Do NOT include any explanations, markdown formatting, or additional text
3. If you cannot extract certain fields, use null values
4. All field names must match the schema exactly

REQUIRED OUTPUT SCHEMA:
{output_spec}

Remember: Return ONLY the JSON object.`)

	userTemplate := schema.UserMessage(`Extract the site name, the main headline, a contact phone number, a contact email address, and the primary street address from this page.

HTML CONTENT:
{html_content}`)

	s.chatTemplate = prompt.FromMessages(
		schema.FString,
		systemTemplate,
		userTemplate,
	)
}

// ExtractPageData asks the model to pull the fixed field set out of the page's
// rendered HTML and returns the model's JSON text verbatim. The only
// validation applied is that the response is parseable JSON; callers store the
// text as-is.
func (s *Service) ExtractPageData(ctx context.Context, html string) (string, error) {
	if s.chatModel == nil {
		return "", fmt.Errorf("chat model not initialized")
	}

	specJSON, err := json.MarshalIndent(pageDataSpec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal output spec: %w", err)
	}

	templateVars := map[string]any{
		"output_spec":  string(specJSON),
		"html_content": truncateHTML(html),
	}

	messages, err := s.chatTemplate.Format(ctx, templateVars)
	if err != nil {
		return "", fmt.Errorf("failed to format chat template: %w", err)
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM generation failed: %w", err)
	}

	text := stripFences(response.Content)
	if !json.Valid([]byte(text)) {
		return "", fmt.Errorf("model returned invalid JSON")
	}
	return text, nil
}

// truncateHTML normalizes line endings, drops blank lines and caps the payload
// at maxHTMLLength characters.
func truncateHTML(html string) string {
	html = strings.ReplaceAll(html, "\r\n", "\n")
	html = strings.ReplaceAll(html, "\r", "\n")

	lines := strings.Split(html, "\n")
	var cleanLines []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			cleanLines = append(cleanLines, trimmed)
		}
	}
	cleaned := strings.Join(cleanLines, "\n")

	if len(cleaned) > maxHTMLLength {
		// never cut mid-rune
		cut := maxHTMLLength
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = cleaned[:cut] + "\n...[content truncated for processing]"
	}
	return cleaned
}

// stripFences removes markdown code fencing the model sometimes wraps around
// its JSON answer.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
