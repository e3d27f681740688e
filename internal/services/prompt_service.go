package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailflow/internal/api"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Prompt notice and empty-state texts
const (
	msgPromptFieldsMissing = "Please fill in all fields."
	msgPromptCreated       = "Prompt created successfully."
	msgPromptCreateFailed  = "Failed to create prompt."
	msgPromptUpdated       = "Prompt updated successfully."
	msgPromptUpdateFailed  = "Failed to update prompt."
	msgPromptDeleted       = "Prompt deleted successfully."
	msgPromptDeleteFailed  = "Failed to delete prompt."
	EmptyPromptsTitle      = "No prompts yet"
	EmptyPromptsHint       = "Create your first prompt to get started"
)

// PromptFrontMatter is the YAML header of an exported prompt file
type PromptFrontMatter struct {
	Name   string         `yaml:"name"`
	Type   api.PromptType `yaml:"type"`
	Active *bool          `yaml:"active,omitempty"`
}

// PromptService manages the prompts collection
type PromptService struct {
	gw       PromptGateway
	prompts  *Collection[api.Prompt, struct{}]
	notifier *Notifier
	logger   *zap.Logger
}

// NewPromptService creates the prompts view service
func NewPromptService(gw PromptGateway, notifier *Notifier, logger *zap.Logger) *PromptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PromptService{
		gw:       gw,
		notifier: notifier,
		logger:   logger,
		prompts: NewCollection(CollectionConfig[api.Prompt, struct{}]{
			Noun:     "prompts",
			Fetch:    ListFetcher(gw.ListPrompts),
			ID:       func(p api.Prompt) api.ID { return p.ID },
			Notifier: notifier,
			Logger:   logger,
		}),
	}
}

// Prompts exposes the underlying collection
func (s *PromptService) Prompts() *Collection[api.Prompt, struct{}] {
	return s.prompts
}

// Load re-fetches every prompt
func (s *PromptService) Load(ctx context.Context) error {
	return s.prompts.Load(ctx)
}

// Create validates and stores a new prompt, then re-fetches. Blank name or
// content is rejected with a validation notice and no request is made.
func (s *PromptService) Create(ctx context.Context, req api.CreatePromptRequest) (Notice, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Content) == "" {
		n := ValidationNotice(msgPromptFieldsMissing)
		s.notifier.Publish(n)
		return n, fmt.Errorf("%w: name and content are required", api.ErrInvalidRequest)
	}
	if req.Type == "" {
		req.Type = api.PromptCustom
	}
	return s.prompts.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gw.CreatePrompt(ctx, req)
		return err
	}, msgPromptCreated, msgPromptCreateFailed)
}

// Update replaces the content of a prompt; no other field is sent
func (s *PromptService) Update(ctx context.Context, id api.ID, content string) (Notice, error) {
	return s.prompts.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gw.UpdatePrompt(ctx, id, api.UpdatePromptRequest{Content: api.String(content)})
		return err
	}, msgPromptUpdated, msgPromptUpdateFailed)
}

// RequestDelete asks for confirmation before deleting id
func (s *PromptService) RequestDelete(id api.ID) {
	s.prompts.RequestDelete(id)
}

// CancelDelete drops the pending delete
func (s *PromptService) CancelDelete() {
	s.prompts.CancelDelete()
}

// ConfirmDelete deletes the pending prompt and re-fetches
func (s *PromptService) ConfirmDelete(ctx context.Context) (Notice, error) {
	return s.prompts.ConfirmDelete(ctx, func(ctx context.Context, id api.ID) error {
		_, err := s.gw.DeletePrompt(ctx, id)
		return err
	}, msgPromptDeleted, msgPromptDeleteFailed)
}

// ImportFile creates a prompt from a Markdown file with YAML front matter
func (s *PromptService) ImportFile(ctx context.Context, filePath string) (Notice, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return Notice{}, fmt.Errorf("failed to read file: %w", err)
	}

	fm, body, err := s.parseFrontMatter(content)
	if err != nil {
		return Notice{}, err
	}
	if fm.Type == "" {
		fm.Type = api.PromptCustom
	}
	if !fm.Type.Valid() {
		return Notice{}, fmt.Errorf("%w: unknown prompt type %q in %s", api.ErrInvalidRequest, fm.Type, filepath.Base(filePath))
	}

	s.logger.Info("importing prompt", zap.String("file", filePath), zap.String("name", fm.Name))
	return s.Create(ctx, api.CreatePromptRequest{
		Name:     fm.Name,
		Type:     fm.Type,
		Content:  body,
		IsActive: fm.Active,
	})
}

// ExportFile writes a loaded prompt to filePath as Markdown with YAML front matter
func (s *PromptService) ExportFile(ctx context.Context, id api.ID, filePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, ok := s.prompts.Find(id)
	if !ok {
		return fmt.Errorf("prompt %d: %w", id, ErrNotLoaded)
	}

	content, err := s.generateMarkdownContent(PromptFrontMatter{Name: p.Name, Type: p.Type, Active: p.IsActive}, p.Content)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0o644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// parseFrontMatter splits a prompt file into its YAML header and body
func (s *PromptService) parseFrontMatter(content []byte) (PromptFrontMatter, string, error) {
	var fm PromptFrontMatter

	text := string(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")))
	if !strings.HasPrefix(text, "---\n") {
		return fm, "", fmt.Errorf("missing front matter: file must start with ---")
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated front matter: closing --- not found")
	}
	header := rest[:end]
	body := rest[end+len("\n---"):]

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return fm, "", fmt.Errorf("invalid YAML in front matter: %w", err)
	}
	if strings.TrimSpace(fm.Name) == "" {
		return fm, "", fmt.Errorf("front matter is missing the name field")
	}
	return fm, strings.TrimSpace(body), nil
}

// generateMarkdownContent renders a prompt file
func (s *PromptService) generateMarkdownContent(fm PromptFrontMatter, promptText string) ([]byte, error) {
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(promptText)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}
