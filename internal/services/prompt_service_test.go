package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ajramos/mailflow/internal/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPrompts(gw *MockGateway) (*PromptService, *noticeRecorder) {
	n := NewNotifier(nil)
	rec := recordNotices(n)
	return NewPromptService(gw, n, nil), rec
}

func TestPromptService_LoadFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListPrompts", mock.Anything).Return(nil, errors.New("down"))

	svc, rec := newPrompts(gw)
	assert.Error(t, svc.Load(context.Background()))
	assert.Empty(t, svc.Prompts().Items())
	assert.Equal(t, []string{"Failed to fetch prompts."}, rec.messages())
}

func TestPromptService_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  api.CreatePromptRequest
	}{
		{"blank_name", api.CreatePromptRequest{Name: "  ", Content: "x"}},
		{"blank_content", api.CreatePromptRequest{Name: "n", Content: "\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := new(MockGateway)
			svc, rec := newPrompts(gw)

			n, err := svc.Create(context.Background(), tt.req)

			assert.ErrorIs(t, err, api.ErrInvalidRequest)
			assert.Equal(t, "Validation Error", n.Title)
			assert.Equal(t, []string{"Please fill in all fields."}, rec.messages())
			gw.AssertNotCalled(t, "CreatePrompt", mock.Anything, mock.Anything)
		})
	}
}

func TestPromptService_CreateDefaultsTypeAndRefetches(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreatePrompt", mock.Anything, api.CreatePromptRequest{Name: "Triage", Type: api.PromptCustom, Content: "Sort"}).
		Return(&api.Prompt{ID: 1}, nil)
	gw.On("ListPrompts", mock.Anything).Return([]api.Prompt{{ID: 1, Name: "Triage"}}, nil)

	svc, rec := newPrompts(gw)
	_, err := svc.Create(context.Background(), api.CreatePromptRequest{Name: "Triage", Content: "Sort"})

	require.NoError(t, err)
	assert.Equal(t, []string{"Prompt created successfully."}, rec.messages())
	assert.Len(t, svc.Prompts().Items(), 1)
}

func TestPromptService_CreateFailure(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreatePrompt", mock.Anything, mock.Anything).Return(nil, errors.New("422"))

	svc, rec := newPrompts(gw)
	_, err := svc.Create(context.Background(), api.CreatePromptRequest{Name: "n", Type: api.PromptAutoReply, Content: "c"})

	assert.Error(t, err)
	assert.Equal(t, []string{"Failed to create prompt."}, rec.messages())
}

func TestPromptService_UpdateSendsContentOnly(t *testing.T) {
	gw := new(MockGateway)
	gw.On("UpdatePrompt", mock.Anything, api.ID(2), api.UpdatePromptRequest{Content: api.String("better")}).
		Return(&api.Prompt{ID: 2}, nil)
	gw.On("ListPrompts", mock.Anything).Return([]api.Prompt{{ID: 2, Content: "better"}}, nil)

	svc, rec := newPrompts(gw)
	_, err := svc.Update(context.Background(), 2, "better")

	require.NoError(t, err)
	assert.Equal(t, []string{"Prompt updated successfully."}, rec.messages())
	gw.AssertExpectations(t)
}

func TestPromptService_Delete(t *testing.T) {
	gw := new(MockGateway)
	gw.On("DeletePrompt", mock.Anything, api.ID(5)).Return(&api.Message{}, nil)
	gw.On("ListPrompts", mock.Anything).Return([]api.Prompt{}, nil)

	svc, rec := newPrompts(gw)
	_, err := svc.ConfirmDelete(context.Background())
	assert.ErrorIs(t, err, ErrNothingPending)

	svc.RequestDelete(5)
	_, err = svc.ConfirmDelete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Prompt deleted successfully."}, rec.messages())

	svc.RequestDelete(6)
	svc.CancelDelete()
	gw.AssertNumberOfCalls(t, "DeletePrompt", 1)
}

func TestPromptCard_SaveContent(t *testing.T) {
	gw := new(MockGateway)
	gw.On("UpdatePrompt", mock.Anything, api.ID(2), api.UpdatePromptRequest{Content: api.String("v2")}).
		Return(nil, errors.New("500"))

	svc, _ := newPrompts(gw)
	card := NewPromptCard(svc, api.Prompt{ID: 2, Content: "v1"})

	require.NoError(t, card.Edit())
	require.NoError(t, card.SetContent("v2"))
	_, err := card.Save(context.Background())

	assert.Error(t, err)
	assert.False(t, card.Editing(), "save exits edit mode even on failure")
	assert.Equal(t, "v1", card.Content())
}

// Test front matter parsing
func TestPromptService_parseFrontMatter_Valid(t *testing.T) {
	service := &PromptService{}

	content := []byte(`---
name: "Test Prompt"
type: "auto_reply"
active: true
---

This is the prompt content.
With multiple lines.`)

	fm, promptText, err := service.parseFrontMatter(content)

	assert.NoError(t, err)
	assert.Equal(t, "Test Prompt", fm.Name)
	assert.Equal(t, api.PromptAutoReply, fm.Type)
	require.NotNil(t, fm.Active)
	assert.True(t, *fm.Active)
	assert.Equal(t, "This is the prompt content.\nWith multiple lines.", promptText)
}

func TestPromptService_parseFrontMatter_NoFrontMatter(t *testing.T) {
	service := &PromptService{}

	_, _, err := service.parseFrontMatter([]byte(`This is just content without front matter`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "front matter")
}

func TestPromptService_parseFrontMatter_InvalidYAML(t *testing.T) {
	service := &PromptService{}

	content := []byte(`---
invalid yaml: [ unclosed bracket
---

Content here`)

	_, _, err := service.parseFrontMatter(content)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "YAML")
}

func TestPromptService_parseFrontMatter_MissingName(t *testing.T) {
	service := &PromptService{}

	_, _, err := service.parseFrontMatter([]byte("---\ntype: custom\n---\nbody"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestPromptService_generateMarkdownContent(t *testing.T) {
	service := &PromptService{}

	content, err := service.generateMarkdownContent(PromptFrontMatter{
		Name: "Test Export",
		Type: api.PromptCategorization,
	}, "Classify this email")

	assert.NoError(t, err)
	s := string(content)
	assert.True(t, strings.HasPrefix(s, "---\n"))
	assert.Contains(t, s, "name: Test Export")
	assert.Contains(t, s, "type: categorization")
	assert.NotContains(t, s, "active:")
	assert.Contains(t, s, "Classify this email")

	fm, body, err := service.parseFrontMatter(content)
	require.NoError(t, err)
	assert.Equal(t, "Test Export", fm.Name)
	assert.Equal(t, "Classify this email", body)
}

func TestPromptService_ImportFile(t *testing.T) {
	gw := new(MockGateway)
	gw.On("CreatePrompt", mock.Anything, api.CreatePromptRequest{Name: "Imported", Type: api.PromptCustom, Content: "Do the thing"}).
		Return(&api.Prompt{ID: 3}, nil)
	gw.On("ListPrompts", mock.Anything).Return([]api.Prompt{{ID: 3}}, nil)

	path := filepath.Join(t.TempDir(), "imported.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nname: Imported\n---\n\nDo the thing\n"), 0644))

	svc, rec := newPrompts(gw)
	_, err := svc.ImportFile(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, []string{"Prompt created successfully."}, rec.messages())
}

func TestPromptService_ImportFileErrors(t *testing.T) {
	gw := new(MockGateway)
	svc, _ := newPrompts(gw)
	dir := t.TempDir()

	_, err := svc.ImportFile(context.Background(), filepath.Join(dir, "missing.md"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.md")
	require.NoError(t, os.WriteFile(bad, []byte("---\nname: X\ntype: poetry\n---\nbody"), 0644))
	_, err = svc.ImportFile(context.Background(), bad)
	assert.ErrorIs(t, err, api.ErrInvalidRequest)

	gw.AssertNotCalled(t, "CreatePrompt", mock.Anything, mock.Anything)
}

func TestPromptService_ExportFile(t *testing.T) {
	gw := new(MockGateway)
	gw.On("ListPrompts", mock.Anything).Return([]api.Prompt{{ID: 4, Name: "Reply", Type: api.PromptAutoReply, Content: "Be kind"}}, nil)

	svc, _ := newPrompts(gw)
	path := filepath.Join(t.TempDir(), "out", "reply.md")

	err := svc.ExportFile(context.Background(), 4, path)
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, svc.Load(context.Background()))
	require.NoError(t, svc.ExportFile(context.Background(), 4, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: Reply")
	assert.Contains(t, string(data), "type: auto_reply")
	assert.Contains(t, string(data), "Be kind")
}
