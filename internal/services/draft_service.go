package services

import (
	"context"

	"github.com/ajramos/mailflow/internal/api"
	"go.uber.org/zap"
)

// Draft notice and empty-state texts
const (
	msgDraftUpdated      = "Draft updated successfully."
	msgDraftUpdateFailed = "Failed to update draft."
	msgDraftDeleted      = "Draft deleted successfully."
	msgDraftDeleteFailed = "Failed to delete draft."
	msgDraftCreated      = "Draft created successfully."
	msgDraftCreateFailed = "Failed to create draft."
	EmptyDraftsTitle     = "No drafts yet"
	EmptyDraftsHint      = "Generate drafts from your emails using the AI assistant"
)

// DraftService manages the drafts collection
type DraftService struct {
	gw     DraftGateway
	drafts *Collection[api.Draft, struct{}]
	logger *zap.Logger
}

// NewDraftService creates the drafts view service
func NewDraftService(gw DraftGateway, notifier *Notifier, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		gw:     gw,
		logger: logger,
		drafts: NewCollection(CollectionConfig[api.Draft, struct{}]{
			Noun:     "drafts",
			Fetch:    ListFetcher(gw.ListDrafts),
			ID:       func(d api.Draft) api.ID { return d.ID },
			Notifier: notifier,
			Logger:   logger,
		}),
	}
}

// Drafts exposes the underlying collection
func (s *DraftService) Drafts() *Collection[api.Draft, struct{}] {
	return s.drafts
}

// Load re-fetches every draft
func (s *DraftService) Load(ctx context.Context) error {
	return s.drafts.Load(ctx)
}

// Get fetches one draft directly from the server
func (s *DraftService) Get(ctx context.Context, id api.ID) (*api.Draft, error) {
	return s.gw.GetDraft(ctx, id)
}

// Create stores a new draft and re-fetches
func (s *DraftService) Create(ctx context.Context, req api.CreateDraftRequest) (Notice, error) {
	return s.drafts.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gw.CreateDraft(ctx, req)
		return err
	}, msgDraftCreated, msgDraftCreateFailed)
}

// Update saves the edited fields of a draft and re-fetches
func (s *DraftService) Update(ctx context.Context, id api.ID, req api.UpdateDraftRequest) (Notice, error) {
	return s.drafts.Mutate(ctx, func(ctx context.Context) error {
		_, err := s.gw.UpdateDraft(ctx, id, req)
		return err
	}, msgDraftUpdated, msgDraftUpdateFailed)
}

// RequestDelete asks for confirmation before deleting id
func (s *DraftService) RequestDelete(id api.ID) {
	s.drafts.RequestDelete(id)
}

// CancelDelete drops the pending delete
func (s *DraftService) CancelDelete() {
	s.drafts.CancelDelete()
}

// ConfirmDelete deletes the pending draft and re-fetches
func (s *DraftService) ConfirmDelete(ctx context.Context) (Notice, error) {
	return s.drafts.ConfirmDelete(ctx, func(ctx context.Context, id api.ID) error {
		_, err := s.gw.DeleteDraft(ctx, id)
		return err
	}, msgDraftDeleted, msgDraftDeleteFailed)
}
