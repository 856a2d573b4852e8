package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"docvault/internal/document/models"
	"docvault/internal/document/retention"
	"docvault/internal/document/service/mocks"
	"docvault/internal/document/store"
	id "docvault/pkg/domain"
	dErrors "docvault/pkg/domain-errors"
	"docvault/pkg/platform/audit"
	"docvault/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockStore *mocks.MockStore
	mockTx    *mocks.MockAtomic
	mockAudit *mocks.MockAuditPublisher
	service   *Service
	ctx       context.Context
	actor     id.ActorID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockStore = mocks.NewMockStore(s.ctrl)
	s.mockTx = mocks.NewMockAtomic(s.ctrl)
	s.mockAudit = mocks.NewMockAuditPublisher(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.mockStore, s.mockTx, s.mockAudit, retention.NewGuard(), nil, nil, logger)
	s.ctx = context.Background()
	s.actor = id.ActorID(uuid.New())
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

// expectTx makes the mocked transactional boundary run its body.
func (s *ServiceSuite) expectTx() {
	s.mockTx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func validContent() models.Content {
	return models.Content{
		Title:         "Q3 custody statement",
		DocumentType:  "statement",
		FileReference: "s3://vault/q3-statement.pdf",
		FileSize:      2048,
		FileHash:      "sha256:1f3870be274f6c49b3e31a0c6728957f",
		MimeType:      "application/pdf",
	}
}

func activeRoot(actor id.ActorID) *models.Document {
	return &models.Document{
		ID:            id.NewDocumentID(),
		Version:       1,
		Status:        models.StatusActive,
		Title:         "Q3 custody statement",
		DocumentType:  "statement",
		FileReference: "s3://vault/q3-statement.pdf",
		CreatedBy:     actor,
		CreatedAt:     time.Now(),
	}
}

func (s *ServiceSuite) TestCreate() {
	s.Run("creates a version 1 root and audits once", func() {
		s.expectTx()
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				s.Equal(audit.EventTypeCreate, event.EventType)
				s.Equal("Document", event.EntityType)
				s.Equal(s.actor.String(), event.ActorID)
				return nil
			})

		doc, err := s.service.Create(s.ctx, validContent(), s.actor)
		s.Require().NoError(err)
		s.Equal(1, doc.Version)
		s.Equal(models.StatusActive, doc.Status)
		s.Nil(doc.RootID)
		s.False(doc.ID.IsNil())
	})

	s.Run("rejects missing required fields before any store access", func() {
		content := validContent()
		content.Title = ""

		_, err := s.service.Create(s.ctx, content, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a nil actor", func() {
		_, err := s.service.Create(s.ctx, validContent(), id.ActorID{})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("audit failure fails the create", func() {
		s.expectTx()
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeInternal, "audit sink down"))

		_, err := s.service.Create(s.ctx, validContent(), s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestAmend() {
	const reason = "regulatory correction"

	s.Run("supersedes the original and inserts the next version atomically", func() {
		original := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), original.ID).Return(original, nil)
		s.expectTx()
		s.mockStore.EXPECT().SaveAtomic(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, changes []store.Change) error {
				s.Require().Len(changes, 2)
				s.Equal(store.OpSupersede, changes[0].Op)
				s.Equal(original.ID, changes[0].Doc.ID)
				s.Equal(store.OpInsert, changes[1].Op)
				s.Equal(2, changes[1].Doc.Version)
				s.Require().NotNil(changes[1].Doc.RootID)
				s.Equal(original.ID, *changes[1].Doc.RootID)
				s.Equal(reason, changes[1].Doc.SupersessionReason)
				return nil
			})
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				s.Equal(audit.EventTypeAmend, event.EventType)
				s.Equal(original.ID.String(), event.Changes["superseded_id"])
				s.Equal("2", event.Changes["version"])
				return nil
			})

		amendment, err := s.service.Amend(s.ctx, original.ID, validContent(), reason, s.actor)
		s.Require().NoError(err)
		s.Equal(2, amendment.Version)
		s.Equal(models.StatusActive, amendment.Status)
	})

	s.Run("amendment of an amendment keeps the original root", func() {
		rootID := id.NewDocumentID()
		v2 := activeRoot(s.actor)
		v2.RootID = &rootID
		v2.Version = 2
		v2.SupersessionReason = "prior correction"

		s.mockStore.EXPECT().GetByID(gomock.Any(), v2.ID).Return(v2, nil)
		s.expectTx()
		s.mockStore.EXPECT().SaveAtomic(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, changes []store.Change) error {
				s.Require().Len(changes, 2)
				s.Equal(3, changes[1].Doc.Version)
				s.Equal(rootID, *changes[1].Doc.RootID)
				return nil
			})
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(nil)

		amendment, err := s.service.Amend(s.ctx, v2.ID, validContent(), reason, s.actor)
		s.Require().NoError(err)
		s.Equal(3, amendment.Version)
	})

	s.Run("fails not found for an unknown original", func() {
		unknown := id.NewDocumentID()
		s.mockStore.EXPECT().GetByID(gomock.Any(), unknown).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Amend(s.ctx, unknown, validContent(), reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects a short supersession reason before loading anything", func() {
		_, err := s.service.Amend(s.ctx, id.NewDocumentID(), validContent(), "typo", s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("lost save race surfaces as conflict", func() {
		original := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), original.ID).Return(original, nil)
		s.expectTx()
		s.mockStore.EXPECT().SaveAtomic(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

		_, err := s.service.Amend(s.ctx, original.ID, validContent(), reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("already superseded original conflicts without writing", func() {
		original := activeRoot(s.actor)
		original.Status = models.StatusSuperseded
		s.mockStore.EXPECT().GetByID(gomock.Any(), original.ID).Return(original, nil)

		_, err := s.service.Amend(s.ctx, original.ID, validContent(), reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("tombstoned original conflicts without writing", func() {
		original := activeRoot(s.actor)
		deletedAt := time.Now()
		original.DeletedAt = &deletedAt
		s.mockStore.EXPECT().GetByID(gomock.Any(), original.ID).Return(original, nil)

		_, err := s.service.Amend(s.ctx, original.ID, validContent(), reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("audit failure rolls the amendment back", func() {
		original := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), original.ID).Return(original, nil)
		// The boundary surfaces fn's error; the real implementations roll
		// back, which store tests cover.
		s.expectTx()
		s.mockStore.EXPECT().SaveAtomic(gomock.Any(), gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeInternal, "audit sink down"))

		_, err := s.service.Amend(s.ctx, original.ID, validContent(), reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestDelete() {
	const reason = "client offboarded, records retained per policy"

	s.Run("tombstones and audits once", func() {
		doc := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), doc.ID).Return(doc, nil)
		s.expectTx()
		s.mockStore.EXPECT().SoftDelete(gomock.Any(), doc.ID, s.actor, reason, gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, event audit.Event) error {
				s.Equal(audit.EventTypeDelete, event.EventType)
				s.Equal(reason, event.Reason)
				return nil
			})

		s.Require().NoError(s.service.Delete(s.ctx, doc.ID, reason, s.actor))
	})

	s.Run("empty reason fails before any store access", func() {
		err := s.service.Delete(s.ctx, id.NewDocumentID(), "", s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("short reason fails before any store access", func() {
		err := s.service.Delete(s.ctx, id.NewDocumentID(), "too short", s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("already deleted surfaces as conflict", func() {
		doc := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), doc.ID).Return(doc, nil)
		s.expectTx()
		s.mockStore.EXPECT().SoftDelete(gomock.Any(), doc.ID, s.actor, reason, gomock.Any()).
			Return(sentinel.ErrInvalidState)

		err := s.service.Delete(s.ctx, doc.ID, reason, s.actor)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("audit failure fails the delete", func() {
		doc := activeRoot(s.actor)
		s.mockStore.EXPECT().GetByID(gomock.Any(), doc.ID).Return(doc, nil)
		s.expectTx()
		s.mockStore.EXPECT().SoftDelete(gomock.Any(), doc.ID, s.actor, reason, gomock.Any()).Return(nil)
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).
			Return(dErrors.New(dErrors.CodeInternal, "audit sink down"))

		err := s.service.Delete(s.ctx, doc.ID, reason, s.actor)
		s.Require().Error(err)
	})
}

func (s *ServiceSuite) TestUpdate() {
	s.Run("always forbidden, store never touched", func() {
		err := s.service.Update(s.ctx, id.NewDocumentID(), validContent())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestGetHistory() {
	s.Run("returns the resolved chain", func() {
		root := activeRoot(s.actor)
		rootID := root.ID
		v2 := activeRoot(s.actor)
		v2.RootID = &rootID
		v2.Version = 2

		s.mockStore.EXPECT().GetByID(gomock.Any(), v2.ID).Return(v2, nil)
		s.mockStore.EXPECT().FindLineage(gomock.Any(), rootID, true).
			Return([]*models.Document{root, v2}, nil)

		chain, err := s.service.GetHistory(s.ctx, v2.ID)
		s.Require().NoError(err)
		s.Require().Len(chain, 2)
		s.Equal(1, chain[0].Version)
		s.Equal(2, chain[1].Version)
	})

	s.Run("unknown id fails not found", func() {
		unknown := id.NewDocumentID()
		s.mockStore.EXPECT().GetByID(gomock.Any(), unknown).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.GetHistory(s.ctx, unknown)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
