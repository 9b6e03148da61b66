package services

import (
	"context"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/readaloud/internal/core"
	"github.com/markdave123-py/readaloud/internal/core/autoread"
	objectclient "github.com/markdave123-py/readaloud/internal/core/object-client"
	"github.com/markdave123-py/readaloud/internal/core/pages"
	"github.com/markdave123-py/readaloud/internal/models"
	"github.com/markdave123-py/readaloud/internal/observability"
)

type DocumentService struct {
	db       core.DbClient
	storage  core.ObjectClient
	bucket   string
	renderer core.DocumentRenderer
	reader   *ReaderService
	log      *observability.Logger
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string, renderer core.DocumentRenderer, reader *ReaderService, log *observability.Logger) *DocumentService {
	if log == nil {
		log = observability.Nop()
	}
	return &DocumentService{db: db, storage: storage, bucket: bucket, renderer: renderer, reader: reader, log: log}
}

// Upload validates and stores a PDF, records it and opens a reading session
// on it. Invalid settings and unrenderable input (ErrCorruptDocument) fail
// before anything is stored.
func (s *DocumentService) Upload(ctx context.Context, userID, filename, contentType string, data []byte, settings SessionSettings) (*models.Document, autoread.Snapshot, error) {
	if err := s.reader.ValidateSettings(settings); err != nil {
		return nil, autoread.Snapshot{}, err
	}

	doc, err := s.renderer.Open(ctx, data)
	if err != nil {
		return nil, autoread.Snapshot{}, err
	}

	docID := uuid.NewString()
	key := s.objectKey(userID, docID, filename)
	if contentType == "" {
		contentType = "application/pdf"
	}

	url, err := s.storage.UploadFile(ctx, s.bucket, key, data, contentType)
	if err != nil {
		_ = doc.Close()
		return nil, autoread.Snapshot{}, core.IOError("failed to store document", err)
	}

	now := time.Now()
	meta := &models.Document{
		ID:          docID,
		UserID:      userID,
		FileName:    filepath.Base(filename),
		StorageURL:  url,
		ContentType: contentType,
		SHA256:      pages.Digest(data),
		PageCount:   doc.PageCount(),
		Status:      models.DocumentStatusReady,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.CreateDocument(ctx, meta); err != nil {
		_ = doc.Close()
		_ = s.storage.DeleteFile(context.WithoutCancel(ctx), s.bucket, key)
		return nil, autoread.Snapshot{}, core.IOError("failed to store document metadata", err)
	}

	snap, err := s.reader.Open(ctx, userID, pages.Source{Digest: meta.SHA256, Doc: doc}, settings)
	if err != nil {
		return nil, autoread.Snapshot{}, err
	}
	s.log.Info().Str("document_id", docID).Int("pages", meta.PageCount).Msg("document uploaded")
	return meta, snap, nil
}

// Open loads a stored document of userID and starts a session on it.
func (s *DocumentService) Open(ctx context.Context, userID, docID string, settings SessionSettings) (*models.Document, autoread.Snapshot, error) {
	if err := s.reader.ValidateSettings(settings); err != nil {
		return nil, autoread.Snapshot{}, err
	}

	meta, err := s.Get(ctx, userID, docID)
	if err != nil {
		return nil, autoread.Snapshot{}, err
	}

	bucket, key := objectclient.ParseS3URL(meta.StorageURL)
	data, err := s.storage.GetFile(ctx, bucket, key)
	if err != nil {
		return nil, autoread.Snapshot{}, core.IOError("failed to load document", err)
	}

	doc, err := s.renderer.Open(ctx, data)
	if err != nil {
		if core.TypeOf(err) == core.ErrorTypeCorruptDocument {
			if uerr := s.db.UpdateDocumentStatus(ctx, docID, models.DocumentStatusFailed); uerr != nil {
				s.log.Warn().Err(uerr).Str("document_id", docID).Msg("mark document failed")
			}
		}
		return nil, autoread.Snapshot{}, err
	}

	digest := meta.SHA256
	if digest == "" {
		digest = pages.Digest(data)
	}
	snap, err := s.reader.Open(ctx, userID, pages.Source{Digest: digest, Doc: doc}, settings)
	if err != nil {
		return nil, autoread.Snapshot{}, err
	}
	return meta, snap, nil
}

// Get returns a document owned by userID. Documents of other users are
// reported as missing.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	meta, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, core.IOError("failed to load document metadata", err)
	}
	if meta == nil || meta.UserID != userID {
		return nil, core.NotFoundError("document not found", nil)
	}
	return meta, nil
}

func (s *DocumentService) ListByUser(ctx context.Context, userID string) ([]models.Document, error) {
	docs, err := s.db.ListDocumentsByUser(ctx, userID)
	if err != nil {
		return nil, core.IOError("failed to list documents", err)
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return docs, nil
}

// objectKey creates a consistent S3 key layout.
func (s *DocumentService) objectKey(userID, docID, filename string) string {
	filename = strings.TrimSpace(filepath.Base(filename))
	filename = strings.ReplaceAll(filename, " ", "_")
	if filename == "" || filename == "." {
		filename = "document.pdf"
	}
	return path.Join("users", userID, "documents", docID, filename)
}
