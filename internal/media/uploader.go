package media

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"roastery/internal/s3"
)

// Storage is the slice of the object-storage client the upload pipeline
// needs. Satisfied by *s3.Client.
type Storage interface {
	PresignPut(ctx context.Context, fileName, contentType, folder string) (*s3.PresignedUpload, error)
	UploadViaPresigned(ctx context.Context, signedURL, contentType string, body []byte) error
	Delete(ctx context.Context, key string) bool
	PublicURL(key string) string
}

// Uploader drives every pending or errored staged item through the storage
// client and collects UploadResults. Items already completed pass through
// untouched.
type Uploader struct {
	Store   *Store
	storage Storage
	folder  string
	limit   int
	log     zerolog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

func NewUploader(store *Store, storage Storage, folder string, limit int, log zerolog.Logger) *Uploader {
	if limit <= 0 {
		limit = 4
	}
	return &Uploader{
		Store:    store,
		storage:  storage,
		folder:   folder,
		limit:    limit,
		log:      log,
		inflight: make(map[string]bool),
	}
}

// UploadAll uploads everything not yet completed, at most limit PUTs in
// flight at once, and returns results in staging order. Any single failure
// marks its item error and fails the whole batch; completed items keep
// their results, so a follow-up call only retries the failures.
func (u *Uploader) UploadAll(ctx context.Context) ([]UploadResult, error) {
	items := u.Store.List()
	if len(items) == 0 {
		return []UploadResult{}, nil
	}

	results := make([]UploadResult, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.limit)

	for i, item := range items {
		if item.Status == StatusCompleted {
			results[i] = UploadResult{
				ID:         item.ID,
				Kind:       item.Kind,
				PublicURL:  item.PublicURL,
				StorageKey: item.StorageKey,
			}
			continue
		}

		g.Go(func() error {
			result, err := u.uploadOne(gctx, item.ID)
			if err != nil {
				return fmt.Errorf("upload %s: %w", item.FileName, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Retry re-attempts exactly one errored (or still pending) item.
func (u *Uploader) Retry(ctx context.Context, id string) bool {
	if _, err := u.Store.Get(id); err != nil {
		return false
	}
	if _, err := u.uploadOne(ctx, id); err != nil {
		u.log.Warn().Err(err).Str("id", id).Msg("retry failed")
		return false
	}
	return true
}

// uploadOne runs the presign-then-PUT sequence for a single item. At most
// one attempt per ID may be in flight; a second concurrent attempt is
// rejected before touching the item's status.
func (u *Uploader) uploadOne(ctx context.Context, id string) (UploadResult, error) {
	u.mu.Lock()
	if u.inflight[id] {
		u.mu.Unlock()
		return UploadResult{}, ErrUploadInFlight
	}
	u.inflight[id] = true
	u.mu.Unlock()

	defer func() {
		u.mu.Lock()
		delete(u.inflight, id)
		u.mu.Unlock()
	}()

	item, err := u.Store.Get(id)
	if err != nil {
		return UploadResult{}, err
	}
	if item.Status == StatusCompleted {
		return UploadResult{ID: item.ID, Kind: item.Kind, PublicURL: item.PublicURL, StorageKey: item.StorageKey}, nil
	}

	if err := u.markUploading(id); err != nil {
		return UploadResult{}, err
	}

	presigned, err := u.storage.PresignPut(ctx, item.FileName, item.ContentType, u.folder)
	if err != nil {
		u.markError(id, err)
		return UploadResult{}, err
	}

	if err := u.storage.UploadViaPresigned(ctx, presigned.URL, item.ContentType, item.Data); err != nil {
		u.markError(id, err)
		return UploadResult{}, err
	}

	if err := u.markCompleted(id, presigned.Key, presigned.PublicURL); err != nil {
		return UploadResult{}, err
	}

	u.log.Info().Str("id", id).Str("key", presigned.Key).Msg("media uploaded")
	return UploadResult{
		ID:         item.ID,
		Kind:       item.Kind,
		PublicURL:  presigned.PublicURL,
		StorageKey: presigned.Key,
	}, nil
}

func (u *Uploader) markUploading(id string) error {
	status := StatusUploading
	progress := 0
	return u.Store.Update(id, UpdatePatch{Status: &status, Progress: &progress})
}

func (u *Uploader) markCompleted(id, key, publicURL string) error {
	status := StatusCompleted
	progress := 100
	return u.Store.Update(id, UpdatePatch{
		Status:     &status,
		Progress:   &progress,
		StorageKey: &key,
		PublicURL:  &publicURL,
	})
}

func (u *Uploader) markError(id string, cause error) {
	status := StatusError
	message := cause.Error()
	if err := u.Store.Update(id, UpdatePatch{Status: &status, ErrorMessage: &message}); err != nil {
		u.log.Error().Err(err).Str("id", id).Msg("failed to record upload error")
	}
}
