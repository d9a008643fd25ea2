package media

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"roastery/internal/s3"
)

// mockStorage implements the Storage interface for testing
type mockStorage struct {
	presignPutFunc func(ctx context.Context, fileName, contentType, folder string) (*s3.PresignedUpload, error)
	uploadFunc     func(ctx context.Context, signedURL, contentType string, body []byte) error
	deleteFunc     func(ctx context.Context, key string) bool

	presignCalls atomic.Int32
	deleteCalls  atomic.Int32
}

func (m *mockStorage) PresignPut(ctx context.Context, fileName, contentType, folder string) (*s3.PresignedUpload, error) {
	m.presignCalls.Add(1)
	if m.presignPutFunc != nil {
		return m.presignPutFunc(ctx, fileName, contentType, folder)
	}
	key := s3.ObjectKey(folder, fileName)
	return &s3.PresignedUpload{
		URL:       "https://signed.example/" + key,
		Key:       key,
		PublicURL: m.PublicURL(key),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (m *mockStorage) UploadViaPresigned(ctx context.Context, signedURL, contentType string, body []byte) error {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, signedURL, contentType, body)
	}
	return nil
}

func (m *mockStorage) Delete(ctx context.Context, key string) bool {
	m.deleteCalls.Add(1)
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, key)
	}
	return true
}

func (m *mockStorage) PublicURL(key string) string {
	return "https://test-bucket.s3.sa-east-1.amazonaws.com/" + key
}

func newTestStore(storage Storage) *Store {
	return NewStore(storage, nil, nil, zerolog.Nop())
}

func stagePhotos(t *testing.T, store *Store, names ...string) []Staged {
	t.Helper()
	files := make([]FileInput, 0, len(names))
	for _, name := range names {
		files = append(files, FileInput{
			Name:        name,
			ContentType: "image/jpeg",
			Data:        []byte("jpeg-bytes-" + name),
		})
	}
	added, errs := store.Add(context.Background(), files)
	if len(errs) != 0 {
		t.Fatalf("staging rejected files: %v", errs)
	}
	if len(added) != len(names) {
		t.Fatalf("expected %d staged, got %d", len(names), len(added))
	}
	return added
}

func TestUploadAll_Empty(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	results, err := uploader.UploadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestUploadAll_Success(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	staged := stagePhotos(t, store, "beans.jpg", "bag.jpg")

	results, err := uploader.UploadAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	for i, result := range results {
		if result.ID != staged[i].ID {
			t.Errorf("result %d out of staging order: got %s, want %s", i, result.ID, staged[i].ID)
		}
		if !strings.HasPrefix(result.StorageKey, "coffees/") {
			t.Errorf("key %q missing folder prefix", result.StorageKey)
		}
		if !strings.HasSuffix(result.StorageKey, ".jpg") {
			t.Errorf("key %q missing extension", result.StorageKey)
		}
		if result.PublicURL != "https://test-bucket.s3.sa-east-1.amazonaws.com/"+result.StorageKey {
			t.Errorf("unexpected public url %q", result.PublicURL)
		}
	}

	for _, s := range store.List() {
		if s.Status != StatusCompleted {
			t.Errorf("item %s status = %s, want %s", s.ID, s.Status, StatusCompleted)
		}
		if s.Progress != 100 {
			t.Errorf("item %s progress = %d, want 100", s.ID, s.Progress)
		}
	}
}

func TestUploadAll_SkipsCompleted(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	stagePhotos(t, store, "beans.jpg")

	first, err := uploader.UploadAll(context.Background())
	if err != nil {
		t.Fatalf("first upload failed: %v", err)
	}
	if got := storage.presignCalls.Load(); got != 1 {
		t.Fatalf("expected 1 presign call, got %d", got)
	}

	second, err := uploader.UploadAll(context.Background())
	if err != nil {
		t.Fatalf("second upload failed: %v", err)
	}
	if got := storage.presignCalls.Load(); got != 1 {
		t.Errorf("completed item was re-presigned: %d calls", got)
	}
	if len(second) != 1 || second[0] != first[0] {
		t.Errorf("second run should return the stored result, got %+v", second)
	}
}

func TestUploadAll_FailureMarksItemAndBatch(t *testing.T) {
	storage := &mockStorage{}
	storage.uploadFunc = func(ctx context.Context, signedURL, contentType string, body []byte) error {
		if strings.Contains(string(body), "bad.jpg") {
			return errors.New("access denied")
		}
		return nil
	}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 1, zerolog.Nop())

	staged := stagePhotos(t, store, "good.jpg", "bad.jpg")

	_, err := uploader.UploadAll(context.Background())
	if err == nil {
		t.Fatal("expected batch error")
	}
	if !strings.Contains(err.Error(), "bad.jpg") {
		t.Errorf("batch error should name the failed file, got %v", err)
	}

	bad, _ := store.Get(staged[1].ID)
	if bad.Status != StatusError {
		t.Errorf("failed item status = %s, want %s", bad.Status, StatusError)
	}
	if bad.ErrorMessage == "" {
		t.Error("failed item must carry an error message")
	}
}

func TestUploadAll_RespectsConcurrencyLimit(t *testing.T) {
	var current, peak atomic.Int32
	storage := &mockStorage{}
	storage.uploadFunc = func(ctx context.Context, signedURL, contentType string, body []byte) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return nil
	}

	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 2, zerolog.Nop())

	stagePhotos(t, store, "a.jpg", "b.jpg", "c.jpg", "d.jpg", "e.jpg", "f.jpg")

	if _, err := uploader.UploadAll(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("observed %d concurrent uploads, limit is 2", p)
	}
}

func TestRetry_AfterFailure(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	storage := &mockStorage{}
	storage.uploadFunc = func(ctx context.Context, signedURL, contentType string, body []byte) error {
		if fail.Load() {
			return errors.New("transient storage failure")
		}
		return nil
	}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	staged := stagePhotos(t, store, "beans.jpg")
	id := staged[0].ID

	if _, err := uploader.UploadAll(context.Background()); err == nil {
		t.Fatal("expected first upload to fail")
	}
	item, _ := store.Get(id)
	if item.Status != StatusError {
		t.Fatalf("status = %s, want %s", item.Status, StatusError)
	}

	fail.Store(false)
	if ok := uploader.Retry(context.Background(), id); !ok {
		t.Fatal("retry should succeed once storage recovers")
	}
	item, _ = store.Get(id)
	if item.Status != StatusCompleted {
		t.Errorf("status after retry = %s, want %s", item.Status, StatusCompleted)
	}
}

func TestRetry_UnknownID(t *testing.T) {
	storage := &mockStorage{}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	if ok := uploader.Retry(context.Background(), "missing"); ok {
		t.Error("retry of an unknown id should report failure")
	}
}

func TestUploadOne_SingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	storage := &mockStorage{}
	storage.uploadFunc = func(ctx context.Context, signedURL, contentType string, body []byte) error {
		close(entered)
		<-release
		return nil
	}
	store := newTestStore(storage)
	uploader := NewUploader(store, storage, "coffees", 4, zerolog.Nop())

	staged := stagePhotos(t, store, "beans.jpg")
	id := staged[0].ID

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := uploader.uploadOne(context.Background(), id); err != nil {
			t.Errorf("first upload failed: %v", err)
		}
	}()

	<-entered
	if _, err := uploader.uploadOne(context.Background(), id); !errors.Is(err, ErrUploadInFlight) {
		t.Errorf("concurrent upload error = %v, want %v", err, ErrUploadInFlight)
	}
	close(release)
	wg.Wait()
}
