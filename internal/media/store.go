package media

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"roastery/internal/config"
)

// FileInput is one client-selected file handed to the store.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// ExistingMedia seeds the store when editing a listing whose media already
// lives in object storage.
type ExistingMedia struct {
	ID   string
	URL  string
	Kind Kind
}

// UpdatePatch merges status/progress/error fields into one entry.
type UpdatePatch struct {
	Status       *Status
	Progress     *int
	ErrorMessage *string
	StorageKey   *string
	PublicURL    *string
}

// Store holds the working set of staged media for one session.
type Store struct {
	mu    sync.Mutex
	items map[string]*Staged
	order []string

	storage  Storage
	thumbs   *Thumbnailer
	policies *config.MediaConfig
	log      zerolog.Logger

	// onStatus observes every committed status transition.
	onStatus func(id string, from, to Status)
}

func NewStore(storage Storage, thumbs *Thumbnailer, policies *config.MediaConfig, log zerolog.Logger) *Store {
	if policies == nil {
		policies = config.DefaultMediaConfig()
	}
	return &Store{
		items:    make(map[string]*Staged),
		storage:  storage,
		thumbs:   thumbs,
		policies: policies,
		log:      log,
	}
}

// OnStatusChange registers a transition observer. Must be called before the
// store is shared.
func (s *Store) OnStatusChange(fn func(id string, from, to Status)) {
	s.onStatus = fn
}

// Add validates, classifies and stages files. Invalid files never enter the
// store; each yields a ValidationError in the returned slice. Video
// metadata extraction is best-effort and non-fatal.
func (s *Store) Add(ctx context.Context, files []FileInput) ([]Staged, []error) {
	var added []Staged
	var errs []error

	for _, file := range files {
		kind := ClassifyKind(file.Name, file.ContentType)
		if err := s.validate(file, kind); err != nil {
			errs = append(errs, err)
			continue
		}

		staged := &Staged{
			ID:          uuid.NewString(),
			FileName:    file.Name,
			ContentType: file.ContentType,
			Data:        file.Data,
			Kind:        kind,
			Status:      StatusPending,
			StagedAt:    time.Now(),
		}
		staged.PreviewURL = "local://" + staged.ID

		switch kind {
		case Video:
			staged.DurationSeconds = VideoDuration(file.Data)
		case Photo:
			if s.thumbs != nil {
				thumb, err := s.thumbs.Generate(file.Data)
				if err != nil {
					s.log.Warn().Err(err).Str("file", file.Name).Msg("thumbnail generation failed")
				} else {
					staged.Thumbnail = thumb
				}
			}
		}

		s.mu.Lock()
		s.items[staged.ID] = staged
		s.order = append(s.order, staged.ID)
		// Snapshot under the lock: once the pointer is in the map a
		// concurrent Update may mutate it.
		added = append(added, *staged)
		s.mu.Unlock()
	}

	return added, errs
}

func (s *Store) validate(file FileInput, kind Kind) error {
	policyKind := "photo"
	if kind == Video {
		policyKind = "video"
	}
	policy := s.policies.GetPolicy(policyKind)
	if policy == nil {
		return &ValidationError{FileName: file.Name, Reason: fmt.Sprintf("no policy for %s", policyKind)}
	}

	allowed := false
	for _, mime := range policy.AllowedMimes {
		if file.ContentType == mime {
			allowed = true
			break
		}
	}
	if !allowed {
		return &ValidationError{FileName: file.Name, Reason: fmt.Sprintf("content type %q not allowed", file.ContentType)}
	}

	if int64(len(file.Data)) > policy.SizeMaxBytes {
		return &ValidationError{
			FileName: file.Name,
			Reason:   fmt.Sprintf("size %d exceeds maximum %d", len(file.Data), policy.SizeMaxBytes),
		}
	}

	return nil
}

// Remove releases the entry's preview, issues a best-effort storage delete
// when an object was already uploaded, and drops the entry. Storage delete
// failure is logged, never surfaced.
func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	staged, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	s.releasePreview(staged)
	key := staged.StorageKey
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if key != "" && s.storage != nil {
		if !s.storage.Delete(ctx, key) {
			s.log.Warn().Str("key", key).Msg("failed to delete object from storage")
		}
	}
	return nil
}

// Update merges patch fields for one entry. Status changes are validated
// against the lifecycle; completed entries must carry a storage key and
// public URL, errored ones a message.
func (s *Store) Update(id string, patch UpdatePatch) error {
	s.mu.Lock()

	staged, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}

	from := staged.Status
	if patch.Status != nil {
		if err := ValidateTransition(from, *patch.Status); err != nil {
			s.mu.Unlock()
			return err
		}
	}

	if patch.StorageKey != nil {
		staged.StorageKey = *patch.StorageKey
	}
	if patch.PublicURL != nil {
		staged.PublicURL = *patch.PublicURL
	}
	if patch.Progress != nil {
		staged.Progress = *patch.Progress
	}
	if patch.ErrorMessage != nil {
		staged.ErrorMessage = *patch.ErrorMessage
	}

	var to Status
	changed := false
	if patch.Status != nil && *patch.Status != from {
		to = *patch.Status
		switch to {
		case StatusCompleted:
			if staged.StorageKey == "" || staged.PublicURL == "" {
				s.mu.Unlock()
				return fmt.Errorf("completed media %s must have a storage key and public url", id)
			}
		case StatusError:
			if staged.ErrorMessage == "" {
				s.mu.Unlock()
				return fmt.Errorf("errored media %s must have an error message", id)
			}
		}
		staged.Status = to
		changed = true
	}
	onStatus := s.onStatus
	s.mu.Unlock()

	if changed && onStatus != nil {
		onStatus(id, from, to)
	}
	return nil
}

// Get returns a copy of one entry.
func (s *Store) Get(id string) (Staged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged, ok := s.items[id]
	if !ok {
		return Staged{}, ErrNotFound
	}
	return *staged, nil
}

// List returns copies of all entries in staging order.
func (s *Store) List() []Staged {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Staged, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SeedExisting replaces the working set with entries already uploaded,
// marked completed. The remote URL serves as preview and storage key, so
// re-submitting an edit never re-uploads unchanged media.
func (s *Store) SeedExisting(items []ExistingMedia) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, staged := range s.items {
		s.releasePreview(staged)
	}
	s.items = make(map[string]*Staged, len(items))
	s.order = s.order[:0]

	for _, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		s.items[id] = &Staged{
			ID:         id,
			Kind:       item.Kind,
			Status:     StatusCompleted,
			Progress:   100,
			StorageKey: item.URL,
			PublicURL:  item.URL,
			PreviewURL: item.URL,
			StagedAt:   time.Now(),
		}
		s.order = append(s.order, id)
	}
}

// Clear releases every preview exactly once and empties the store. Remote
// objects are left in place: a cleared form after successful submission
// must not destroy the media the submitted listing now references.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, staged := range s.items {
		s.releasePreview(staged)
	}
	s.items = make(map[string]*Staged)
	s.order = s.order[:0]
}

// releasePreview frees local preview resources. Idempotent; a second
// release is a no-op. Caller holds the lock.
func (s *Store) releasePreview(staged *Staged) {
	if staged.released {
		return
	}
	staged.released = true
	staged.Data = nil
	staged.Thumbnail = nil
	staged.PreviewURL = ""
}
