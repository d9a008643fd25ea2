package media

import (
	"sync"

	"github.com/rs/zerolog"

	"roastery/internal/config"
)

// Session owns the staging state for one client session.
type Session struct {
	Store    *Store
	Uploader *Uploader
}

// Manager hands out per-session staging stores and uploaders. Staging
// state lives per session key, in memory, for the lifetime of the
// process.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	storage  Storage
	thumbs   *Thumbnailer
	policies *config.MediaConfig
	folder   string
	limit    int
	log      zerolog.Logger
	onStatus func(id string, from, to Status)
}

func NewManager(storage Storage, policies *config.MediaConfig, limit int, log zerolog.Logger) *Manager {
	if policies == nil {
		policies = config.DefaultMediaConfig()
	}
	folder := "coffees"
	if p := policies.GetPolicy("photo"); p != nil && p.Folder != "" {
		folder = p.Folder
	}
	return &Manager{
		sessions: make(map[string]*Session),
		storage:  storage,
		thumbs:   NewThumbnailer(policies.Thumbnails),
		policies: policies,
		folder:   folder,
		limit:    limit,
		log:      log,
	}
}

// OnStatusChange registers an observer applied to every session's store.
// Must be called before sessions are created.
func (m *Manager) OnStatusChange(fn func(id string, from, to Status)) {
	m.onStatus = fn
}

// Session returns the staging session for key, creating it on first use.
func (m *Manager) Session(key string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if session, ok := m.sessions[key]; ok {
		return session
	}

	store := NewStore(m.storage, m.thumbs, m.policies, m.log)
	if m.onStatus != nil {
		store.OnStatusChange(m.onStatus)
	}
	session := &Session{
		Store:    store,
		Uploader: NewUploader(store, m.storage, m.folder, m.limit, m.log),
	}
	m.sessions[key] = session
	return session
}
