package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// FileThreadStore persists conversation threads as a JSON file, matching the
// teacher's file-based session/pairing store pattern for standalone mode.
type FileThreadStore struct {
	mu      sync.Mutex
	path    string
	threads map[string]*store.ConversationThread
}

// NewFileThreadStore loads (or creates) the thread file at path.
func NewFileThreadStore(path string) *FileThreadStore {
	s := &FileThreadStore{path: path, threads: make(map[string]*store.ConversationThread)}
	s.load()
	return s
}

func (s *FileThreadStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var list []*store.ConversationThread
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, t := range list {
		s.threads[t.ID] = t
	}
}

func (s *FileThreadStore) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	list := make([]*store.ConversationThread, 0, len(s.threads))
	for _, t := range s.threads {
		list = append(list, t)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *FileThreadStore) Create(t *store.ConversationThread) (*store.ConversationThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	t.LastActivity = t.CreatedAt
	if t.Status == "" {
		t.Status = store.ThreadActive
	}
	s.threads[t.ID] = t
	return t, s.saveLocked()
}

func (s *FileThreadStore) Get(id string) (*store.ConversationThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return nil, fmt.Errorf("thread not found: %s", id)
	}
	return t, nil
}

func (s *FileThreadStore) Update(t *store.ConversationThread) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.threads[t.ID]; !ok {
		return fmt.Errorf("thread not found: %s", t.ID)
	}
	s.threads[t.ID] = t
	return s.saveLocked()
}

func (s *FileThreadStore) FindActiveByRecipient(agentID, channel string, candidates []string) (*store.ConversationThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candSet := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		candSet[c] = true
	}

	var best *store.ConversationThread
	for _, t := range s.threads {
		if t.AgentID != agentID || t.Channel != channel || t.Status != store.ThreadActive {
			continue
		}
		if !candSet[t.Recipient] {
			continue
		}
		if best == nil || t.LastActivity.After(best.LastActivity) {
			best = t
		}
	}
	return best, nil
}

func (s *FileThreadStore) LastClosedAt(agentID, channel, recipient string) (time.Time, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *store.ConversationThread
	for _, t := range s.threads {
		if t.AgentID != agentID || t.Channel != channel || t.Recipient != recipient {
			continue
		}
		if t.Status == store.ThreadActive || t.CompletedAt == nil {
			continue
		}
		if best == nil || t.CompletedAt.After(*best.CompletedAt) {
			best = t
		}
	}
	if best == nil {
		return time.Time{}, false, false
	}
	return *best.CompletedAt, best.ForcedClosure, true
}
