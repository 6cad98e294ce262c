package file

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// FilePairingStore persists pairing requests as a JSON file, matching the
// teacher's file-based session/skill store pattern for standalone mode.
type FilePairingStore struct {
	mu   sync.Mutex
	path string
	reqs map[string]*store.PairingRequest // keyed by code
}

// NewFilePairingStore loads (or creates) the pairing request file at path.
func NewFilePairingStore(path string) *FilePairingStore {
	s := &FilePairingStore{path: path, reqs: make(map[string]*store.PairingRequest)}
	s.load()
	return s
}

func (s *FilePairingStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var list []*store.PairingRequest
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, r := range list {
		s.reqs[r.Code] = r
	}
}

func (s *FilePairingStore) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "" {
		os.MkdirAll(dir, 0755)
	}
	list := make([]*store.PairingRequest, 0, len(s.reqs))
	for _, r := range s.reqs {
		list = append(list, r)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}

func (s *FilePairingStore) RequestPairing(userID, channel, chatID, agentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reqs {
		if r.UserID == userID && r.Channel == channel && r.ChatID == chatID {
			return r.Code, nil
		}
	}

	code := generateCode()
	s.reqs[code] = &store.PairingRequest{
		Code:      code,
		UserID:    userID,
		Channel:   channel,
		ChatID:    chatID,
		AgentID:   agentID,
		CreatedAt: time.Now(),
	}
	return code, s.saveLocked()
}

func (s *FilePairingStore) IsPaired(userID, channel, chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reqs {
		if r.UserID == userID && r.Channel == channel && r.ChatID == chatID && r.Approved {
			return true
		}
	}
	return false
}

func (s *FilePairingStore) Approve(code string) (*store.PairingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reqs[code]
	if !ok {
		return nil, fmt.Errorf("pairing code not found: %s", code)
	}
	r.Approved = true
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *FilePairingStore) List() []store.PairingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.PairingRequest, 0, len(s.reqs))
	for _, r := range s.reqs {
		out = append(out, *r)
	}
	return out
}

func generateCode() string {
	b := make([]byte, 4)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
