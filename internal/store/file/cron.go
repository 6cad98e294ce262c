package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// JobHandler runs one scheduled job and reports its result.
type JobHandler func(job *store.CronJob) (*store.CronJobResult, error)

// RetryConfig controls re-attempts of a failed job run.
type RetryConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

// FileCronStore persists cron jobs as a JSON file and drives them through a
// robfig/cron/v3 engine, the same standard-5-field cron scheduler the rest
// of the pack uses for background workflow scheduling.
type FileCronStore struct {
	mu      sync.Mutex
	path    string
	jobs    map[string]*store.CronJob
	engine  *cron.Cron
	entries map[string]cron.EntryID
	onJob   JobHandler
	retry   RetryConfig
}

// NewFileCronStore loads (or creates) the cron job file at path.
func NewFileCronStore(path string) *FileCronStore {
	s := &FileCronStore{
		path:    path,
		jobs:    make(map[string]*store.CronJob),
		engine:  cron.New(),
		entries: make(map[string]cron.EntryID),
		retry:   RetryConfig{MaxAttempts: 1},
	}
	s.load()
	return s
}

func (s *FileCronStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}
	var list []*store.CronJob
	if err := json.Unmarshal(data, &list); err != nil {
		return
	}
	for _, j := range list {
		s.jobs[j.ID] = j
	}
}

func (s *FileCronStore) saveLocked() error {
	list := make([]*store.CronJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		list = append(list, j)
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

// SetRetryConfig installs the retry policy applied to future job runs.
func (s *FileCronStore) SetRetryConfig(cfg RetryConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retry = cfg
}

// SetOnJob installs the handler invoked on every scheduled firing.
func (s *FileCronStore) SetOnJob(fn JobHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onJob = fn
}

// Start loads enabled jobs into the cron engine and begins firing them.
func (s *FileCronStore) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.Enabled {
			if err := s.scheduleLocked(job); err != nil {
				return fmt.Errorf("cron job %s: %w", job.ID, err)
			}
		}
	}
	s.engine.Start()
	return nil
}

// Stop halts the cron engine, waiting for in-flight jobs to finish.
func (s *FileCronStore) Stop() {
	<-s.engine.Stop().Done()
}

func (s *FileCronStore) scheduleLocked(job *store.CronJob) error {
	if entryID, ok := s.entries[job.ID]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, job.ID)
	}
	id := job.ID
	entryID, err := s.engine.AddFunc(job.Schedule, func() { s.run(id) })
	if err != nil {
		return err
	}
	s.entries[job.ID] = entryID
	return nil
}

func (s *FileCronStore) run(id string) {
	s.mu.Lock()
	job := s.jobs[id]
	handler := s.onJob
	retry := s.retry
	s.mu.Unlock()
	if job == nil || handler == nil {
		return
	}

	attempts := retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var result *store.CronJobResult
	var runErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, runErr = handler(job)
		if runErr == nil {
			break
		}
		if attempt < attempts-1 && retry.Backoff > 0 {
			time.Sleep(retry.Backoff)
		}
	}

	if err := s.RecordRun(id, time.Now(), result, runErr); err != nil {
		// Best-effort bookkeeping; the job itself already ran.
		_ = err
	}
}

// --- store.CronStore ---

func (s *FileCronStore) List(agentID string) ([]store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.CronJob
	for _, j := range s.jobs {
		if agentID == "" || j.AgentID == agentID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *FileCronStore) Get(id string) (*store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("cron job not found: %s", id)
	}
	cp := *j
	return &cp, nil
}

func (s *FileCronStore) Create(job store.CronJob) (*store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	s.jobs[job.ID] = &job
	if job.Enabled {
		if err := s.scheduleLocked(&job); err != nil {
			delete(s.jobs, job.ID)
			return nil, err
		}
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	cp := job
	return &cp, nil
}

func (s *FileCronStore) Update(id string, job store.CronJob) (*store.CronJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("cron job not found: %s", id)
	}
	job.ID = id
	job.CreatedAt = existing.CreatedAt
	job.UpdatedAt = time.Now().UTC()
	s.jobs[id] = &job
	if job.Enabled {
		if err := s.scheduleLocked(&job); err != nil {
			return nil, err
		}
	} else if entryID, ok := s.entries[id]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, id)
	}
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	cp := job
	return &cp, nil
}

func (s *FileCronStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entryID, ok := s.entries[id]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, id)
	}
	delete(s.jobs, id)
	return s.saveLocked()
}

func (s *FileCronStore) Toggle(id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("cron job not found: %s", id)
	}
	job.Enabled = enabled
	job.UpdatedAt = time.Now().UTC()
	if enabled {
		if err := s.scheduleLocked(job); err != nil {
			return err
		}
	} else if entryID, ok := s.entries[id]; ok {
		s.engine.Remove(entryID)
		delete(s.entries, id)
	}
	return s.saveLocked()
}

func (s *FileCronStore) RecordRun(id string, ranAt time.Time, result *store.CronJobResult, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("cron job not found: %s", id)
	}
	ranAtCopy := ranAt
	job.LastRunAt = &ranAtCopy
	if entryID, ok := s.entries[id]; ok {
		next := s.engine.Entry(entryID).Next
		job.NextRunAt = &next
	}
	return s.saveLocked()
}
