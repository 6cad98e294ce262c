package store

import "time"

// CronJobPayload is what a scheduled job sends through the agent loop and,
// optionally, delivers back out to a channel.
type CronJobPayload struct {
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
	Deliver bool   `json:"deliver,omitempty"`
}

// CronJob is a persisted scheduled job (agent.defaults cron, not OS cron).
type CronJob struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	AgentID    string          `json:"agent_id,omitempty"`
	UserID     string          `json:"user_id,omitempty"`
	Schedule   string          `json:"schedule"` // standard 5-field cron expression
	Payload    CronJobPayload  `json:"payload"`
	Enabled    bool            `json:"enabled"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	LastRunAt  *time.Time      `json:"last_run_at,omitempty"`
	NextRunAt  *time.Time      `json:"next_run_at,omitempty"`
}

// CronJobResult captures the outcome of one scheduled run.
type CronJobResult struct {
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	Error        string `json:"error,omitempty"`
}

// CronStore persists scheduled jobs and their run history.
type CronStore interface {
	List(agentID string) ([]CronJob, error)
	Get(id string) (*CronJob, error)
	Create(job CronJob) (*CronJob, error)
	Update(id string, job CronJob) (*CronJob, error)
	Delete(id string) error
	Toggle(id string, enabled bool) error
	RecordRun(id string, ranAt time.Time, result *CronJobResult, runErr error) error
}
