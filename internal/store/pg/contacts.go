package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// PGContactStore implements store.ContactStore backed by Postgres.
type PGContactStore struct {
	db *sql.DB
}

func NewPGContactStore(db *sql.DB) *PGContactStore {
	return &PGContactStore{db: db}
}

func (s *PGContactStore) ResolveByChannel(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, identifier string) (*store.Contact, error) {
	var contactID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT contact_id FROM channel_mappings
		WHERE tenant_id = $1 AND channel_type = $2 AND identifier = $3`,
		tenantID, channelType, identifier,
	).Scan(&contactID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, contactID)
}

func (s *PGContactStore) Create(ctx context.Context, c store.Contact) (*store.Contact, error) {
	if c.ID == uuid.Nil {
		c.ID = store.GenNewID()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	channelsJSON, err := json.Marshal(c.Channels)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contacts (id, tenant_id, name, role, active, channels, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		c.ID, c.TenantID, c.Name, c.Role, c.Active, channelsJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for chType, ident := range c.Channels {
		if ident == "" {
			continue
		}
		if err := s.SetChannelMapping(ctx, c.TenantID, c.ID, chType, ident); err != nil {
			return nil, fmt.Errorf("create contact %s: seed channel mapping %s: %w", c.ID, chType, err)
		}
	}
	return &c, nil
}

func (s *PGContactStore) Get(ctx context.Context, id uuid.UUID) (*store.Contact, error) {
	var c store.Contact
	var channelsRaw []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, name, role, active, channels, created_at, updated_at
		FROM contacts WHERE id = $1`, id,
	).Scan(&c.ID, &c.TenantID, &c.Name, &c.Role, &c.Active, &channelsRaw, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(channelsRaw) > 0 {
		if err := json.Unmarshal(channelsRaw, &c.Channels); err != nil {
			return nil, fmt.Errorf("contact %s: parse channels: %w", id, err)
		}
	}
	return &c, nil
}

func (s *PGContactStore) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	allowed := map[string]bool{"name": true, "role": true, "active": true, "channels": true}
	var sets []string
	var args []any
	i := 1
	for k, v := range updates {
		if !allowed[k] {
			continue
		}
		if k == "channels" {
			if m, ok := v.(map[store.ChannelType]string); ok {
				raw, err := json.Marshal(m)
				if err != nil {
					return err
				}
				v = raw
			}
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i))
		args = append(args, v)
		i++
	}
	if len(sets) == 0 {
		return nil
	}
	sets = append(sets, fmt.Sprintf("updated_at = $%d", i))
	args = append(args, time.Now().UTC())
	i++
	args = append(args, id)

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE contacts SET %s WHERE id = $%d`, strings.Join(sets, ", "), i), args...)
	return err
}

func (s *PGContactStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}

func (s *PGContactStore) SetChannelMapping(ctx context.Context, tenantID, contactID uuid.UUID, channelType store.ChannelType, identifier string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_mappings (tenant_id, channel_type, identifier, contact_id)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (tenant_id, channel_type, identifier) DO UPDATE SET contact_id = EXCLUDED.contact_id`,
		tenantID, channelType, identifier, contactID,
	)
	return err
}

func (s *PGContactStore) RemoveChannelMapping(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, identifier string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM channel_mappings WHERE tenant_id = $1 AND channel_type = $2 AND identifier = $3`,
		tenantID, channelType, identifier,
	)
	return err
}

func (s *PGContactStore) SetAgentMapping(ctx context.Context, m store.ContactAgentMapping) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contact_agent_mappings (contact_id, agent_id)
		VALUES ($1,$2)
		ON CONFLICT (contact_id) DO UPDATE SET agent_id = EXCLUDED.agent_id`,
		m.ContactID, m.AgentID,
	)
	return err
}

func (s *PGContactStore) GetAgentMapping(ctx context.Context, contactID uuid.UUID) (*uuid.UUID, error) {
	var agentID uuid.UUID
	err := s.db.QueryRowContext(ctx, `SELECT agent_id FROM contact_agent_mappings WHERE contact_id = $1`, contactID).Scan(&agentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &agentID, nil
}

func (s *PGContactStore) SetUserAgentSession(ctx context.Context, sess store.UserAgentSession) error {
	if sess.SetAt.IsZero() {
		sess.SetAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_agent_sessions (sender_identifier, agent_id, set_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (sender_identifier) DO UPDATE SET agent_id = EXCLUDED.agent_id, set_at = EXCLUDED.set_at`,
		sess.SenderIdentifier, sess.AgentID, sess.SetAt,
	)
	return err
}

func (s *PGContactStore) GetUserAgentSession(ctx context.Context, senderIdentifier string) (*store.UserAgentSession, error) {
	var sess store.UserAgentSession
	err := s.db.QueryRowContext(ctx, `
		SELECT sender_identifier, agent_id, set_at FROM user_agent_sessions WHERE sender_identifier = $1`,
		senderIdentifier,
	).Scan(&sess.SenderIdentifier, &sess.AgentID, &sess.SetAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PGContactStore) ClearUserAgentSession(ctx context.Context, senderIdentifier string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_agent_sessions WHERE sender_identifier = $1`, senderIdentifier)
	return err
}
