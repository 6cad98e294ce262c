package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ContactRole classifies a contact row. Agents are themselves contacts so
// that "@name" mentions work uniformly.
type ContactRole string

const (
	ContactRoleUser   ContactRole = "user"
	ContactRoleAgent  ContactRole = "agent"
	ContactRoleSystem ContactRole = "system"
)

// ChannelType names one of the normalized channel-identifier slots a
// contact can carry.
type ChannelType string

const (
	ChannelTypePhone             ChannelType = "phone"
	ChannelTypeWhatsAppID        ChannelType = "whatsapp_id"
	ChannelTypeTelegramID        ChannelType = "telegram_id"
	ChannelTypeTelegramUsername  ChannelType = "telegram_username"
)

// Contact is one row in the tenant's contact directory.
type Contact struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Role      ContactRole
	Active    bool
	Channels  map[ChannelType]string // channel_type -> identifier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactAgentMapping routes DMs from a known contact to a specific agent.
type ContactAgentMapping struct {
	ContactID uuid.UUID
	AgentID   uuid.UUID
}

// UserAgentSession is a sticky sender->agent preference set by an explicit
// /invoke command; it overrides all routing heuristics until cleared.
type UserAgentSession struct {
	SenderIdentifier string
	AgentID          uuid.UUID
	SetAt            time.Time
}

// ContactStore persists the contact directory, the channel-identifier
// index, contact-agent mappings, and sticky /invoke sessions.
type ContactStore interface {
	// ResolveByChannel looks up the canonical contact for (tenant,
	// channelType, identifier) via the channel-mapping index — the only way
	// to resolve a raw sender string to a contact.
	ResolveByChannel(ctx context.Context, tenantID uuid.UUID, channelType ChannelType, identifier string) (*Contact, error)

	Create(ctx context.Context, c Contact) (*Contact, error)
	Get(ctx context.Context, id uuid.UUID) (*Contact, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error

	// SetChannelMapping upserts one (channel_type, identifier) -> contact
	// entry. Used both for explicit linking and auto-population of anonymous
	// contacts on a resolution miss.
	SetChannelMapping(ctx context.Context, tenantID, contactID uuid.UUID, channelType ChannelType, identifier string) error
	RemoveChannelMapping(ctx context.Context, tenantID uuid.UUID, channelType ChannelType, identifier string) error

	SetAgentMapping(ctx context.Context, m ContactAgentMapping) error
	GetAgentMapping(ctx context.Context, contactID uuid.UUID) (*uuid.UUID, error)

	SetUserAgentSession(ctx context.Context, s UserAgentSession) error
	GetUserAgentSession(ctx context.Context, senderIdentifier string) (*UserAgentSession, error)
	ClearUserAgentSession(ctx context.Context, senderIdentifier string) error
}
