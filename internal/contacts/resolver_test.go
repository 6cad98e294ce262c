package contacts

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// fakeContactStore is a minimal in-memory store.ContactStore for testing
// Resolver's lookup/auto-create/cache behavior in isolation from Postgres.
type fakeContactStore struct {
	byChannel map[string]*store.Contact
	creates   int
}

func newFakeContactStore() *fakeContactStore {
	return &fakeContactStore{byChannel: make(map[string]*store.Contact)}
}

func (f *fakeContactStore) key(tenantID uuid.UUID, channelType store.ChannelType, identifier string) string {
	return tenantID.String() + "|" + string(channelType) + "|" + identifier
}

func (f *fakeContactStore) ResolveByChannel(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, identifier string) (*store.Contact, error) {
	return f.byChannel[f.key(tenantID, channelType, identifier)], nil
}

func (f *fakeContactStore) Create(ctx context.Context, c store.Contact) (*store.Contact, error) {
	f.creates++
	c.ID = store.GenNewID()
	for chType, ident := range c.Channels {
		f.byChannel[f.key(c.TenantID, chType, ident)] = &c
	}
	return &c, nil
}

func (f *fakeContactStore) Get(ctx context.Context, id uuid.UUID) (*store.Contact, error) { return nil, nil }
func (f *fakeContactStore) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return nil
}
func (f *fakeContactStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (f *fakeContactStore) SetChannelMapping(ctx context.Context, tenantID, contactID uuid.UUID, channelType store.ChannelType, identifier string) error {
	return nil
}
func (f *fakeContactStore) RemoveChannelMapping(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, identifier string) error {
	return nil
}
func (f *fakeContactStore) SetAgentMapping(ctx context.Context, m store.ContactAgentMapping) error {
	return nil
}
func (f *fakeContactStore) GetAgentMapping(ctx context.Context, contactID uuid.UUID) (*uuid.UUID, error) {
	return nil, nil
}
func (f *fakeContactStore) SetUserAgentSession(ctx context.Context, s store.UserAgentSession) error {
	return nil
}
func (f *fakeContactStore) GetUserAgentSession(ctx context.Context, senderIdentifier string) (*store.UserAgentSession, error) {
	return nil, nil
}
func (f *fakeContactStore) ClearUserAgentSession(ctx context.Context, senderIdentifier string) error {
	return nil
}

var _ store.ContactStore = (*fakeContactStore)(nil)

func TestResolveAutoCreatesAnonymousContact(t *testing.T) {
	fs := newFakeContactStore()
	r := NewResolver(fs)
	tenantID := store.GenNewID()

	c, err := r.Resolve(context.Background(), tenantID, store.ChannelTypePhone, "+15551234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("expected an auto-created contact")
	}
	if fs.creates != 1 {
		t.Fatalf("expected exactly one Create call, got %d", fs.creates)
	}
}

func TestResolveCachesSecondLookup(t *testing.T) {
	fs := newFakeContactStore()
	r := NewResolver(fs)
	tenantID := store.GenNewID()

	if _, err := r.Resolve(context.Background(), tenantID, store.ChannelTypePhone, "+15551234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Resolve(context.Background(), tenantID, store.ChannelTypePhone, "+15551234567"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fs.creates != 1 {
		t.Fatalf("expected cache to avoid a second Create, got %d creates", fs.creates)
	}
}

func TestNormalizeWhatsAppJID(t *testing.T) {
	got := Normalize(store.ChannelTypeWhatsAppID, "15551234567@s.whatsapp.net")
	if got != "15551234567" {
		t.Errorf("expected bare user part, got %q", got)
	}
}

func TestNormalizeNonWhatsAppPassthrough(t *testing.T) {
	got := Normalize(store.ChannelTypePhone, "+15551234567")
	if got != "+15551234567" {
		t.Errorf("expected passthrough for non-WhatsApp channel types, got %q", got)
	}
}
