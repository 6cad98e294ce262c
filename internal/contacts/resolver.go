// Package contacts implements the contact directory: resolving a raw
// channel-specific sender string to a canonical Contact, with auto-creation
// of anonymous contacts on a first sighting and a TTL-cached resolution
// fast path.
package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/types"

	"github.com/nextlevelbuilder/agentbridge/internal/store"
	"github.com/nextlevelbuilder/agentbridge/internal/ttlcache"
)

const (
	cacheCapacity = 1000
	cacheTTL      = 5 * time.Minute
)

// Resolver resolves channel identifiers to contacts, caching hits for
// cacheTTL with LRU eviction past cacheCapacity.
type Resolver struct {
	store store.ContactStore
	cache *ttlcache.Cache[*store.Contact]
}

func NewResolver(s store.ContactStore) *Resolver {
	return &Resolver{store: s, cache: ttlcache.New[*store.Contact](cacheCapacity, cacheTTL)}
}

func cacheKey(tenantID uuid.UUID, channelType store.ChannelType, identifier string) string {
	return fmt.Sprintf("%s:%s:%s", tenantID, channelType, identifier)
}

// Resolve checks the channel-mapping table first, then falls back to
// auto-creating an anonymous contact keyed by the normalized identifier.
// Legacy contact columns (a second lookup tier in an earlier schema) don't
// exist here — every contact is created through this same channel-mapping
// path, so that tier is vacuous and resolution goes straight to
// anonymous creation.
func (r *Resolver) Resolve(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, rawIdentifier string) (*store.Contact, error) {
	identifier := Normalize(channelType, rawIdentifier)
	key := cacheKey(tenantID, channelType, identifier)

	if c, ok := r.cache.Get(key); ok {
		return c, nil
	}

	c, err := r.store.ResolveByChannel(ctx, tenantID, channelType, identifier)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, err = r.createAnonymous(ctx, tenantID, channelType, identifier)
		if err != nil {
			return nil, err
		}
	}
	r.cache.Set(key, c)
	return c, nil
}

func (r *Resolver) createAnonymous(ctx context.Context, tenantID uuid.UUID, channelType store.ChannelType, identifier string) (*store.Contact, error) {
	c, err := r.store.Create(ctx, store.Contact{
		TenantID: tenantID,
		Name:     identifier,
		Role:     store.ContactRoleUser,
		Active:   true,
		Channels: map[store.ChannelType]string{channelType: identifier},
	})
	if err != nil {
		return nil, fmt.Errorf("contacts: auto-create anonymous contact for %s/%s: %w", channelType, identifier, err)
	}
	return c, nil
}

// Invalidate clears the whole cache, as required after any create/update/
// delete write.
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

// Normalize canonicalizes a raw sender identifier before it is used as a
// channel-mapping key, so the same underlying contact resolves the same way
// regardless of which transport-specific format it arrived in.
func Normalize(channelType store.ChannelType, raw string) string {
	switch channelType {
	case store.ChannelTypeWhatsAppID:
		return normalizeWhatsAppJID(raw)
	default:
		return raw
	}
}

// normalizeWhatsAppJID reduces a whatsmeow JID to its bare user part
// ("user@s.whatsapp.net" or "user@lid" -> "user"), so a contact resolves the
// same way whether it arrived as a phone-number JID or a privacy-preserving
// LID JID for the same WhatsApp account.
func normalizeWhatsAppJID(raw string) string {
	jid, err := types.ParseJID(raw)
	if err != nil || jid.User == "" {
		return raw
	}
	return jid.User
}
