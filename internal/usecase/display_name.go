package usecase

import (
	"sort"
	"strings"
	"sync"

	"weddinglink/internal/domain/entity"
)

// DisplayNameResolver computes the single display name to present for a
// conversation's counterpart. The backend fills different naming fields
// depending on which role fetched the record, so resolution walks a fixed
// fallback chain; the precedence order is load-bearing, reordering it
// shows "Unknown" or the wrong party on real records.
//
// Resolution is pure and memoized per conversation id; a cache entry is
// invalidated when the record's naming fields change.
type DisplayNameResolver struct {
	mu    sync.Mutex
	user  entity.User
	cache map[string]nameCacheEntry
}

type nameCacheEntry struct {
	fingerprint string
	name        string
}

func NewDisplayNameResolver(user entity.User) *DisplayNameResolver {
	return &DisplayNameResolver{
		user:  user,
		cache: make(map[string]nameCacheEntry),
	}
}

func (r *DisplayNameResolver) Resolve(conv *entity.Conversation) string {
	if conv == nil {
		return r.genericFallback()
	}

	fingerprint := namingFingerprint(conv)

	r.mu.Lock()
	if entry, ok := r.cache[conv.ID]; ok && entry.fingerprint == fingerprint {
		name := entry.name
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	name := r.resolve(conv)

	r.mu.Lock()
	r.cache[conv.ID] = nameCacheEntry{fingerprint: fingerprint, name: name}
	r.mu.Unlock()
	return name
}

func (r *DisplayNameResolver) resolve(conv *entity.Conversation) string {
	// 1. Explicit counterpart name from the server.
	if name := cleanName(conv.ParticipantName); name != "" {
		return name
	}

	// 2. Business name attached at conversation creation.
	if conv.ServiceContext != nil {
		if name := cleanName(conv.ServiceContext.BusinessName); name != "" {
			return name
		}
	}

	// 3. Creator's name, only when the creator is the other party.
	if conv.CreatorID != "" && conv.CreatorID != r.user.ID {
		if name := cleanName(conv.CreatorName); name != "" {
			return name
		}
	}

	// 4. Any mapped participant name that is not our own name or email.
	// Keys iterate sorted so resolution stays deterministic.
	if len(conv.ParticipantDisplayNames) > 0 {
		ids := make([]string, 0, len(conv.ParticipantDisplayNames))
		for id := range conv.ParticipantDisplayNames {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			name := cleanName(conv.ParticipantDisplayNames[id])
			if name == "" || id == r.user.ID {
				continue
			}
			if strings.EqualFold(name, r.user.Name) || strings.EqualFold(name, r.user.Email) {
				continue
			}
			return name
		}
	}

	// 5. Synthesize from the service type.
	if conv.ServiceContext != nil {
		if serviceType := cleanName(conv.ServiceContext.ServiceType); serviceType != "" {
			switch r.user.Role {
			case entity.RoleClient:
				return serviceType + " Provider"
			case entity.RoleVendor:
				return serviceType + " Client"
			}
		}
	}

	// 6. Never render empty.
	return r.genericFallback()
}

func (r *DisplayNameResolver) genericFallback() string {
	switch r.user.Role {
	case entity.RoleClient:
		return "Wedding Vendor"
	case entity.RoleVendor:
		return "Wedding Client"
	default:
		return "Conversation"
	}
}

// cleanName strips the sentinel values the backend is known to emit in
// place of an absent name.
func cleanName(name string) string {
	trimmed := strings.TrimSpace(name)
	switch strings.ToLower(trimmed) {
	case "", "undefined", "null":
		return ""
	}
	return trimmed
}

func namingFingerprint(conv *entity.Conversation) string {
	parts := []string{
		conv.ParticipantName,
		conv.CreatorID,
		conv.CreatorName,
	}
	if conv.ServiceContext != nil {
		parts = append(parts, conv.ServiceContext.BusinessName, conv.ServiceContext.ServiceType)
	}
	if len(conv.ParticipantDisplayNames) > 0 {
		ids := make([]string, 0, len(conv.ParticipantDisplayNames))
		for id := range conv.ParticipantDisplayNames {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			parts = append(parts, id+"="+conv.ParticipantDisplayNames[id])
		}
	}
	return strings.Join(parts, "\x1f")
}
