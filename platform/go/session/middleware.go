package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	platformauth "github.com/wundergunder/gunderats/platform/go/auth"
)

// CompanyHeader names the header a client uses to pin the selected company.
// The `company` query parameter is accepted as a fallback.
const CompanyHeader = "X-Company-ID"

// Resolver defines the lookup needed to turn an identity into a session:
// which companies the user may see and which one is selected. Implemented
// by the companies service.
type Resolver interface {
	ResolveSession(ctx context.Context, userID uuid.UUID, platformAdmin bool, requestedCompanyID *uuid.UUID) (Context, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache keyed by (user, requested company)
	// to avoid a membership lookup per request; zero disables caching.
	CacheTTL time.Duration
}

// Middleware resolves the session for the authenticated user and attaches it
// to the request context. Requests without verified credentials are rejected.
func Middleware(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("session middleware: resolver is required")
	}

	var cache *sessionCache
	if cfg.CacheTTL > 0 {
		cache = newSessionCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			userID, err := uuid.Parse(creds.ID)
			if err != nil {
				http.Error(w, "invalid user id", http.StatusUnauthorized)
				return
			}

			var requested *uuid.UUID
			if raw := requestedCompany(r); raw != "" {
				cid, parseErr := uuid.Parse(raw)
				if parseErr != nil {
					http.Error(w, "invalid company id", http.StatusBadRequest)
					return
				}
				requested = &cid
			}

			key := cacheKey{userID: userID}
			if requested != nil {
				key.companyID = *requested
			}
			if cached := cache.get(key); cached != nil {
				next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), *cached)))
				return
			}

			sess, err := resolver.ResolveSession(r.Context(), userID, creds.PlatformAdmin, requested)
			if err != nil {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			cache.put(key, sess)

			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), sess)))
		})
	}
}

func requestedCompany(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(CompanyHeader)); v != "" {
		return v
	}
	return strings.TrimSpace(r.URL.Query().Get("company"))
}

type cacheKey struct {
	userID    uuid.UUID
	companyID uuid.UUID
}

type sessionCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	items map[cacheKey]cacheItem
}

type cacheItem struct {
	sess      Context
	expiresAt time.Time
}

func newSessionCache(ttl time.Duration) *sessionCache {
	return &sessionCache{ttl: ttl, items: make(map[cacheKey]cacheItem)}
}

func (c *sessionCache) get(key cacheKey) *Context {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil
	}
	return &item.sess
}

func (c *sessionCache) put(key cacheKey, sess Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = cacheItem{sess: sess, expiresAt: time.Now().Add(c.ttl)}
}
