package memory

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
)

// TokenCache keeps recently loaded Google tokens per user so a chat turn
// with several tool calls hits the database once.
type TokenCache struct {
	cache *cache.Cache
}

func NewTokenCache(ttl time.Duration) *TokenCache {
	c := cache.New(ttl, 10*time.Minute)
	return &TokenCache{
		cache: c,
	}
}

func (r *TokenCache) Save(userID string, token *oauth2.Token) {
	r.cache.Set(userID, token, cache.DefaultExpiration)
}

func (r *TokenCache) Get(userID string) (*oauth2.Token, bool) {
	if x, found := r.cache.Get(userID); found {
		return x.(*oauth2.Token), true
	}
	return nil, false
}

func (r *TokenCache) Delete(userID string) {
	r.cache.Delete(userID)
}
