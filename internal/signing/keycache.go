package signing

import (
	"crypto/ed25519"
	"sync"
)

// KeyCache holds counterparty public keys by user id. Counterparties
// that accept signed calls commit to not rotating keys, so entries are
// valid until explicitly replaced; staleness is corrected by signing
// with reloadPublicKey set.
//
// The cache is injected into each Signer rather than kept as package
// state, and is safe for concurrent signing calls.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[string]ed25519.PublicKey
}

// NewKeyCache creates a new KeyCache
func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string]ed25519.PublicKey)}
}

// Get returns the cached key for userID, if any.
func (c *KeyCache) Get(userID string) (ed25519.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[userID]
	return key, ok
}

// Put stores key for userID, replacing any previous entry.
func (c *KeyCache) Put(userID string, key ed25519.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[userID] = key
}

// Delete removes the entry for userID.
func (c *KeyCache) Delete(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, userID)
}
