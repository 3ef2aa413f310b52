package core

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()

	r.OnConnect("conn-1")
	assert.True(t, r.IsConnected("conn-1"))

	_, ok := r.Resolve(1)
	assert.False(t, ok, "unregistered user must not resolve")

	r.Register("conn-1", 1)
	connID, ok := r.Resolve(1)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", connID)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()

	r.OnConnect("conn-old")
	r.OnConnect("conn-new")
	r.Register("conn-old", 1)
	r.Register("conn-new", 1)

	connID, ok := r.Resolve(1)
	assert.True(t, ok)
	assert.Equal(t, "conn-new", connID)

	// Disconnecting the superseded connection must not clobber the new one.
	r.OnDisconnect("conn-old")
	connID, ok = r.Resolve(1)
	assert.True(t, ok)
	assert.Equal(t, "conn-new", connID)
}

func TestRegistryDisconnectIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.OnConnect("conn-1")
	r.Register("conn-1", 1)

	r.OnDisconnect("conn-1")
	_, ok := r.Resolve(1)
	assert.False(t, ok)
	assert.False(t, r.IsConnected("conn-1"))

	// Second disconnect and unknown connection are no-ops.
	r.OnDisconnect("conn-1")
	r.OnDisconnect("conn-never-seen")
}

func TestRegistryRebindConnectionToNewUser(t *testing.T) {
	r := NewRegistry()

	r.Register("conn-1", 1)
	r.Register("conn-1", 2)

	_, ok := r.Resolve(1)
	assert.False(t, ok, "old user binding must be released")

	connID, ok := r.Resolve(2)
	assert.True(t, ok)
	assert.Equal(t, "conn-1", connID)
}

func TestRegistryConcurrentRegisterAndDisconnect(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		connID := fmt.Sprintf("conn-%d", i)
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.OnConnect(connID)
			r.Register(connID, int64(i%10))
		}()
		go func() {
			defer wg.Done()
			r.OnDisconnect(connID)
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, every resolvable user maps to a
	// connection whose reverse entry agrees.
	for userID := int64(0); userID < 10; userID++ {
		if connID, ok := r.Resolve(userID); ok {
			assert.True(t, r.IsConnected(connID))
		}
	}
}
