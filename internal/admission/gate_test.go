package admission

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMasterKey = "test-secret-key"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGate(clock *fakeClock, limit int, cooldown time.Duration) *Gate {
	return NewGate(&Config{
		MasterKey:  testMasterKey,
		DailyLimit: limit,
		Cooldown:   cooldown,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        clock.Now,
	})
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func TestGate_MasterKeyBypass(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 3, 10*time.Second)

	for i := 0; i < 100; i++ {
		clock.Advance(11 * time.Second)
		_, err := gate.Admit("", fmt.Sprintf("10.0.%d.%d", i/250, i%250))
		require.NoError(t, err)
	}

	// Inside the cooldown and far beyond any quota
	for i := 0; i < 5; i++ {
		identity, err := gate.Admit(testMasterKey, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, testMasterKey, identity)
	}

	assert.Equal(t, 1, gate.Usage("10.0.0.1", clock.Now()))
}

func TestGate_Cooldown(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 100, 10*time.Second)

	identity, err := gate.Admit("", "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, domain.GuestIdentity, identity)

	// Cooldown is process-wide, not per identity
	clock.Advance(9 * time.Second)
	_, err = gate.Admit("", "10.0.0.2")
	assert.ErrorIs(t, err, domain.ErrTooBusy)

	_, err = gate.Admit("guest-key", "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrTooBusy)

	// Rejections do not refresh the cooldown timestamp
	clock.Advance(1 * time.Second)
	identity, err = gate.Admit("guest-key", "10.0.0.2")
	require.NoError(t, err)
	assert.Equal(t, "guest-key", identity)
}

func TestGate_DailyQuota(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 3, 10*time.Second)

	for i := 0; i < 3; i++ {
		_, err := gate.Admit("", "192.168.1.7")
		require.NoError(t, err, "request %d should be admitted", i+1)
		clock.Advance(10 * time.Second)
	}

	for i := 0; i < 3; i++ {
		_, err := gate.Admit("", "192.168.1.7")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

		var quotaErr *domain.QuotaError
		require.True(t, errors.As(err, &quotaErr))
		assert.Equal(t, 3, quotaErr.Limit)
		clock.Advance(10 * time.Second)
	}
	assert.Equal(t, 3, gate.Usage("192.168.1.7", clock.Now()))

	// Another address still has its own quota
	_, err := gate.Admit("", "192.168.1.8")
	require.NoError(t, err)

	// The key changes with the date
	clock.Advance(24 * time.Hour)
	_, err = gate.Admit("", "192.168.1.7")
	require.NoError(t, err)
	assert.Equal(t, 1, gate.Usage("192.168.1.7", clock.Now()))
}

func TestGate_QuotaRejectionHasNoSideEffects(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 1, 10*time.Second)

	_, err := gate.Admit("", "10.1.1.1")
	require.NoError(t, err)
	clock.Advance(10 * time.Second)

	_, err = gate.Admit("", "10.1.1.1")
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	// A quota rejection does not start a new cooldown window
	_, err = gate.Admit("", "10.1.1.2")
	require.NoError(t, err)
}

func TestGate_ConcurrentAdmissions(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 100, 10*time.Second)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := gate.Admit("", fmt.Sprintf("172.16.0.%d", i)); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
}

func TestGate_ConcurrentQuotaBoundary(t *testing.T) {
	clock := newClock()
	gate := newTestGate(clock, 5, 0)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := gate.Admit("", "172.16.0.1"); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, admitted)
	assert.Equal(t, 5, gate.Usage("172.16.0.1", clock.Now()))
}

func TestUsageKey(t *testing.T) {
	day := time.Date(2025, 1, 2, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "10.0.0.1-2025-01-02", UsageKey("10.0.0.1", day))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name         string
		forwardedFor string
		remoteAddr   string
		expected     string
	}{
		{
			name:         "first forwarded entry wins",
			forwardedFor: "203.0.113.9, 10.0.0.1, 10.0.0.2",
			remoteAddr:   "10.0.0.3:51234",
			expected:     "203.0.113.9",
		},
		{
			name:         "single forwarded entry with spaces",
			forwardedFor: "  198.51.100.4 ",
			remoteAddr:   "10.0.0.3:51234",
			expected:     "198.51.100.4",
		},
		{
			name:       "peer address without header",
			remoteAddr: "192.0.2.10:443",
			expected:   "192.0.2.10",
		},
		{
			name:       "ipv6 peer address",
			remoteAddr: "[2001:db8::1]:8080",
			expected:   "2001:db8::1",
		},
		{
			name:         "empty first entry falls back to peer",
			forwardedFor: " , 10.0.0.1",
			remoteAddr:   "192.0.2.10:443",
			expected:     "192.0.2.10",
		},
		{
			name:       "peer address without port",
			remoteAddr: "192.0.2.11",
			expected:   "192.0.2.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClientIP(tt.forwardedFor, tt.remoteAddr))
		})
	}
}
