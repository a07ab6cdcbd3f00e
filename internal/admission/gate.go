// Package admission decides whether a resume submission may enter the pipeline.
package admission

import (
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/resume-extractor/internal/domain"
)

const dateLayout = "2006-01-02"

// Config holds admission gate configuration
type Config struct {
	MasterKey  string
	DailyLimit int
	Cooldown   time.Duration
	Logger     *slog.Logger
	Now        func() time.Time // defaults to time.Now
}

// Gate enforces the master key bypass, the global cooldown and the daily guest quota
type Gate struct {
	masterKey  string
	dailyLimit int
	cooldown   time.Duration
	logger     *slog.Logger
	now        func() time.Time

	mu        sync.Mutex
	lastAdmit time.Time
	usage     map[string]int
	usageDay  string
}

// NewGate creates a new admission gate
func NewGate(cfg *Config) *Gate {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Gate{
		masterKey:  cfg.MasterKey,
		dailyLimit: cfg.DailyLimit,
		cooldown:   cfg.Cooldown,
		logger:     logger,
		now:        now,
		usage:      make(map[string]int),
	}
}

// Admit returns the identity admitted for the credential and client address.
// It returns domain.ErrTooBusy or a *domain.QuotaError on rejection.
func (g *Gate) Admit(credential, clientIP string) (string, error) {
	if g.masterKey != "" && credential == g.masterKey {
		return credential, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if !g.lastAdmit.IsZero() && now.Sub(g.lastAdmit) < g.cooldown {
		g.logger.Warn("Request rejected by cooldown",
			slog.String("client_ip", clientIP),
			slog.Duration("since_last", now.Sub(g.lastAdmit)),
		)
		return "", domain.ErrTooBusy
	}

	day := now.Format(dateLayout)
	if day != g.usageDay {
		// keys from previous days can never match again
		clear(g.usage)
		g.usageDay = day
	}

	key := UsageKey(clientIP, now)
	if g.usage[key] >= g.dailyLimit {
		g.logger.Warn("Request rejected by daily quota",
			slog.String("usage_key", key),
			slog.Int("limit", g.dailyLimit),
		)
		return "", domain.NewQuotaError(g.dailyLimit)
	}

	g.usage[key]++
	g.lastAdmit = now

	identity := credential
	if identity == "" {
		identity = domain.GuestIdentity
	}

	g.logger.Debug("Request admitted",
		slog.String("usage_key", key),
		slog.Int("count", g.usage[key]),
	)

	return identity, nil
}

// Usage returns the recorded request count for the address on the given day
func (g *Gate) Usage(clientIP string, day time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.usage[UsageKey(clientIP, day)]
}

// UsageKey builds the quota identity key for an address and calendar date
func UsageKey(clientIP string, day time.Time) string {
	return clientIP + "-" + day.Format(dateLayout)
}

// ClientIP resolves the caller address from the X-Forwarded-For header,
// falling back to the direct peer address.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
