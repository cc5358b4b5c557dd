package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gatewaylabs/creditmeter/adapters/memory"
	"github.com/gatewaylabs/creditmeter/adapters/metrics"
	"github.com/gatewaylabs/creditmeter/domain/credit"
	"github.com/gatewaylabs/creditmeter/domain/decision"
	"github.com/gatewaylabs/creditmeter/domain/usage"
	"github.com/gatewaylabs/creditmeter/ports"
)

const (
	// MessageLimitTTL is how long a message-limit verdict stays fresh.
	MessageLimitTTL = 60 * time.Second

	// AnonymousDailyMessages is the default daily cap for anonymous
	// principals.
	AnonymousDailyMessages = 10

	// AuthenticatedDailyMessages is the default daily cap for signed-in
	// principals without credits.
	AuthenticatedDailyMessages = 20

	// CreditedDisplayLimit is the advisory display ceiling shown to
	// credited users. It is not enforced: enforcement for credited
	// principals is the ledger balance itself.
	CreditedDisplayLimit = 250
)

// MessageLimitDeps contains dependencies for MessageLimitService.
type MessageLimitDeps struct {
	Ledger  ports.CreditLedger
	Users   ports.UserStore
	Chats   ports.ChatStore
	Clock   ports.Clock
	Logger  zerolog.Logger
	Metrics *metrics.Collector // optional
}

type messageLimitKey struct {
	userID    string
	anonymous bool
}

// MessageLimitService gates anonymous and no-credit principals on a daily
// message count, with prepaid credits taking precedence when present.
// Verdicts are cached process-wide for MessageLimitTTL. The whole path
// fails open.
type MessageLimitService struct {
	ledger  ports.CreditLedger
	users   ports.UserStore
	chats   ports.ChatStore
	clock   ports.Clock
	logger  zerolog.Logger
	metrics *metrics.Collector

	cache *memory.TTLCache[messageLimitKey, decision.MessageLimit]
}

// NewMessageLimitService creates the service with the given verdict TTL
// (MessageLimitTTL when ttl <= 0).
func NewMessageLimitService(deps MessageLimitDeps, ttl time.Duration) *MessageLimitService {
	if ttl <= 0 {
		ttl = MessageLimitTTL
	}
	return &MessageLimitService{
		ledger:  deps.Ledger,
		users:   deps.Users,
		chats:   deps.Chats,
		clock:   deps.Clock,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		cache:   memory.NewTTLCache[messageLimitKey, decision.MessageLimit](ttl, deps.Clock),
	}
}

// Check returns the message-limit verdict for a principal.
//
// ledger optionally overrides the service's ledger with a request-scoped
// cache so a single inbound request resolves each balance at most once;
// pass nil to use the service's own ledger.
//
// Branches, first match wins:
//  1. anonymous principals never have a ledger entry - straight to the
//     daily count;
//  2. negative balance: hard block; positive balance: allow with credit
//     accounting; zero or no entry: fall through;
//  3. daily user-role message count against the per-user override or the
//     built-in 10/20 cap.
func (s *MessageLimitService) Check(ctx context.Context, userID string, anonymous bool, ledger ports.CreditLedger) decision.MessageLimit {
	key := messageLimitKey{userID: userID, anonymous: anonymous}
	if v, ok := s.cache.Get(key); ok {
		s.countCache(true)
		return v
	}
	s.countCache(false)

	v := s.check(ctx, userID, anonymous, ledger)
	s.cache.Set(key, v)
	return v
}

// Sweep drops stale verdicts; called by the janitor.
func (s *MessageLimitService) Sweep() int {
	n := s.cache.Sweep()
	if s.metrics != nil {
		s.metrics.CacheSweeps.WithLabelValues("message_limit").Add(float64(n))
	}
	return n
}

func (s *MessageLimitService) check(ctx context.Context, userID string, anonymous bool, ledger ports.CreditLedger) decision.MessageLimit {
	if ledger == nil {
		ledger = s.ledger
	}

	if !anonymous {
		balance, err := s.lookupBalance(ctx, userID, ledger)
		if err != nil {
			// Metering outages never block chat: fail open with the
			// anonymous-grade default.
			s.logger.Warn().Err(err).Str("user_id", userID).
				Msg("credit lookup failed, failing open")
			if s.metrics != nil {
				s.metrics.LedgerErrors.Inc()
			}
			return failOpenMessageLimit()
		}

		if balance.Negative() {
			return decision.MessageLimit{
				Reached:     true,
				Limit:       0,
				Remaining:   0,
				Credits:     balance,
				UsedCredits: true,
			}
		}
		if balance.Positive() {
			return decision.MessageLimit{
				Reached:     false,
				Limit:       CreditedDisplayLimit,
				Remaining:   balance.Credits,
				Credits:     balance,
				UsedCredits: true,
			}
		}
		// Zero balance and "no ledger entry" both fall through to the
		// daily count; only a known balance reports UsedCredits.
	}

	return s.countFallback(ctx, userID, anonymous)
}

// lookupBalance tries the authoritative external-id path first and only
// then the legacy customer id from the user record.
func (s *MessageLimitService) lookupBalance(ctx context.Context, userID string, ledger ports.CreditLedger) (credit.Balance, error) {
	balance, err := ledger.RemainingByExternalID(ctx, userID)
	if err != nil {
		return credit.None(), err
	}
	if balance.Found {
		return balance, nil
	}

	u, err := s.users.Get(ctx, userID)
	if err != nil || u.CustomerID == "" {
		// Missing user record means no legacy id to try; not an error.
		return credit.None(), nil
	}
	return ledger.RemainingByCustomerID(ctx, u.CustomerID)
}

func (s *MessageLimitService) countFallback(ctx context.Context, userID string, anonymous bool) decision.MessageLimit {
	limit := s.messageLimitFor(ctx, userID, anonymous)
	dayStart := usage.DayStart(s.clock.Now())

	count, err := s.countToday(ctx, userID, dayStart)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).
			Msg("message count failed, failing open")
		if s.metrics != nil {
			s.metrics.StoreErrors.WithLabelValues("chat").Inc()
		}
		return failOpenMessageLimit()
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return decision.MessageLimit{
		Reached:   count >= limit,
		Limit:     limit,
		Remaining: remaining,
	}
}

func (s *MessageLimitService) messageLimitFor(ctx context.Context, userID string, anonymous bool) int64 {
	if !anonymous {
		if u, err := s.users.Get(ctx, userID); err == nil && u.MessageLimitSet {
			return u.MessageLimit
		}
		return AuthenticatedDailyMessages
	}
	return AnonymousDailyMessages
}

// countToday counts today's user-role messages in chats the principal
// owns. The optimized two-step path short-circuits to zero when no chat
// was created today; if it fails, the join-based query - which must yield
// the identical count - backs it up.
func (s *MessageLimitService) countToday(ctx context.Context, userID string, dayStart time.Time) (int64, error) {
	count, err := s.countOptimized(ctx, userID, dayStart)
	if err == nil {
		return count, nil
	}

	s.logger.Debug().Err(err).Str("user_id", userID).
		Msg("optimized message count failed, using join fallback")
	return s.chats.CountUserMessagesByOwner(ctx, userID, dayStart)
}

func (s *MessageLimitService) countOptimized(ctx context.Context, userID string, dayStart time.Time) (int64, error) {
	chatIDs, err := s.chats.ChatIDsCreatedSince(ctx, userID, dayStart)
	if err != nil {
		return 0, err
	}
	if len(chatIDs) == 0 {
		return 0, nil
	}
	return s.chats.CountUserMessages(ctx, chatIDs, dayStart)
}

func (s *MessageLimitService) countCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHits.WithLabelValues("message_limit").Inc()
	} else {
		s.metrics.CacheMisses.WithLabelValues("message_limit").Inc()
	}
}

// failOpenMessageLimit is the safe default verdict when anything in the
// message-limit path breaks.
func failOpenMessageLimit() decision.MessageLimit {
	return decision.MessageLimit{
		Reached:   false,
		Limit:     AnonymousDailyMessages,
		Remaining: AnonymousDailyMessages,
	}
}
