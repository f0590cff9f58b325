package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"quoteengine/internal/core/id"
	"quoteengine/internal/domain/ratecard"
	"quoteengine/pkg/logger"
)

// DefaultNotifyChannel is the channel rate card writers NOTIFY on.
const DefaultNotifyChannel = "rate_cards_changed"

// NotifyInvalidator invalidates the local card cache whenever any process
// changes an organization's rate cards. The NOTIFY payload is the organization id.
type NotifyInvalidator struct {
	pool    *pgxpool.Pool
	channel string
	cache   ratecard.CardCache

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewNotifyInvalidator creates a listener on channel.
func NewNotifyInvalidator(pool *pgxpool.Pool, channel string, cache ratecard.CardCache) *NotifyInvalidator {
	if channel == "" {
		channel = DefaultNotifyChannel
	}
	return &NotifyInvalidator{pool: pool, channel: channel, cache: cache}
}

// Start begins listening in the background.
func (n *NotifyInvalidator) Start(ctx context.Context) {
	n.lifecycleMu.Lock()
	defer n.lifecycleMu.Unlock()
	if n.started {
		return
	}
	n.ctx, n.cancel = context.WithCancel(ctx)
	n.started = true

	n.wg.Add(1)
	go n.listenLoop()
	logger.Info(n.ctx, "rate card invalidator started", "channel", n.channel)
}

// Stop ends the listener and waits for it to exit.
func (n *NotifyInvalidator) Stop() {
	n.lifecycleMu.Lock()
	if !n.started {
		n.lifecycleMu.Unlock()
		return
	}
	cancel := n.cancel
	n.started = false
	n.lifecycleMu.Unlock()

	cancel()
	n.wg.Wait()
	logger.Info(context.Background(), "rate card invalidator stopped")
}

func (n *NotifyInvalidator) listenLoop() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			return
		default:
		}

		conn, err := n.pool.Acquire(n.ctx)
		if err != nil {
			logger.Error(n.ctx, "failed to acquire connection for LISTEN", "error", err)
			n.sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(n.ctx, "LISTEN "+quoteIdent(n.channel)); err != nil {
			logger.Error(n.ctx, "failed to LISTEN", "channel", n.channel, "error", err)
			conn.Release()
			n.sleep(time.Second)
			continue
		}

		n.waitForNotifications(conn)
		conn.Release()
	}
}

func (n *NotifyInvalidator) waitForNotifications(conn *pgxpool.Conn) {
	for {
		if n.ctx.Err() != nil {
			return
		}

		ctx, cancel := context.WithTimeout(n.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if n.ctx.Err() != nil {
				return
			}
			if conn.Conn().IsClosed() {
				logger.Warn(n.ctx, "LISTEN connection closed, reconnecting")
				return
			}
			continue
		}

		n.handleNotification(n.ctx, notification.Payload)
	}
}

// handleNotification invalidates the organization named by payload.
func (n *NotifyInvalidator) handleNotification(ctx context.Context, payload string) {
	orgID, err := id.Parse(strings.TrimSpace(payload), "organizationId")
	if err != nil {
		logger.Warn(ctx, "ignoring rate card notification with bad payload", "payload", payload)
		return
	}
	n.cache.Invalidate(ctx, orgID)
	logger.Debug(ctx, "rate card cache invalidated by notification", "organization_id", orgID.String())
}

func (n *NotifyInvalidator) sleep(d time.Duration) {
	select {
	case <-n.ctx.Done():
	case <-time.After(d):
	}
}

// quoteIdent quotes a channel name for LISTEN, which takes no bind parameters.
func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
