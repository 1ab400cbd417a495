package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Channel is the postgres channel the access triggers notify on
const Channel = "access_changes"

// OperationReload is sent after a reconnect, when notifications may have been missed
const OperationReload = "RELOAD"

// ChangeType is the table whose rows changed
type ChangeType string

const (
	ChangeTypeWorkspace           ChangeType = "workspaces"
	ChangeTypeWorkspaceRole       ChangeType = "workspace_roles"
	ChangeTypeWorkspaceMembership ChangeType = "workspace_memberships"
	ChangeTypeProject             ChangeType = "projects"
	ChangeTypeProjectRole         ChangeType = "project_roles"
	ChangeTypeProjectMembership   ChangeType = "project_memberships"
	ChangeTypeAll                 ChangeType = "*"
)

// ChangeEvent represents an access related change notification
type ChangeEvent struct {
	ChangeType ChangeType
	Operation  string // INSERT, UPDATE, DELETE, RELOAD
}

// ChangeHandler is a callback function for access changes
type ChangeHandler func(event ChangeEvent)

// PubSub handles PostgreSQL LISTEN/NOTIFY for access changes
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers []ChangeHandler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPubSub creates a PubSub listening with the given postgres connection string
func NewPubSub(connStr string) *PubSub {
	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  connStr,
		handlers: make([]ChangeHandler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for change events
func (ps *PubSub) Subscribe(handler ChangeHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, ps.reportProblem)

	if err := ps.listener.Listen(Channel); err != nil {
		return fmt.Errorf("failed to listen on %s channel: %w", Channel, err)
	}

	slog.Info("PubSub started listening for access changes")

	go ps.processNotifications()

	return nil
}

func (ps *PubSub) reportProblem(ev pq.ListenerEventType, err error) {
	if err != nil {
		slog.Error("PubSub listener error", slog.Any("error", err))
	}
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed:
		slog.Warn("PubSub connection attempt failed, will retry")
	case pq.ListenerEventDisconnected:
		slog.Warn("PubSub disconnected, will attempt reconnect")
	case pq.ListenerEventReconnected:
		slog.Info("PubSub reconnected, triggering full reload")
		ps.notifyHandlers(ChangeEvent{ChangeType: ChangeTypeAll, Operation: OperationReload})
	}
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, handled by reportProblem
				continue
			}

			event, ok := ParsePayload(notification.Extra)
			if !ok {
				slog.Warn("Invalid notification payload", slog.String("payload", notification.Extra))
				continue
			}

			slog.Debug("Received access change notification",
				slog.String("table", string(event.ChangeType)),
				slog.String("operation", event.Operation))

			ps.notifyHandlers(event)
		}
	}
}

// ParsePayload decodes a "table:operation" notification payload
func ParsePayload(payload string) (ChangeEvent, bool) {
	table, op, ok := strings.Cut(payload, ":")
	if !ok || table == "" || op == "" {
		return ChangeEvent{}, false
	}
	return ChangeEvent{ChangeType: ChangeType(table), Operation: op}, true
}

func (ps *PubSub) notifyHandlers(event ChangeEvent) {
	ps.mu.RLock()
	handlers := make([]ChangeHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		// Run handlers in goroutines to avoid blocking the notification loop
		go handler(event)
	}
}
