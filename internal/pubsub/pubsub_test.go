package pubsub

import (
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		payload string
		want    ChangeEvent
		ok      bool
	}{
		{"project_roles:UPDATE", ChangeEvent{ChangeTypeProjectRole, "UPDATE"}, true},
		{"workspace_memberships:INSERT", ChangeEvent{ChangeTypeWorkspaceMembership, "INSERT"}, true},
		{"projects:DELETE", ChangeEvent{ChangeTypeProject, "DELETE"}, true},
		{"projects", ChangeEvent{}, false},
		{":UPDATE", ChangeEvent{}, false},
		{"", ChangeEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, ok := ParsePayload(tt.payload)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReconnectTriggersReload(t *testing.T) {
	ps := NewPubSub("postgresql://localhost/taiga")
	t.Cleanup(ps.Stop)

	events := make(chan ChangeEvent, 2)
	ps.Subscribe(func(e ChangeEvent) { events <- e })
	ps.Subscribe(func(e ChangeEvent) { events <- e })

	ps.reportProblem(pq.ListenerEventReconnected, nil)

	for range 2 {
		select {
		case e := <-events:
			assert.Equal(t, ChangeEvent{ChangeTypeAll, OperationReload}, e)
		case <-time.After(time.Second):
			require.FailNow(t, "handler was not notified")
		}
	}
}

func TestDisconnectDoesNotNotify(t *testing.T) {
	ps := NewPubSub("postgresql://localhost/taiga")
	t.Cleanup(ps.Stop)

	events := make(chan ChangeEvent, 1)
	ps.Subscribe(func(e ChangeEvent) { events <- e })

	ps.reportProblem(pq.ListenerEventDisconnected, nil)

	select {
	case e := <-events:
		t.Fatalf("unexpected event %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
