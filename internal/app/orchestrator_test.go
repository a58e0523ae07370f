package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/directory/memdir"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/dkeye/Meet/internal/metrics"
	"github.com/dkeye/Meet/internal/protocol"
)

type fakeConn struct {
	mu     sync.Mutex
	frames []core.Frame
	reject bool
	closed bool
}

func (f *fakeConn) TrySend(fr core.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return errors.New("backpressure")
	}
	f.frames = append(f.frames, fr)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) sent() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, 0, len(f.frames))
	for _, fr := range f.frames {
		var m map[string]any
		if err := json.Unmarshal(fr, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeConn) sentOfType(kind protocol.Kind) []map[string]any {
	var out []map[string]any
	for _, m := range f.sent() {
		if m["type"] == string(kind) {
			out = append(out, m)
		}
	}
	return out
}

func newTestOrchestrator() *Orchestrator {
	m := metrics.New(prometheus.NewRegistry())
	reg := NewRegistry()
	return &Orchestrator{
		Registry:         reg,
		Rooms:            NewRooms(),
		Directory:        memdir.New(),
		Relayer:          &Relay{Registry: reg, Metrics: m},
		Policy:           SimplePolicy{},
		Metrics:          m,
		DirectoryTimeout: time.Second,
	}
}

func join(o *Orchestrator, cid core.ConnID, room domain.RoomID, pid domain.ParticipantID, name string, host bool) *fakeConn {
	conn := &fakeConn{}
	o.Join(context.Background(), cid, conn, room, domain.Participant{ID: pid, Name: name, IsHost: host})
	return conn
}

func TestJoin_FirstParticipantGetsEmptySnapshot(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "123456789", "alice", "Alice", true)

	snaps := a.sentOfType(protocol.KindExistingParticipants)
	req.Len(snaps, 1)
	req.Empty(snaps[0]["participants"])

	cid, _, ok := o.Registry.ConnOfParticipant("alice")
	req.True(ok)
	req.EqualValues("ca", cid)
}

func TestJoin_SecondParticipantSeesFirstAndNotifies(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "123456789", "alice", "Alice", true)
	b := join(o, "cb", "123456789", "bob", "Bob", false)

	// B's snapshot has exactly A, never B itself.
	snaps := b.sentOfType(protocol.KindExistingParticipants)
	req.Len(snaps, 1)
	participants := snaps[0]["participants"].([]any)
	req.Len(participants, 1)
	entry := participants[0].(map[string]any)
	req.Equal("alice", entry["participantId"])
	req.Equal("Alice", entry["participantName"])
	req.Equal(true, entry["isHost"])

	// A was told about B exactly once.
	joined := a.sentOfType(protocol.KindParticipantJoined)
	req.Len(joined, 1)
	req.Equal("bob", joined[0]["participantId"])
	req.Equal(false, joined[0]["isHost"])

	// B never received a participant-joined about itself.
	req.Empty(b.sentOfType(protocol.KindParticipantJoined))
}

func TestRelay_DeliversOpaquePayloadWithSenderIdentity(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "123456789", "alice", "Alice", true)
	join(o, "cb", "123456789", "bob", "Bob", false)

	payload := json.RawMessage(`{"sdp":"v=0 fake offer","weird":[1,2,3]}`)
	o.RelayFrom(protocol.KindOffer, "cb", "alice", payload)

	offers := a.sentOfType(protocol.KindOffer)
	req.Len(offers, 1)
	req.Equal("bob", offers[0]["fromParticipantId"])
	req.Equal("Bob", offers[0]["fromParticipantName"])

	raw, err := json.Marshal(offers[0]["payload"])
	req.NoError(err)
	req.JSONEq(string(payload), string(raw))
}

func TestRelay_UnknownTargetIsSilentNoop(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	b := join(o, "cb", "123456789", "bob", "Bob", false)
	before := len(b.sent())

	// Must not panic and must not produce anything for the sender.
	o.RelayFrom(protocol.KindCandidate, "cb", "ghost", json.RawMessage(`{}`))
	req.Len(b.sent(), before)
}

func TestDisconnect_NotifiesRoomAndDropsFollowupRelays(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "123456789", "alice", "Alice", true)
	join(o, "cb", "123456789", "bob", "Bob", false)

	o.OnDisconnect("cb")

	left := a.sentOfType(protocol.KindParticipantLeft)
	req.Len(left, 1)
	req.Equal("bob", left[0]["participantId"])
	req.Equal("Bob", left[0]["participantName"])

	_, _, ok := o.Registry.ConnOfParticipant("bob")
	req.False(ok)

	framesBefore := len(a.sent())
	o.RelayFrom(protocol.KindOffer, "ca", "bob", json.RawMessage(`{}`))
	req.Len(a.sent(), framesBefore)
}

func TestDisconnect_MarksParticipantOffline(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	join(o, "ca", "123456789", "alice", "Alice", true)
	o.OnDisconnect("ca")

	// Offline-marking is fire-and-forget; poll until it lands.
	req.Eventually(func() bool {
		online, err := o.Directory.ListOnlineParticipants(context.Background(), "123456789")
		return err == nil && len(online) == 0
	}, time.Second, 10*time.Millisecond)

	all, err := o.Directory.ListParticipants(context.Background(), "123456789")
	req.NoError(err)
	req.Len(all, 1)
	req.False(all[0].IsOnline)
}

func TestRejoin_LastJoinWinsForRelay(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	join(o, "ca", "123456789", "alice", "Alice", true)
	c1 := join(o, "c1", "123456789", "bob", "Bob", false)
	c2 := join(o, "c2", "123456789", "bob", "Bob", false)

	o.RelayFrom(protocol.KindAnswer, "ca", "bob", json.RawMessage(`{"sdp":"a"}`))

	req.Empty(c1.sentOfType(protocol.KindAnswer))
	req.Len(c2.sentOfType(protocol.KindAnswer), 1)
}

func TestRejoin_NewIdentityStopsRelaysToOldID(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	join(o, "ca", "123456789", "alice", "Alice", true)
	c1 := &fakeConn{}
	o.Join(context.Background(), "c1", c1, "123456789", domain.Participant{ID: "bob", Name: "Bob"})
	o.Join(context.Background(), "c1", c1, "123456789", domain.Participant{ID: "eve", Name: "Eve"})

	// A relay addressed to the superseded identity must not land on the
	// connection now bound as eve.
	o.RelayFrom(protocol.KindOffer, "ca", "bob", json.RawMessage(`{"sdp":"x"}`))
	req.Empty(c1.sentOfType(protocol.KindOffer))

	o.RelayFrom(protocol.KindOffer, "ca", "eve", json.RawMessage(`{"sdp":"x"}`))
	req.Len(c1.sentOfType(protocol.KindOffer), 1)
}

func TestRejoin_DifferentRoomLeavesOldGroup(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "111111111", "alice", "Alice", true)
	c := &fakeConn{}
	o.Join(context.Background(), "cc", c, "111111111", domain.Participant{ID: "carol", Name: "Carol"})
	o.Join(context.Background(), "cc", c, "222222222", domain.Participant{ID: "carol", Name: "Carol"})

	// The old room was told carol left and goes back to one member.
	left := a.sentOfType(protocol.KindParticipantLeft)
	req.Len(left, 1)
	req.Equal("carol", left[0]["participantId"])
	req.Equal(1, o.Rooms.MemberCount("111111111"))
	req.Equal(1, o.Rooms.MemberCount("222222222"))

	req.Eventually(func() bool {
		online, err := o.Directory.ListOnlineParticipants(context.Background(), "111111111")
		return err == nil && len(online) == 1
	}, time.Second, 10*time.Millisecond)

	// Old-room broadcasts no longer reach the moved connection.
	framesBefore := len(c.sent())
	join(o, "cd", "111111111", "dave", "Dave", false)
	req.Len(c.sent(), framesBefore)
	req.Empty(c.sentOfType(protocol.KindParticipantJoined))
}

func TestUpdateState_BroadcastsToOthersOnly(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	a := join(o, "ca", "123456789", "alice", "Alice", true)
	b := join(o, "cb", "123456789", "bob", "Bob", false)

	o.UpdateState("cb", true, false)

	changed := a.sentOfType(protocol.KindParticipantStateChanged)
	req.Len(changed, 1)
	req.Equal("bob", changed[0]["participantId"])
	req.Equal(true, changed[0]["isAudioMuted"])
	req.Equal(false, changed[0]["isVideoOff"])

	req.Empty(b.sentOfType(protocol.KindParticipantStateChanged))
}

func TestBackpressure_PolicyKicksSlowMember(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator()

	slow := &fakeConn{reject: true}
	o.Join(context.Background(), "cs", slow, "123456789", domain.Participant{ID: "slow", Name: "Slow"})
	join(o, "cb", "123456789", "bob", "Bob", false)

	// Bob's join broadcast hits the slow member's full buffer; the default
	// policy kicks it out.
	req.Equal(1, o.Rooms.MemberCount("123456789"))
	_, _, ok := o.Registry.Lookup("cs")
	req.False(ok)

	slow.mu.Lock()
	defer slow.mu.Unlock()
	req.True(slow.closed)
}
