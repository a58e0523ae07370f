package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/Meet/internal/domain"
)

func TestRegistry_BindAndLookup(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	p := domain.Participant{ID: "alice", Name: "Alice", IsHost: true}
	sig := &fakeConn{}
	r.Bind("c1", "123456789", p, sig)

	got, room, ok := r.Lookup("c1")
	req.True(ok)
	req.Equal(p, got)
	req.Equal(domain.RoomID("123456789"), room)

	cid, gotSig, ok := r.ConnOfParticipant("alice")
	req.True(ok)
	req.EqualValues("c1", cid)
	req.Same(sig, gotSig.(*fakeConn))
}

func TestRegistry_LookupUnknown(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	_, _, ok := r.Lookup("nope")
	req.False(ok)
	_, _, ok = r.ConnOfParticipant("nobody")
	req.False(ok)
}

func TestRegistry_UnbindIsIdempotent(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	r.Bind("c1", "room", domain.Participant{ID: "alice", Name: "Alice"}, &fakeConn{})

	_, _, ok := r.Unbind("c1")
	req.True(ok)
	_, _, ok = r.Unbind("c1")
	req.False(ok)
	req.Zero(r.Len())

	_, _, ok = r.ConnOfParticipant("alice")
	req.False(ok)
}

func TestRegistry_RebindReleasesOldParticipantID(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()

	sig := &fakeConn{}
	r.Bind("c1", "room", domain.Participant{ID: "alice", Name: "Alice"}, sig)
	r.Bind("c1", "room", domain.Participant{ID: "eve", Name: "Eve"}, sig)

	// The superseded ID must not resolve to a connection now bound to
	// someone else.
	_, _, ok := r.ConnOfParticipant("alice")
	req.False(ok)

	cid, _, ok := r.ConnOfParticipant("eve")
	req.True(ok)
	req.EqualValues("c1", cid)

	r.Unbind("c1")
	_, _, ok = r.ConnOfParticipant("eve")
	req.False(ok)
	req.Zero(r.Len())
}

func TestRegistry_LastJoinWins(t *testing.T) {
	req := require.New(t)
	r := NewRegistry()
	p := domain.Participant{ID: "alice", Name: "Alice"}

	r.Bind("c1", "room", p, &fakeConn{})
	r.Bind("c2", "room", p, &fakeConn{})

	cid, _, ok := r.ConnOfParticipant("alice")
	req.True(ok)
	req.EqualValues("c2", cid)

	// The orphaned first connection disconnects later; that must not clobber
	// the newer binding.
	_, _, ok = r.Unbind("c1")
	req.True(ok)

	cid, _, ok = r.ConnOfParticipant("alice")
	req.True(ok)
	req.EqualValues("c2", cid)

	_, _, ok = r.Unbind("c2")
	req.True(ok)
	_, _, ok = r.ConnOfParticipant("alice")
	req.False(ok)
}
