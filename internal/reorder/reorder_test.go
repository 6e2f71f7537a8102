package reorder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

func udpMsg(secOffset int, packetNo int) *eke.Msg {
	return &eke.Msg{
		MsgType:      1,
		NtpTimeValid: true,
		NtpTimestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(secOffset) * time.Second),
		Content:      &eke.UDPContent{PacketNo: uint8(packetNo)},
	}
}

func feed(s *State, msgs []*eke.Msg) []*eke.Msg {
	var out []*eke.Msg
	for _, m := range msgs {
		out = append(out, s.Process(m)...)
	}
	return out
}

func packetNos(t *testing.T, msgs []*eke.Msg) []int {
	t.Helper()
	var out []int
	for _, m := range msgs {
		udp, ok := m.Content.(*eke.UDPContent)
		require.True(t, ok)
		out = append(out, int(udp.PacketNo))
	}
	return out
}

func TestReorder_NormalOrderPassesThrough(t *testing.T) {
	s := NewState()
	in := []*eke.Msg{udpMsg(5, 1), udpMsg(6, 2), udpMsg(7, 3), udpMsg(8, 4)}
	out := feed(s, in)
	assert.Equal(t, []int{1, 2, 3, 4}, packetNos(t, out))
}

func TestReorder_SimpleOutOfOrder(t *testing.T) {
	s := NewState()
	in := []*eke.Msg{
		udpMsg(1, 1), udpMsg(3, 3), udpMsg(4, 4), udpMsg(6, 6),
		udpMsg(5, 5), udpMsg(7, 7), udpMsg(2, 2), udpMsg(8, 8),
	}
	out := feed(s, in)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, packetNos(t, out))
}

func TestReorder_SequenceWraparound(t *testing.T) {
	s := NewState()
	in := []*eke.Msg{
		udpMsg(1, 252), udpMsg(4, 0), udpMsg(3, 254), udpMsg(5, 1),
		udpMsg(2, 253), udpMsg(7, 3), udpMsg(6, 2), udpMsg(8, 4),
	}
	out := feed(s, in)
	assert.Equal(t, []int{252, 253, 254, 0, 1, 2, 3, 4}, packetNos(t, out))
}

func TestReorder_SwappedAcrossTwoLoops(t *testing.T) {
	s := NewState()
	const n = 510
	in := make([]*eke.Msg, n)
	for i := 0; i < n; i++ {
		in[i] = udpMsg(i, i%255)
	}
	in[5], in[300] = in[300], in[5]

	out := feed(s, in)
	require.Len(t, out, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i%255, int(out[i].Content.(*eke.UDPContent).PacketNo), "position %d", i)
	}
}

func TestReorder_TooLateMessageIsDiscarded(t *testing.T) {
	s := NewState()
	const n = 20
	in := make([]*eke.Msg, n)
	for i := 0; i < n; i++ {
		in[i] = udpMsg(i, i%255)
	}
	late := udpMsg(3, 3)
	insertAt := 15
	in = append(in[:insertAt], append([]*eke.Msg{late}, in[insertAt:]...)...)

	out := feed(s, in)
	require.Len(t, out, n+1)

	var discarded *eke.Msg
	for _, m := range out {
		if m.Discard {
			discarded = m
		}
	}
	require.NotNil(t, discarded, "expected exactly one discarded message")
	assert.Equal(t, 3, int(discarded.Content.(*eke.UDPContent).PacketNo))
}

func TestReorder_NonUDPPassesThroughWhenHeapEmpty(t *testing.T) {
	s := NewState()
	msg := &eke.Msg{MsgType: 3, NtpTimestamp: time.Now()}
	out := s.Process(msg)
	require.Len(t, out, 1)
	assert.Same(t, msg, out[0])
}

func TestReorder_InvalidNtpTimeDiscardsImmediately(t *testing.T) {
	s := NewState()
	msg := udpMsg(1, 1)
	msg.NtpTimeValid = false
	out := s.Process(msg)
	require.Len(t, out, 1)
	assert.True(t, out[0].Discard)
}
