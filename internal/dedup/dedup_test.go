package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

func sampleMsg(packetNo uint8, ts time.Time) *eke.Msg {
	return &eke.Msg{
		MsgType:      1,
		MsgName:      "UDP",
		Vehicle:      "123",
		EkeTimestamp: ts,
		NtpTimestamp: ts,
		Content:      &eke.UDPContent{PacketNo: packetNo},
	}
}

func TestCache_AdmitsOnceThenSuppresses(t *testing.T) {
	c, err := NewCache(10)
	require.NoError(t, err)

	ts := time.Unix(1_700_000_000, 0)
	msg := sampleMsg(5, ts)

	assert.False(t, c.Admit(msg), "first sight should be admitted")
	assert.True(t, c.Admit(msg), "repeat should be suppressed")
	assert.Equal(t, 1, c.Len())
}

func TestCache_DistinguishesContent(t *testing.T) {
	c, err := NewCache(10)
	require.NoError(t, err)

	ts := time.Unix(1_700_000_000, 0)
	assert.False(t, c.Admit(sampleMsg(1, ts)))
	assert.False(t, c.Admit(sampleMsg(2, ts)))
	assert.Equal(t, 2, c.Len())
}

func TestCache_EvictsOldestOnOverflow(t *testing.T) {
	c, err := NewCache(2)
	require.NoError(t, err)

	ts := time.Unix(1_700_000_000, 0)
	a, b, evicted := sampleMsg(1, ts), sampleMsg(2, ts), sampleMsg(3, ts)

	c.Admit(a)
	c.Admit(b)
	c.Admit(evicted)
	assert.Equal(t, 2, c.Len())

	// a's hash should have been evicted to make room for `evicted`.
	assert.False(t, c.Admit(a), "a should have been evicted and re-admitted")
}
