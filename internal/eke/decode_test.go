package eke

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildHeader(msgType int, msgVersion int, ntpValid bool, ekeSecs, ntpSecs uint32) []byte {
	head := uint16(msgType&0x1F) | uint16(msgVersion&0x3FF)<<5
	if ntpValid {
		head |= 1 << 15
	}
	buf := make([]byte, 12)
	buf[0] = byte(head >> 8)
	buf[1] = byte(head)
	putTimestamp(buf[2:7], ekeSecs, 0)
	putTimestamp(buf[7:12], ntpSecs, 0)
	return buf
}

func putTimestamp(dst []byte, secs uint32, centis byte) {
	dst[0] = byte(secs >> 24)
	dst[1] = byte(secs >> 16)
	dst[2] = byte(secs >> 8)
	dst[3] = byte(secs)
	dst[4] = centis
}

func TestDecode_ConnectionStatusBypass(t *testing.T) {
	row := RawRow{
		Vehicle:   "123",
		MqttTopic: "eke/v1/vehicle/123/connectionStatus",
		Raw:       []byte{0xFF},
	}
	msg, err := Decode(row)
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestDecode_UnknownMsgType(t *testing.T) {
	header := buildHeader(17, 0, true, 1_700_000_000, 1_700_000_000)
	row := RawRow{
		Vehicle:   "123",
		MqttTopic: "eke/v1/vehicle/123/data",
		Raw:       header,
	}
	msg, err := Decode(row)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, 17, msg.MsgType)
	assert.Nil(t, msg.Content)
}

func TestDecode_UDP(t *testing.T) {
	header := buildHeader(1, 1, true, 1_700_000_000, 1_700_000_000)
	body := make([]byte, 39)
	body[0] = 7 // packet_no
	row := RawRow{
		Vehicle:   "456",
		MqttTopic: "eke/v1/vehicle/456/data",
		Raw:       append(header, body...),
	}
	msg, err := Decode(row)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "UDP", msg.MsgName)
	udp, ok := msg.Content.(*UDPContent)
	require.True(t, ok)
	assert.EqualValues(t, 7, udp.PacketNo)
}

func TestDecode_HeaderTooShort(t *testing.T) {
	row := RawRow{
		Vehicle:   "1",
		MqttTopic: "eke/v1/vehicle/1/data",
		Raw:       []byte{0x01},
	}
	_, err := Decode(row)
	assert.Error(t, err)
}

func TestTimestampWithMS_CentisecondsToMillis(t *testing.T) {
	values, err := timestampWithMS([]byte{0x65, 0x5B, 0xA8, 0x00, 50}, true)
	require.NoError(t, err)
	ts := values[0].(time.Time)
	assert.Equal(t, 500*time.Millisecond, time.Duration(ts.Nanosecond()))
	assert.Equal(t, time.UTC, ts.Location())
}

func TestBaliseIDParser_Deterministic(t *testing.T) {
	a, err := baliseIDParser([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	require.NoError(t, err)
	b, err := baliseIDParser([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := baliseIDParser([]byte{0x12, 0x34, 0x56, 0x78, 0x9B})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestBaliseIDParser_SplitsNibblesIntoTwoHalves(t *testing.T) {
	// nibbles: 1 2 3 4 5 6 7 8 9 10 (as 1-indexed values, content below
	// encodes them 1-indexed so the -1 offset in the polynomial lands on
	// clean 0..9 terms); balise_id covers the first five, balise_id_next
	// the last five.
	values, err := baliseIDParser([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	require.NoError(t, err)
	id := values[0].(int)
	idNext := values[1].(int)

	nibbles := baliseNibbles([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	assert.Equal(t, balisePolynomialSum(nibbles[0:5], balisePolyBase), id)
	assert.Equal(t, balisePolynomialSum(nibbles[5:10], balisePolyBase), idNext)
}
