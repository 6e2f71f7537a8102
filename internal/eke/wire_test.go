package eke

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMsg_JSONRoundTrip_PreservesUDPContentType(t *testing.T) {
	tst := time.Unix(1700000000, 0).UTC()
	msg := &Msg{
		MsgType: 1,
		MsgName: "UDP",
		Vehicle: "42",
		Tst:     tst,
		Content: &UDPContent{DoorsOpen: true, Speed: 12.5},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Msg
	require.NoError(t, json.Unmarshal(data, &decoded))

	content, ok := decoded.Content.(*UDPContent)
	require.True(t, ok, "content must decode back to *UDPContent, not map[string]any")
	assert.True(t, content.DoorsOpen)
	assert.Equal(t, msg.Vehicle, decoded.Vehicle)
	assert.True(t, msg.Tst.Equal(decoded.Tst))
}

func TestMsg_JSONRoundTrip_PreservesBaliseContentType(t *testing.T) {
	msg := &Msg{
		MsgType: 5,
		MsgName: "EKE JKV Beacon",
		Vehicle: "7",
		Content: &BaliseContent{BaliseID: 123, Direction: 1},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Msg
	require.NoError(t, json.Unmarshal(data, &decoded))

	content, ok := decoded.Content.(*BaliseContent)
	require.True(t, ok)
	assert.Equal(t, 123, content.BaliseID)
	assert.Equal(t, 1, content.Direction)
}

func TestMsg_JSONRoundTrip_NilContent(t *testing.T) {
	msg := &Msg{MsgType: 3, Vehicle: "1"}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Msg
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded.Content)
}
