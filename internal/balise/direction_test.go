package balise

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
	"github.com/HSLdevcom/ajoaikadata/internal/keyed"
)

func combinedMsg(balisID int, cba string, ntp time.Time) *eke.Msg {
	return &eke.Msg{
		MsgType:      5,
		NtpTimestamp: ntp,
		Content:      &eke.BaliseContent{BaliseID: balisID, BaliseCba: cba},
	}
}

func TestDirectionState_ResolvesOppositeCbaPair(t *testing.T) {
	s := NewDirectionState(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)

	first := keyed.New(combinedMsg(42, "1(2)", base), "ref-a")
	assert.Nil(t, s.Resolve(first))

	second := keyed.New(combinedMsg(42, "2(2)", base.Add(5*time.Second)), "ref-b")
	out := s.Resolve(second)
	require.NotNil(t, out)

	bc := out.Data.Content.(*eke.BaliseContent)
	assert.Equal(t, 1, bc.Direction)
	assert.Empty(t, bc.BaliseCba)
	assert.Equal(t, []string{"ref-a", "ref-b"}, out.SourceRefs)
}

func TestDirectionState_SameCbaYieldsDirectionZero(t *testing.T) {
	s := NewDirectionState(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)

	s.Resolve(keyed.New(combinedMsg(7, "1(2)", base), "ref-a"))
	out := s.Resolve(keyed.New(combinedMsg(7, "1(2)", base.Add(time.Second)), "ref-b"))
	require.NotNil(t, out)
	assert.Equal(t, 0, out.Data.Content.(*eke.BaliseContent).Direction)
}

func TestDirectionState_OutsideWindowReleasesAsIncomplete(t *testing.T) {
	s := NewDirectionState(zerolog.Nop())
	base := time.Unix(1_700_000_000, 0)

	s.Resolve(keyed.New(combinedMsg(99, "1(2)", base), "ref-a"))
	out := s.Resolve(keyed.New(combinedMsg(99, "2(2)", base.Add(time.Minute)), "ref-b"))
	require.NotNil(t, out)
	assert.True(t, out.Data.Incomplete)
}

func TestDirectionState_IncompleteMsgPassesThroughUnresolved(t *testing.T) {
	s := NewDirectionState(zerolog.Nop())
	msg := combinedMsg(1, "1(2)", time.Now())
	msg.Incomplete = true
	env := keyed.New(msg, "ref")
	out := s.Resolve(env)
	require.NotNil(t, out)
	assert.Same(t, msg, out.Data)
}
