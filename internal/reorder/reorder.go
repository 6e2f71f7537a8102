// Package reorder buffers per-vehicle UDP telemetry so that messages leave
// the stage with a monotonically non-decreasing ntp_timestamp, fast-
// forwarding past gaps rather than stalling the pipeline indefinitely.
package reorder

import (
	"container/heap"
	"time"

	"github.com/HSLdevcom/ajoaikadata/internal/eke"
)

// CacheMaxSize is the heap's maximum resident message count before the
// reorder buffer fast-forwards its waiting cursor.
const CacheMaxSize = 1000

// UnexpectedTimeDiff is how long the buffer will wait for the expected
// packet_no before giving up and buffering out of order.
const UnexpectedTimeDiff = 30 * time.Second

// sequenceModulus matches the observed Stadler UDP packet_no wraparound.
const sequenceModulus = 255

func nextSeq(packetNo int) int {
	return (packetNo + 1) % sequenceModulus
}

type item struct {
	tst time.Time
	msg *eke.Msg
}

type minHeap []item

func (h minHeap) Len() int            { return len(h) }
func (h minHeap) Less(i, j int) bool  { return h[i].tst.Before(h[j].tst) }
func (h minHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)         { *h = append(*h, x.(item)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

// State is one vehicle's reorder buffer. The zero value is not usable; call
// NewState.
type State struct {
	msgs            minHeap
	waitingForNo    int
	lastReleasedTst time.Time
}

// NewState returns an empty buffer, matching create_empty_udp_cache.
func NewState() *State {
	return &State{
		waitingForNo:    -1,
		lastReleasedTst: time.Unix(0, 0),
	}
}

func packetNo(msg *eke.Msg) (int, bool) {
	udp, ok := msg.Content.(*eke.UDPContent)
	if !ok || udp == nil {
		return 0, false
	}
	return int(udp.PacketNo), true
}

// drain pops contiguous releasable entries off the heap: non-UDP messages
// always release; a UDP message releases only if it matches waitingForNo,
// at which point both cursors advance. The first non-matching top stops
// the drain and is pushed back.
func (s *State) drain() []*eke.Msg {
	var out []*eke.Msg
	for s.msgs.Len() > 0 {
		top := s.msgs[0]
		if top.msg.MsgType != 1 {
			heap.Pop(&s.msgs)
			out = append(out, top.msg)
			continue
		}
		no, ok := packetNo(top.msg)
		if !ok || no != s.waitingForNo {
			break
		}
		heap.Pop(&s.msgs)
		s.waitingForNo = nextSeq(s.waitingForNo)
		s.lastReleasedTst = top.tst
		out = append(out, top.msg)
	}
	return out
}

// addToCache pushes item onto the heap; if the heap overflows CacheMaxSize
// it fast-forwards waitingForNo to the new top's packet_no (if the top is
// itself UDP) and drains.
func (s *State) addToCache(it item) []*eke.Msg {
	heap.Push(&s.msgs, it)

	if s.msgs.Len() > CacheMaxSize {
		top := s.msgs[0]
		if top.msg.MsgType == 1 {
			if no, ok := packetNo(top.msg); ok {
				s.waitingForNo = no
			}
		}
		return s.drain()
	}
	return nil
}

// Process runs one record through the reorder buffer, returning the
// (possibly empty) list of messages now releasable in order.
func (s *State) Process(msg *eke.Msg) []*eke.Msg {
	if msg.MsgType != 1 {
		tst := msg.NtpTimestamp
		if s.msgs.Len() > 0 && tst.After(s.msgs[0].tst) {
			return s.addToCache(item{tst: tst, msg: msg})
		}
		return []*eke.Msg{msg}
	}

	no, _ := packetNo(msg)
	tst := msg.NtpTimestamp

	if !msg.NtpTimeValid {
		msg.Discard = true
		return []*eke.Msg{msg}
	}

	if s.waitingForNo == -1 {
		s.waitingForNo = nextSeq(no)
		s.lastReleasedTst = tst
		return []*eke.Msg{msg}
	}

	if tst.Before(s.lastReleasedTst) {
		msg.Discard = true
		return []*eke.Msg{msg}
	}

	stale := tst.Sub(s.lastReleasedTst) > UnexpectedTimeDiff
	aheadOfHeapTop := s.msgs.Len() > 0 && tst.After(s.msgs[0].tst)
	if s.waitingForNo != no || stale || aheadOfHeapTop {
		return s.addToCache(item{tst: tst, msg: msg})
	}

	out := []*eke.Msg{msg}
	s.lastReleasedTst = tst
	s.waitingForNo = nextSeq(no)
	out = append(out, s.drain()...)
	return out
}
