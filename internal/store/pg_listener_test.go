package store

import (
	"testing"

	"globalgigs/pkg/logger"
)

func pending(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestPGListenerFansOutByPath(t *testing.T) {
	l := newPGListener(nil, logger.NewNop())

	_, conv := l.add("conversations/c1/messages")
	_, proposal := l.add("proposals/p1")
	otherID, other := l.add("proposals/p2")

	l.dispatch("conversations/c1/messages/m1")
	if !pending(conv) {
		t.Error("message write should wake the conversation feed")
	}
	if pending(proposal) || pending(other) {
		t.Error("unrelated feeds woke up")
	}

	l.dispatch("proposals/p1")
	l.dispatch("proposals/p1")
	if !pending(proposal) {
		t.Error("proposal write should wake its feed")
	}
	if pending(proposal) {
		t.Error("a burst of writes should leave one pending signal")
	}

	l.remove(otherID)
	l.dispatch("proposals/p2")
	if pending(other) {
		t.Error("removed feed was signalled")
	}
	if l.count() != 2 {
		t.Errorf("expected two registered feeds, got %d", l.count())
	}

	l.wakeAll()
	if !pending(conv) || !pending(proposal) {
		t.Error("wakeAll should signal every feed")
	}
}

func TestPGListenerCloseWithoutStart(t *testing.T) {
	l := newPGListener(nil, logger.NewNop())
	l.close()
	l.start()
	l.close()
}
