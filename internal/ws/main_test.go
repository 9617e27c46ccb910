package ws

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/piyushgupta53/termbridge/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSender is a synthetic gateway connection recording what the hub sends
type fakeSender struct {
	id string

	mu     sync.Mutex
	msgs   []*types.Message
	closed bool
}

func newFakeSender(id string) *fakeSender {
	return &fakeSender{id: id}
}

func (f *fakeSender) ID() string {
	return f.id
}

func (f *fakeSender) Send(msg *types.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
}

func (f *fakeSender) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSender) messages() []*types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeSender) messagesOfType(msgType types.MessageType) []*types.Message {
	var out []*types.Message
	for _, msg := range f.messages() {
		if msg.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// waitForMessage polls until the sender has received a message of the given
// type, failing the test on timeout
func (f *fakeSender) waitForMessage(t *testing.T, msgType types.MessageType) *types.Message {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if msgs := f.messagesOfType(msgType); len(msgs) > 0 {
			return msgs[0]
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("timed out waiting for %q message on connection %s", msgType, f.id)
	return nil
}

// waitFor polls until the condition holds, failing the test on timeout
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}

	t.Fatalf("timed out waiting for %s", what)
}
