package motion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/camlink/camlink-go/pkg/transport"
	"github.com/camlink/camlink-go/pkg/wire"
)

const (
	testChannel = uint8(0)
	testMsgNum  = uint16(7)
)

// mockOpener is a testify mock for StreamOpener.
type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) OpenStream(ctx context.Context, msgNum uint16) (transport.MessageStream, error) {
	args := m.Called(ctx, msgNum)
	stream, _ := args.Get(0).(transport.MessageStream)
	return stream, args.Error(1)
}

// fakeStream is a channel-fed MessageStream.
type fakeStream struct {
	sent      chan *wire.Message
	in        chan *wire.Message
	errs      chan error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		sent:   make(chan *wire.Message, 8),
		in:     make(chan *wire.Message, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (f *fakeStream) Send(_ context.Context, msg *wire.Message) error {
	f.sent <- msg
	return nil
}

func (f *fakeStream) Recv(ctx context.Context) (*wire.Message, error) {
	select {
	case msg := <-f.in:
		return msg, nil
	case err := <-f.errs:
		return nil, err
	case <-f.closed:
		return nil, transport.ErrSubscriptionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeStream) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeStream) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func reply(code wire.ResponseCode) *wire.Message {
	return &wire.Message{Header: wire.Header{
		MsgID:        wire.MsgIDMotionRequest,
		MsgNum:       testMsgNum,
		ResponseCode: code,
		Class:        wire.ClassModern,
	}}
}

// alarm builds a motion notification with one entry per (channel, status) pair.
func alarm(entries ...any) *wire.Message {
	var events []wire.AlarmEvent
	for i := 0; i+1 < len(entries); i += 2 {
		events = append(events, wire.AlarmEvent{
			ChannelID: entries[i].(uint8),
			Status:    entries[i+1].(string),
		})
	}
	return &wire.Message{
		Header: wire.Header{MsgID: wire.MsgIDMotion, MsgNum: testMsgNum, Class: wire.ClassModern},
		Body:   &wire.Body{AlarmEventList: &wire.AlarmEventList{Events: events}},
	}
}

func startMsg() *wire.Message { return alarm(testChannel, wire.AlarmStatusMotion) }
func stopMsg() *wire.Message { return alarm(testChannel, wire.AlarmStatusNone) }
func noChangeMsg() *wire.Message { return alarm(uint8(3), wire.AlarmStatusMotion) }

// newTestSession arms a session over fake streams and returns the live one.
// The session is closed when the test ends.
func newTestSession(t *testing.T) (*Session, *fakeStream) {
	t.Helper()
	s, live := listenFake(t)
	t.Cleanup(func() { _ = s.Close() })
	return s, live
}

// listenFake arms a session over fake streams without scheduling Close.
func listenFake(t *testing.T) (*Session, *fakeStream) {
	t.Helper()

	arming := newFakeStream()
	arming.in <- reply(wire.ResponseOK)
	live := newFakeStream()

	opener := &mockOpener{}
	opener.On("OpenStream", mock.Anything, testMsgNum).Return(arming, nil).Once()
	opener.On("OpenStream", mock.Anything, testMsgNum).Return(live, nil).Once()

	s, err := Listen(context.Background(), opener, Config{ChannelID: testChannel, MsgNum: testMsgNum})
	require.NoError(t, err)

	opener.AssertExpectations(t)
	return s, live
}

// inject delivers msgs to the listener and waits until all are queued.
func inject(t *testing.T, s *Session, live *fakeStream, msgs ...*wire.Message) {
	t.Helper()
	want := len(s.rx) + len(msgs)
	for _, msg := range msgs {
		live.in <- msg
	}
	require.Eventually(t, func() bool { return len(s.rx) == want },
		time.Second, time.Millisecond, "listener did not queue %d statuses", len(msgs))
}

func kinds(statuses []Status) []Kind {
	out := make([]Kind, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, st.Kind)
	}
	return out
}
