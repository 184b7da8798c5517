package server_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"pgprelay/internal/model"
	"pgprelay/internal/protocol/relay"
	"pgprelay/internal/repository/memory"
	"pgprelay/internal/service/server"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifier is an in-process Notifier. It records the order of Listen and
// Drain calls, and pushes routed while nobody listens go to the offline
// buffer; the gap push below lands on the live channel only because the
// watch loop listens first.
type fakeNotifier struct {
	mu       sync.Mutex
	calls    []string
	buffered []*model.Notification
	live     chan *model.Notification
	gap      *model.Notification
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{live: make(chan *model.Notification, 8)}
}

func (f *fakeNotifier) Push(_ context.Context, _ string, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	listening := false
	for _, c := range f.calls {
		if c == "listen" {
			listening = true
		}
	}
	if listening {
		f.live <- n
	} else {
		f.buffered = append(f.buffered, n)
	}
	return nil
}

func (f *fakeNotifier) Drain(_ context.Context, _ string) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "drain")
	// A push squeezing in between subscribe and drain. With the listen-first
	// ordering it reaches the live channel; it would be dropped otherwise.
	if f.gap != nil {
		f.live <- f.gap
		f.gap = nil
	}
	out := f.buffered
	f.buffered = nil
	return out, nil
}

func (f *fakeNotifier) Listen(_ context.Context, _ string) (<-chan *model.Notification, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "listen")
	return f.live, func() {}, nil
}

func (f *fakeNotifier) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func dialWatch(t *testing.T, ts *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch?username=" + username
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func readNotification(t *testing.T, conn *websocket.Conn) model.Notification {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var n model.Notification
	require.NoError(t, conn.ReadJSON(&n))
	return n
}

func TestWatch_SubscribesBeforeDraining(t *testing.T) {
	svc := relay.NewService(memory.NewUserRepo(), memory.NewMessageRepo(), stubEngine{}, 0)
	notifier := newFakeNotifier()
	notifier.buffered = []*model.Notification{{Sender: "stored"}}
	notifier.gap = &model.Notification{Sender: "in-between"}

	ts := httptest.NewServer(server.NewHttpServer(svc, notifier).Router())
	defer ts.Close()

	post(t, ts, "/enter", map[string]string{"username": "bob", "key": "bob-key"})

	conn := dialWatch(t, ts, "bob")
	defer conn.Close()

	// Buffered history first, then the notification from the gap.
	first := readNotification(t, conn)
	assert.Equal(t, "stored", first.Sender)
	second := readNotification(t, conn)
	assert.Equal(t, "in-between", second.Sender)

	assert.Equal(t, []string{"listen", "drain"}, notifier.callOrder())
}

func TestWatch_DeliversConfirmNotifications(t *testing.T) {
	svc := relay.NewService(memory.NewUserRepo(), memory.NewMessageRepo(), stubEngine{}, 0)
	notifier := newFakeNotifier()

	ts := httptest.NewServer(server.NewHttpServer(svc, notifier).Router())
	defer ts.Close()

	post(t, ts, "/enter", map[string]string{"username": "alice", "key": "alice-key"})
	post(t, ts, "/enter", map[string]string{"username": "bob", "key": "bob-key"})

	conn := dialWatch(t, ts, "bob")
	defer conn.Close()

	// Wait for the watch loop to come up before confirming, so the push
	// takes the live path.
	require.Eventually(t, func() bool {
		return len(notifier.callOrder()) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	env := post(t, ts, "/send", map[string]string{
		"sender": "alice", "receiver": "bob", "message": "hi",
	})
	var sent struct {
		PGPHash string `json:"pgpHash"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	post(t, ts, "/confirm", map[string]string{"decryptedHash": unseal(t, sent.PGPHash)})

	n := readNotification(t, conn)
	assert.Equal(t, "alice", n.Sender)
}

func TestWatch_UnavailableWithoutNotifier(t *testing.T) {
	ts := newTestServer()
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/watch?username=bob"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
}
