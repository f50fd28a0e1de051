package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return string(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return ""
	}
}

func TestBroker_PublishToSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	assert.Equal(t, 2, b.ClientCount())

	b.Publish(ChatHighlight, map[string][]string{"ids": {"a", "b"}})

	want := "event: chat.highlight\ndata: {\"ids\":[\"a\",\"b\"]}\n\n"
	assert.Equal(t, want, receive(t, ch1))
	assert.Equal(t, want, receive(t, ch2))
}

func TestBroker_Unsubscribe(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	ch := b.Subscribe()
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.ClientCount())
}

func TestBroker_CloseIsIdempotent(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe()

	b.Close()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.ClientCount())

	// Publishing after close is a no-op.
	b.Publish(LinkAdded, nil)

	late := b.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}

func TestBroker_ServeHTTP(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return b.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Publish(LinkDeleted, map[string]string{"id": "x"})

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(buf[:n]), "event: link.deleted\n"))
}
