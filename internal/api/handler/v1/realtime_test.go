package v1

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DeliverAfterClose(t *testing.T) {
	c := &Client{send: make(chan []byte, 1)}

	assert.True(t, c.deliver([]byte("a")))
	assert.False(t, c.deliver([]byte("b")), "full buffer reports back so the hub can drop the client")

	c.closeSend()
	c.closeSend()

	assert.NotPanics(t, func() {
		c.push(Message{Type: MessageStatus})
		assert.True(t, c.deliver([]byte("c")))
	})

	msg, ok := <-c.send
	require.True(t, ok)
	assert.Equal(t, "a", string(msg))
	_, ok = <-c.send
	assert.False(t, ok)
}

func TestOriginChecker(t *testing.T) {
	open := originChecker(nil)
	assert.True(t, open(requestFrom("https://evil.example")))

	strict := originChecker([]string{"https://ecobox.ge"})
	assert.True(t, strict(requestFrom("https://ecobox.ge")))
	assert.True(t, strict(requestFrom("")))
	assert.False(t, strict(requestFrom("https://evil.example")))
}

func TestMessage_OmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(Message{Type: MessageInvalidate, Key: "statistics"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"invalidate","key":"statistics"}`, string(raw))
}

func requestFrom(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/realtime", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}
