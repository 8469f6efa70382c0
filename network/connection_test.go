package network

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	frame, err := Encode(MsgTypeNotification, []byte(`{"kind":"success"}`))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x2d, 0x00, 0x12}, frame[:4])

	p, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(MsgTypeNotification), p.MsgID)
	assert.Equal(t, uint16(18), p.Length)

	var body map[string]string
	require.NoError(t, p.Decode(&body))
	assert.Equal(t, "success", body["kind"])
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x01})
	assert.ErrorIs(t, err, io.ErrShortBuffer)

	_, err = Decode([]byte{0x00, 0x01, 0x00, 0x05, 'a'})
	assert.ErrorIs(t, err, io.ErrShortBuffer)
}

func TestEncode_TooLarge(t *testing.T) {
	_, err := Encode(MsgTypeViewState, bytes.Repeat([]byte{'x'}, 70000))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
}

func TestWSConnection_RoundTrip(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewWSConnection(ws)
		defer conn.Close()
		p, err := conn.ReadPacket()
		if err != nil {
			return
		}
		conn.Send(p.MsgID, p.Data)
	}))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	conn := NewWSConnection(ws)
	defer conn.Close()

	require.NoError(t, conn.SendJSON(MsgTypeNavigate, map[string]interface{}{"route": "/tournaments", "reload": true}))
	p, err := conn.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "navigate", MsgName(p.MsgID))
	assert.JSONEq(t, `{"route":"/tournaments","reload":true}`, string(p.Data))
}
