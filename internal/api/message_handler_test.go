package api

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go-pinboard/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoutes_RequireAuth(t *testing.T) {
	s := newTestServer(t, 0)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/messages/dialogs"},
		{http.MethodGet, "/api/messages/with/1"},
		{http.MethodPost, "/api/messages"},
		{http.MethodPost, "/api/messages/with-attachment"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMessageFlow(t *testing.T) {
	s := newTestServer(t, 0)
	aliceID, aliceToken := s.register(t, "alice")
	bobID, bobToken := s.register(t, "bob")

	w := s.do(t, http.MethodGet, "/api/messages/dialogs", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/messages", aliceToken, obj{"recipientId": bobID, "content": "hi bob"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sent := decode[service.MessageDTO](t, w)
	assert.Equal(t, aliceID, sent.SenderID)
	assert.Equal(t, bobID, sent.RecipientID)
	assert.Equal(t, "hi bob", *sent.Content)
	assert.False(t, sent.IsRead)

	w = s.do(t, http.MethodGet, "/api/messages/dialogs", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dialogs := decode[[]service.ConversationPreview](t, w)
	require.Len(t, dialogs, 1)
	assert.Equal(t, aliceID, dialogs[0].UserID)
	assert.Equal(t, "alice", dialogs[0].Username)
	assert.Equal(t, "hi bob", *dialogs[0].LastMessage)
	assert.Equal(t, int64(1), dialogs[0].UnreadCount)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/messages/with/%d", aliceID), bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	conv := decode[[]service.MessageDTO](t, w)
	require.Len(t, conv, 1)
	assert.Equal(t, sent.ID, conv[0].ID)
	assert.False(t, conv[0].IsRead, "response shows the state before marking")
	assert.True(t, sent.CreatedAt.Equal(conv[0].CreatedAt))

	w = s.do(t, http.MethodGet, "/api/messages/dialogs", bobToken, nil)
	dialogs = decode[[]service.ConversationPreview](t, w)
	require.Len(t, dialogs, 1)
	assert.Equal(t, int64(0), dialogs[0].UnreadCount)

	// JSON 字段名
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/messages/with/%d", bobID), aliceToken, nil)
	body := w.Body.String()
	for _, field := range []string{`"senderId"`, `"recipientId"`, `"createdAt"`, `"isRead":true`, `"attachmentUrl":null`, `"attachmentType":null`} {
		assert.Contains(t, body, field)
	}
}

func TestOpenConversation_Errors(t *testing.T) {
	s := newTestServer(t, 0)
	userID, token := s.register(t, "solo")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantMsg    string
	}{
		{name: "Self", path: fmt.Sprintf("/api/messages/with/%d", userID), wantStatus: http.StatusBadRequest, wantMsg: "cannot create conversation with yourself"},
		{name: "Unknown user", path: "/api/messages/with/9999", wantStatus: http.StatusNotFound, wantMsg: "user not found"},
		{name: "Invalid id", path: "/api/messages/with/abc", wantStatus: http.StatusBadRequest, wantMsg: "invalid userId parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodGet, tt.path, token, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, w))
		})
	}
}

func TestSendMessage_Errors(t *testing.T) {
	s := newTestServer(t, 0)
	senderID, token := s.register(t, "sender")
	recipientID, _ := s.register(t, "recipient")

	tests := []struct {
		name       string
		body       obj
		wantStatus int
		wantMsg    string
	}{
		{name: "To yourself", body: obj{"recipientId": senderID, "content": "x"}, wantStatus: http.StatusBadRequest, wantMsg: "cannot send message to yourself"},
		{name: "Unknown recipient", body: obj{"recipientId": 9999, "content": "x"}, wantStatus: http.StatusNotFound, wantMsg: "user not found"},
		{name: "Zero recipient", body: obj{"recipientId": 0, "content": "hi"}, wantStatus: http.StatusNotFound, wantMsg: "user not found"},
		{name: "Missing recipient", body: obj{"content": "hi"}, wantStatus: http.StatusNotFound, wantMsg: "user not found"},
		{name: "Wrong recipient type", body: obj{"recipientId": "bob", "content": "hi"}, wantStatus: http.StatusBadRequest, wantMsg: "invalid request body"},
		{name: "Blank content", body: obj{"recipientId": recipientID, "content": "   "}, wantStatus: http.StatusBadRequest, wantMsg: "message content is required"},
		{name: "Too long", body: obj{"recipientId": recipientID, "content": strings.Repeat("a", 2001)}, wantStatus: http.StatusBadRequest, wantMsg: "message content cannot exceed 2000 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/messages", token, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, w))
		})
	}

	t.Run("Malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", errorMessage(t, w))
	})
}

func TestSendMessageWithAttachment(t *testing.T) {
	s := newTestServer(t, 0)
	_, token := s.register(t, "artist")
	recipientID, _ := s.register(t, "collector")

	w := s.upload(t, token,
		map[string]string{"recipientId": fmt.Sprint(recipientID), "content": "new piece"},
		&uploadFile{name: "piece.png", contentType: "image/png", data: []byte("fake png")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg := decode[service.MessageDTO](t, w)
	assert.Equal(t, "new piece", *msg.Content)
	require.NotNil(t, msg.AttachmentType)
	assert.Equal(t, "image", *msg.AttachmentType)
	require.NotNil(t, msg.AttachmentURL)
	assert.True(t, strings.HasPrefix(*msg.AttachmentURL, "/uploads/messages/"))
	assert.True(t, strings.HasSuffix(*msg.AttachmentURL, ".png"))

	// 本地存储的附件可以通过静态路由访问
	w = s.do(t, http.MethodGet, *msg.AttachmentURL, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fake png", w.Body.String())

	// 只有文件
	w = s.upload(t, token,
		map[string]string{"recipientId": fmt.Sprint(recipientID)},
		&uploadFile{name: "clip.mp4", contentType: "video/mp4", data: []byte("fake mp4")},
	)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg = decode[service.MessageDTO](t, w)
	assert.Nil(t, msg.Content)
	assert.Equal(t, "video", *msg.AttachmentType)

	// 只有文本
	w = s.upload(t, token, map[string]string{"recipientId": fmt.Sprint(recipientID), "content": "just text"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	msg = decode[service.MessageDTO](t, w)
	assert.Nil(t, msg.AttachmentURL)
}

func TestSendMessageWithAttachment_Errors(t *testing.T) {
	s := newTestServer(t, 1024)
	_, token := s.register(t, "sender2")
	recipientID, _ := s.register(t, "recipient2")
	rid := fmt.Sprint(recipientID)

	tests := []struct {
		name       string
		fields     map[string]string
		file       *uploadFile
		wantStatus int
	}{
		{name: "Nothing to send", fields: map[string]string{"recipientId": rid}, wantStatus: http.StatusBadRequest},
		{name: "Missing recipient", fields: map[string]string{"content": "hi"}, wantStatus: http.StatusNotFound},
		{name: "Zero recipient", fields: map[string]string{"recipientId": "0", "content": "hi"}, wantStatus: http.StatusNotFound},
		{name: "Wrong recipient type", fields: map[string]string{"recipientId": "abc", "content": "hi"}, wantStatus: http.StatusBadRequest},
		{name: "Unknown recipient", fields: map[string]string{"recipientId": "9999", "content": "hi"}, wantStatus: http.StatusNotFound},
		{
			name:       "Unsupported type",
			fields:     map[string]string{"recipientId": rid},
			file:       &uploadFile{name: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF")},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Body too large",
			fields:     map[string]string{"recipientId": rid},
			file:       &uploadFile{name: "big.png", contentType: "image/png", data: bytes.Repeat([]byte("x"), 4096)},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.upload(t, token, tt.fields, tt.file)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			assert.NotEmpty(t, errorMessage(t, w))
		})
	}
}

type obj = map[string]any
