package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSummary(t *testing.T) {
	t.Parallel()

	var path, chatID, text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		path, chatID, text = r.URL.Path, r.PostForm.Get("chat_id"), r.PostForm.Get("text")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier("token", "42").WithAPIBase(srv.URL)
	require.NoError(t, n.PublishSummary(context.Background(), "Beer sync finished"))

	assert.Equal(t, "/bottoken/sendMessage", path)
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "Beer sync finished", text)
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewNotifier("token", "42").WithAPIBase(srv.URL).PublishSummary(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	assert.Error(t, NewNotifier("", "42").PublishSummary(context.Background(), "x"))
}
