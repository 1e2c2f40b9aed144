package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMailerWithoutKeyIsNoop(t *testing.T) {
	m := NewMailer("  ", "noreply@example.com", time.Second)
	assert.Nil(t, m)
	assert.NoError(t, m.SendEnrollmentEmail(context.Background(), "a@example.com", "A", "Go", ""))
}

func TestSendEnrollmentEmail(t *testing.T) {
	var got sendgridMail
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := newMailerWithBaseURL(srv.URL, "sg-key", "noreply@example.com", time.Second)
	require.NoError(t, m.SendEnrollmentEmail(context.Background(), "sam@example.com", "Sam", "Go Basics", "Morning"))

	assert.Equal(t, "Bearer sg-key", auth)
	require.Len(t, got.Personalizations, 1)
	assert.Equal(t, "sam@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "noreply@example.com", got.From.Email)
	require.Len(t, got.Content, 1)
	assert.Contains(t, got.Content[0].Value, "Go Basics")
	assert.Contains(t, got.Content[0].Value, "Morning")
}

func TestSendEmailRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := newMailerWithBaseURL(srv.URL, "sg-key", "noreply@example.com", time.Second)
	err := m.SendEmail(context.Background(), "sam@example.com", "Sam", "hi", "<p>hi</p>")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	assert.Error(t, m.SendEmail(context.Background(), "", "", "hi", "<p>hi</p>"))
}
