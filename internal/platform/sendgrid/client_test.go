package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/outreach-backend/internal/platform/logger"
)

func TestSendBuildsMailSendPayload(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "team@example.org", DefaultFromName: "Team", TrackOpens: true, Timeout: time.Second})
	require.NoError(t, err)

	res, err := c.Send(context.Background(), SendEmailRequest{
		To:         []EmailAddress{{Email: "dean@school.edu", Name: "Dean"}},
		Subject:    " Hello ",
		HTML:       "<p>Hi</p>",
		CustomArgs: map[string]string{"draft_id": "d1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "msg-1", res.MessageID)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)

	assert.Equal(t, "team@example.org", got.From.Email)
	assert.Equal(t, "Hello", got.Subject)
	assert.Equal(t, []mailContent{{Type: "text/html", Value: "<p>Hi</p>"}}, got.Content)
	assert.Equal(t, "d1", got.CustomArgs["draft_id"])
	require.NotNil(t, got.TrackingSettings)
	assert.True(t, got.TrackingSettings.OpenTracking.Enable)
	assert.False(t, got.TrackingSettings.ClickTracking.Enable)
}

func TestSendValidatesRequest(t *testing.T) {
	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: "http://127.0.0.1:0"})
	require.NoError(t, err)

	_, err = c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "a@b.c"}}, Subject: "s", HTML: "x"})
	assert.ErrorContains(t, err, "From.Email")

	_, err = c.Send(context.Background(), SendEmailRequest{From: EmailAddress{Email: "f@b.c"}, Subject: "s", HTML: "x"})
	assert.ErrorContains(t, err, "To required")

	_, err = c.Send(context.Background(), SendEmailRequest{From: EmailAddress{Email: "f@b.c"}, To: []EmailAddress{{Email: "a@b.c"}}, Subject: "s"})
	assert.ErrorContains(t, err, "content required")
}

func TestSendSurfacesProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid to address"}]}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "f@b.c", MaxRetries: 2})
	require.NoError(t, err)
	_, err = c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "bad"}}, Subject: "s", HTML: "x"})
	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusBadRequest, he.HTTPStatusCode())
	assert.Contains(t, he.Error(), "invalid to address")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(logger.Nop(), Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
