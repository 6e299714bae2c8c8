package gateway

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/h0rv/reqboard/internal/domain"
	"github.com/h0rv/reqboard/internal/gateway/gatewaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured holds what the echo server saw for the last request.
type captured struct {
	mu          sync.Mutex
	method      string
	path        string
	body        string
	contentType string
}

func newEchoServer(t *testing.T, code int, response string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got.mu.Lock()
		defer got.mu.Unlock()
		got.method = r.Method
		got.path = r.URL.EscapedPath()
		got.body = string(b)
		got.contentType = r.Header.Get("Content-Type")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrEmptyURL)

	_, err = New("localhost:5000")
	assert.Error(t, err)
}

func TestNew_HTTPClientOptions(t *testing.T) {
	_, err := New("http://localhost:5000", WithHTTPClient(nil))
	assert.ErrorIs(t, err, ErrNilHTTPClient)

	// The timeout survives a later client replacement
	hc := &http.Client{}
	c, err := New("http://localhost:5000", WithTimeout(5*time.Second), WithHTTPClient(hc))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, c.HTTPClient().Timeout)

	// The caller's client is copied, not modified
	assert.NotSame(t, hc, c.HTTPClient())
	assert.Nil(t, hc.Jar)
	assert.Zero(t, hc.Timeout)
	assert.NotNil(t, c.HTTPClient().Jar)

	// An existing jar is shared so a prior login carries over
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	c, err = New("http://localhost:5000", WithHTTPClient(&http.Client{Jar: jar}), WithTimeout(time.Second))
	require.NoError(t, err)
	assert.Same(t, jar, c.HTTPClient().Jar)
	assert.Equal(t, time.Second, c.HTTPClient().Timeout)
}

func TestCall_PostSendsJSONBody(t *testing.T) {
	srv, got := newEchoServer(t, http.StatusOK, `{"ok":true}`)
	c, err := New(srv.URL)
	require.NoError(t, err)

	raw, err := c.Call(context.Background(), "/api/x", "post", map[string]string{"status": "done"})
	require.NoError(t, err)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/x", got.path)
	assert.JSONEq(t, `{"status":"done"}`, got.body)
	assert.Equal(t, "application/json", got.contentType)
	assert.JSONEq(t, `{"ok":true}`, string(raw))
}

func TestCall_BodyPolicyByMethod(t *testing.T) {
	tests := []struct {
		method   string
		wantBody bool
	}{
		{http.MethodGet, false},
		{http.MethodPost, true},
		{http.MethodPut, true},
		{http.MethodPatch, false},
		{http.MethodDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			srv, got := newEchoServer(t, http.StatusOK, `{}`)
			c, err := New(srv.URL)
			require.NoError(t, err)

			_, err = c.Call(context.Background(), "/api/x", tt.method, map[string]int{"n": 1})
			require.NoError(t, err)

			got.mu.Lock()
			defer got.mu.Unlock()
			assert.Equal(t, tt.method, got.method)
			if tt.wantBody {
				assert.JSONEq(t, `{"n":1}`, got.body)
			} else {
				assert.Empty(t, got.body)
			}
		})
	}
}

func TestCall_Failures(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv, _ := newEchoServer(t, http.StatusInternalServerError, `{"success":false}`)
		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "/api/x", http.MethodGet, nil)
		require.ErrorIs(t, err, ErrStatus)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	})

	t.Run("non-json body", func(t *testing.T) {
		srv, _ := newEchoServer(t, http.StatusOK, `<html>login</html>`)
		c, err := New(srv.URL)
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "/api/x", http.MethodGet, nil)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("transport failure", func(t *testing.T) {
		srv, _ := newEchoServer(t, http.StatusOK, `{}`)
		c, err := New(srv.URL)
		require.NoError(t, err)
		srv.Close()

		_, err = c.Call(context.Background(), "/api/x", http.MethodGet, nil)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrStatus)
	})

	t.Run("unsupported method", func(t *testing.T) {
		c, err := New("http://example.invalid")
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "/api/x", "BREW", nil)
		assert.ErrorIs(t, err, ErrMethod)
	})

	t.Run("empty url", func(t *testing.T) {
		c, err := New("http://example.invalid")
		require.NoError(t, err)

		_, err = c.Call(context.Background(), "", http.MethodGet, nil)
		assert.ErrorIs(t, err, ErrEmptyURL)
	})
}

func TestResolve(t *testing.T) {
	c, err := New("http://localhost:5000/")
	require.NoError(t, err)

	u, err := c.Resolve("/api/requirements/1")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api/requirements/1", u)

	u, err = c.Resolve("http://other:1/x")
	require.NoError(t, err)
	assert.Equal(t, "http://other:1/x", u)
}

func TestUpdateStatus_SendsOneRequest(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddRequirement("1", domain.Requirement{ID: "42", Title: "Export", Status: domain.StatusCollected})

	c, err := New(srv.URL)
	require.NoError(t, err)

	result, err := c.UpdateStatus(context.Background(), domain.TransitionRequest{CardID: "42", TargetStatus: "done"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/requirements/42/update", calls[0].Path)
	assert.JSONEq(t, `{"status":"done"}`, string(calls[0].Body))

	stored, ok := srv.Requirement("42")
	require.True(t, ok)
	assert.Equal(t, domain.Status("done"), stored.Status)
}

func TestUpdateStatus_Results(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		wantSuccess bool
		wantErr     error
	}{
		{name: "accepted", code: 200, body: `{"success":true}`, wantSuccess: true},
		{name: "rejected", code: 200, body: `{"success":false,"error":"locked"}`},
		{name: "missing field", code: 200, body: `{"id":42}`},
		{name: "non-boolean field", code: 200, body: `{"success":"yes"}`},
		{name: "truthy number", code: 200, body: `{"success":1}`},
		{name: "string true", code: 200, body: `{"success":"true"}`},
		{name: "null field", code: 200, body: `{"success":null}`},
		{name: "not an object", code: 200, body: `[true]`, wantErr: ErrDecode},
		{name: "null body", code: 200, body: `null`, wantErr: ErrDecode},
		{name: "server error", code: 500, body: `{"success":true}`, wantErr: ErrStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := gatewaytest.NewServer()
			defer srv.Close()
			srv.RespondUpdate(tt.code, tt.body)

			c, err := New(srv.URL)
			require.NoError(t, err)

			result, err := c.UpdateStatus(context.Background(), domain.TransitionRequest{CardID: "7", TargetStatus: domain.StatusConfirmed})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, result.Success)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSuccess, result.Success)
		})
	}
}

func TestUpdateStatus_EmptyCardIDIsNotSent(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.UpdateStatus(context.Background(), domain.TransitionRequest{CardID: "", TargetStatus: domain.StatusConfirmed})
	assert.ErrorIs(t, err, domain.ErrEmptyCardID)
	assert.Empty(t, srv.Calls())
}

func TestUpdatePath_EscapesID(t *testing.T) {
	assert.Equal(t, "/api/requirements/42/update", UpdatePath("42"))
	assert.Equal(t, "/api/requirements/a%2Fb/update", UpdatePath("a/b"))
}

func TestListRequirements(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddRequirement("3", domain.Requirement{ID: "1", Title: "Login", Status: domain.StatusCollected, Priority: "high"})
	srv.AddRequirement("3", domain.Requirement{ID: "2", Title: "Export", Status: domain.StatusConfirmed})
	srv.AddRequirement("4", domain.Requirement{ID: "9", Title: "Other project"})

	c, err := New(srv.URL)
	require.NoError(t, err)

	reqs, err := c.ListRequirements(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "1", reqs[0].ID)
	assert.Equal(t, "Login", reqs[0].Title)
	assert.Equal(t, "high", reqs[0].Priority)
	assert.Equal(t, domain.StatusConfirmed, reqs[1].Status)

	_, err = c.ListRequirements(context.Background(), "")
	assert.Error(t, err)
}

func TestListRequirements_RequiresSession(t *testing.T) {
	srv := gatewaytest.NewServer()
	defer srv.Close()
	srv.AddUser("alice", "secret")

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.ListRequirements(context.Background(), "1")
	assert.ErrorIs(t, err, ErrStatus)
}

func TestKanbanPageURL(t *testing.T) {
	c, err := New("http://localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/project/3/kanban", c.KanbanPageURL("3"))
}
