package xfb

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient("", nil)
	require.ErrorIs(t, err, ErrConfiguration)

	_, err = NewClient("not a url", nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestPost_AttachesSessionCookie(t *testing.T) {
	var gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("shiroJID"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(`{"statusCode":0,"data":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Post[string](context.Background(), c, "/card/getCardMoney", map[string]string{"ymId": "m1"}, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", gotCookie)
}

func TestPost_NoCookieForUnauthenticatedCall(t *testing.T) {
	var sawCookie bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := r.Cookie("shiroJID")
		sawCookie = err == nil
		w.Write([]byte(`{"statusCode":0,"data":"ok"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Post[string](context.Background(), c, "/user/defaultLogin", nil, "")
	require.NoError(t, err)
	assert.False(t, sawCookie)
}

func TestPost_NilBodyIsJSONNull(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"statusCode":0,"data":"code"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Post[string](context.Background(), c, "/card/getQRCode", nil, "tok")
	require.NoError(t, err)
	assert.Equal(t, "null", gotBody)
}

func TestPost_MarshalsBody(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"statusCode":0}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Post[string](context.Background(), c, "/x", map[string]string{"qrCode": "abc", "platform": "WECHAT_H5"}, "tok")
	require.NoError(t, err)
	assert.Equal(t, "abc", got["qrCode"])
	assert.Equal(t, "WECHAT_H5", got["platform"])
}

func TestClient_HTTPStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Get[string](context.Background(), c, "/x", "")
	var httpErr *HTTPStatusError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.Code)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Get[string](context.Background(), c, "/x", "")
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}

func TestClient_SemanticFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"statusCode":403,"message":"denied"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = Post[string](context.Background(), c, "/x", nil, "tok")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Code)
	assert.Equal(t, "denied", apiErr.Message)
}

func TestPostPaged_DecodesRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"statusCode":0,"total":1,"rows":[{"serialno":"7"}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	type row struct {
		SerialNo string `json:"serialno"`
	}
	env, err := PostPaged[row](context.Background(), c, "/feed", nil, "tok")
	require.NoError(t, err)
	require.Len(t, env.Rows, 1)
	assert.Equal(t, "7", env.Rows[0].SerialNo)
}
