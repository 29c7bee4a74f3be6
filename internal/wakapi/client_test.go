package wakapi_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/wakalyze/internal/wakapi"
)

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var feb27 = time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)

func TestFetchHeartbeatsRequest(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := serve(t, http.StatusOK, `{"data":[{"time":1000.5,"project":"foo"}]}`, func(r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("date")
		gotAuth = r.Header.Get("Authorization")
	})

	c := wakapi.NewAPIKeyClient(srv.URL+"/", "alice", "secret-key", 5*time.Second)
	hbs, err := c.FetchHeartbeats(context.Background(), feb27)
	require.NoError(t, err)

	assert.Equal(t, "/api/compat/wakatime/v1/users/alice/heartbeats", gotPath)
	assert.Equal(t, "2026-02-27", gotQuery)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("secret-key")), gotAuth)

	require.Len(t, hbs, 1)
	require.NotNil(t, hbs[0].Time)
	assert.Equal(t, 1000.5, *hbs[0].Time)
	require.NotNil(t, hbs[0].Project)
	assert.Equal(t, "foo", *hbs[0].Project)
}

func TestFetchHeartbeatsHTTPError(t *testing.T) {
	srv := serve(t, http.StatusInternalServerError, "boom", nil)
	c := wakapi.NewAPIKeyClient(srv.URL, "alice", "k", 5*time.Second)

	_, err := c.FetchHeartbeats(context.Background(), feb27)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}

func TestFetchHeartbeatsCancelled(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"data":[]}`, nil)
	c := wakapi.NewAPIKeyClient(srv.URL, "alice", "k", 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchHeartbeats(ctx, feb27)
	assert.Error(t, err)
}

func TestParseHeartbeats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing data", `{}`, 0},
		{"null data", `{"data":null}`, 0},
		{"empty data", `{"data":[]}`, 0},
		{"two records", `{"data":[{"time":1},{"time":2}]}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hbs, err := wakapi.ParseHeartbeats([]byte(tt.body))
			require.NoError(t, err)
			assert.NotNil(t, hbs)
			assert.Len(t, hbs, tt.want)
		})
	}
}

func TestParseHeartbeatsInvalid(t *testing.T) {
	for _, body := range []string{`{"data":{"time":1}}`, `{"data":"x"}`, `not json`, ``} {
		_, err := wakapi.ParseHeartbeats([]byte(body))
		assert.Truef(t, errors.Is(err, wakapi.ErrInvalidResponse), "body %q: err = %v", body, err)
	}
}

func TestParseHeartbeatsLenientFields(t *testing.T) {
	body := `{"data":[
		{"time":"1200.25","project":42},
		{"time":"soon","project":"bar"},
		{"time":true,"project":null},
		{"project":"only"},
		"garbage",
		{"time":1300,"project":" "}
	]}`
	hbs, err := wakapi.ParseHeartbeats([]byte(body))
	require.NoError(t, err)
	require.Len(t, hbs, 6)

	require.NotNil(t, hbs[0].Time)
	assert.Equal(t, 1200.25, *hbs[0].Time)
	assert.Nil(t, hbs[0].Project)

	assert.Nil(t, hbs[1].Time)
	require.NotNil(t, hbs[1].Project)
	assert.Equal(t, "bar", *hbs[1].Project)

	assert.Nil(t, hbs[2].Time)
	assert.Nil(t, hbs[2].Project)
	assert.Nil(t, hbs[3].Time)
	assert.Nil(t, hbs[4].Time)
	assert.Nil(t, hbs[4].Project)

	require.NotNil(t, hbs[5].Project)
	assert.Equal(t, " ", *hbs[5].Project)
}

func TestBasicToken(t *testing.T) {
	tok := wakapi.BasicToken("abc")
	assert.Equal(t, "Basic", tok.Type())
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("abc")), tok.AccessToken)
	assert.True(t, tok.Valid())
}

func TestClientServer(t *testing.T) {
	c := wakapi.NewAPIKeyClient("https://wakapi.example.com:8443/", "bob", "k", time.Second)
	assert.Equal(t, "wakapi.example.com:8443", c.Server())
	assert.Equal(t, "bob", c.User())

	a := wakapi.NewAPIKeyClient("https://h.example/a/", "bob", "k", time.Second)
	b := wakapi.NewAPIKeyClient("https://h.example/b", "bob", "k", time.Second)
	assert.Equal(t, "h.example/a", a.Server())
	assert.Equal(t, "h.example/b", b.Server())
}
