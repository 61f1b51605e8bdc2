// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package lookup_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/unirex/guardia-monitor/internal/services/lookup"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestLookup_Breaches(t *testing.T) {
	var gotQuery, gotUA string
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, lookup.Path, r.URL.Path)
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"Name":"Adobe","BreachDate":"2013-10-04","DataClasses":["Email addresses","Passwords"]},
			{"Name":"Canva","BreachDate":"2019-05-24","IsSensitive":false,"DataClasses":["Names"]}
		]`))
	})

	client := lookup.NewClient(srv.URL+"/", lookup.WithUserAgent("guardia-test"))
	breaches, err := client.Lookup(context.Background(), "mario+test@example.it")

	require.NoError(t, err)
	require.Len(t, breaches, 2)
	assert.Equal(t, "Adobe", breaches[0].Name)
	assert.Equal(t, []string{"Names"}, breaches[1].DataClasses)
	assert.Equal(t, "email=mario%2Btest%40example.it", gotQuery)
	assert.Equal(t, "guardia-test", gotUA)
}

func TestLookup_NotFoundIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	breaches, err := lookup.NewClient(srv.URL).Lookup(context.Background(), "clean@example.it")

	require.NoError(t, err)
	assert.NotNil(t, breaches)
	assert.Empty(t, breaches)
}

func TestLookup_NullBodyIsEmpty(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("null"))
	})

	breaches, err := lookup.NewClient(srv.URL).Lookup(context.Background(), "a@b.com")

	require.NoError(t, err)
	assert.NotNil(t, breaches)
	assert.Empty(t, breaches)
}

func TestLookup_UnexpectedStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
			})

			_, err := lookup.NewClient(srv.URL).Lookup(context.Background(), "a@b.com")

			require.Error(t, err)
			assert.True(t, errors.Is(err, lookup.ErrUnexpectedStatus))
		})
	}
}

func TestLookup_MalformedBody(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	_, err := lookup.NewClient(srv.URL).Lookup(context.Background(), "a@b.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding lookup response")
}

func TestLookup_Timeout(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	client := lookup.NewClient(srv.URL, lookup.WithTimeout(50*time.Millisecond))
	_, err := client.Lookup(context.Background(), "a@b.com")

	require.Error(t, err)
	assert.False(t, errors.Is(err, lookup.ErrUnexpectedStatus))
}

func TestLookup_ContextCanceled(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lookup.NewClient(srv.URL).Lookup(ctx, "a@b.com")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
