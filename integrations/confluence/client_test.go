package confluence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/docuflow/docuflow/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:  srv.URL,
		Email:    "docs@example.com",
		APIToken: "token",
	}, zap.NewNop())
}

func TestGetPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/content/12345", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "body.storage", r.URL.Query().Get("expand"))

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "12345",
			"type":  "page",
			"title": "Deployment Guide",
			"body": map[string]any{
				"storage": map[string]any{"value": "<p>Deploy with care.</p>"},
			},
			"_links": map[string]any{"webui": "/spaces/DOC/pages/12345"},
		})
	})

	client := newTestClient(t, mux)

	page, err := client.GetPage(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "Deployment Guide", page.Title)
	assert.Equal(t, "<p>Deploy with care.</p>", page.Body.Storage.Value)
	assert.Contains(t, page.URL("https://example.com/wiki"), "/spaces/DOC/pages/12345")
}

func TestGetPage_Forbidden(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/content/777", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := newTestClient(t, mux)

	_, err := client.GetPage(context.Background(), "777")
	require.Error(t, err)
	assert.Equal(t, types.ErrForbidden, types.GetErrorCode(err))
}

func TestGetPages_SkipsFailures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/content/1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "1", "title": "First"})
	})
	mux.HandleFunc("GET /rest/api/content/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client := newTestClient(t, mux)

	pages, err := client.GetPages(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "First", pages[0].Title)
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/api/content/search", func(w http.ResponseWriter, r *http.Request) {
		cql := r.URL.Query().Get("cql")
		assert.Contains(t, cql, `text~"deployment"`)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"id": "9", "title": "Deployment Guide"},
			},
		})
	})

	client := newTestClient(t, mux)

	pages, err := client.Search(context.Background(), "deployment", 5)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Deployment Guide", pages[0].Title)
}
