package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/fabricflow/fabricflow/testing"
)

func TestRenderHTMLPostsDocument(t *testing.T) {
	var gotHTML, gotWidth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forms/chromium/convert/html", r.URL.Path)
		file, _, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotHTML = string(data)
		gotWidth = r.FormValue("paperWidth")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	pdf, err := NewClient(srv.URL + "/").RenderHTML(context.Background(), "<h1>DSP-2026-00001</h1>")
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7", string(pdf))
	require.Equal(t, "<h1>DSP-2026-00001</h1>", gotHTML)
	require.Equal(t, "8.27", gotWidth)
}

func TestRenderHTMLSurfacesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chromium crashed", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).RenderHTML(context.Background(), "<p>x</p>")
	require.ErrorContains(t, err, "503")
	require.ErrorContains(t, err, "chromium crashed")
}

func TestDisabledClient(t *testing.T) {
	c := NewClient("")
	require.False(t, c.Enabled())
	_, err := c.RenderHTML(context.Background(), "<p>x</p>")
	require.ErrorIs(t, err, ErrDisabled)
	require.ErrorIs(t, c.Ping(context.Background()), ErrDisabled)
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	require.NoError(t, NewClient(srv.URL).Ping(context.Background()))
}
