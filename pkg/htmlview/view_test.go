package htmlview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"followscan/pkg/logger"
	"followscan/pkg/models"
	"followscan/pkg/upstream"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseItems(doc *goquery.Document) []models.BasicUserInfo {
	var out []models.BasicUserInfo
	doc.Find("li").Each(func(_ int, s *goquery.Selection) {
		out = append(out, models.BasicUserInfo{Username: s.Text()})
	})
	return out
}

func names(in []models.BasicUserInfo) []string {
	var out []string
	for _, u := range in {
		out = append(out, u.Username)
	}
	return out
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0600))
}

func TestDirSourceServesInOrderAndRepeatsLast(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "02.html", "<ul><li>b</li></ul>")
	writeFile(t, dir, "01.html", "<ul><li>a</li></ul>")
	writeFile(t, dir, "notes.txt", "ignored")

	src, err := NewDirSource(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Len())

	v := New(src, parseItems)
	ctx := context.Background()

	got, err := v.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(got))

	require.NoError(t, v.Advance(ctx))
	got, err = v.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got))

	require.NoError(t, v.Advance(ctx))
	got, err = v.Extract(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(got))
}

func TestDirSourceErrors(t *testing.T) {
	_, err := NewDirSource(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = NewDirSource(t.TempDir())
	assert.ErrorContains(t, err, "no html snapshots")
}

func TestURLSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<ul><li>" + r.URL.Query().Get("page") + "</li></ul>"))
	}))
	defer server.Close()

	client := upstream.NewClient("twitter", 5*time.Second, logger.NewNopLogger())
	v := New(NewURLSource(client, server.URL+"?page=one", server.URL+"?page=two"), parseItems)

	got, err := v.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, names(got))

	require.NoError(t, v.Advance(context.Background()))
	got, err = v.Extract(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, names(got))
}
