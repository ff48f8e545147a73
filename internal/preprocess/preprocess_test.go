package preprocess

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aitrendspot/trendletter/internal/feed"
	"github.com/stretchr/testify/require"
)

func rec(thread int, text string, minute int) feed.PostRecord {
	return feed.PostRecord{
		ThreadID:  thread,
		Text:      text,
		Timestamp: time.Date(2025, 2, 19, 10, minute, 0, 0, time.UTC),
	}
}

func TestCombineThreadsFiltersNoise(t *testing.T) {
	records := []feed.PostRecord{
		rec(1, "short 15 chars.", 0),                 // 15 chars: dropped
		rec(2, "this one has 25 chars ok!", 0),       // kept
		rec(3, "first half of a thread,", 0),         // combined with below
		rec(3, "second half keeps it alive.", 1),
	}

	p := New(false)
	docs := p.CombineThreads(records)

	require.Len(t, docs, 2)
	require.Equal(t, "this one has 25 chars ok!", docs[0])
	require.Equal(t, "first half of a thread, second half keeps it alive.", docs[1])
}

func TestCombineThreadsJoinsInTimestampOrder(t *testing.T) {
	records := []feed.PostRecord{
		rec(1, "later part of the story.", 5),
		rec(1, "earlier part of the story,", 0),
	}

	p := New(false)
	docs := p.CombineThreads(records)
	require.Len(t, docs, 1)
	require.Equal(t, "earlier part of the story, later part of the story.", docs[0])
}

func TestCombineThreadsResolvesURLs(t *testing.T) {
	var target string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/short" {
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	target = srv.URL + "/full-destination-article"

	records := []feed.PostRecord{
		{
			ThreadID:      1,
			Text:          "worth reading this paper thread",
			MentionedURLs: []string{srv.URL + "/short"},
			Timestamp:     time.Date(2025, 2, 19, 10, 0, 0, 0, time.UTC),
		},
	}

	p := New(true)
	p.pause = 0
	docs := p.CombineThreads(records)

	require.Len(t, docs, 1)
	require.Equal(t, fmt.Sprintf("worth reading this paper thread %s", target), docs[0])
}

func TestResolveURLFallsBackOnError(t *testing.T) {
	p := New(true)
	p.pause = 0
	p.client.Timeout = 200 * time.Millisecond

	got := p.resolveURL("http://127.0.0.1:1/unreachable")
	require.Equal(t, "http://127.0.0.1:1/unreachable", got)
}
