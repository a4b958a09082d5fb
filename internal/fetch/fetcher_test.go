// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanHTMLStripsBoilerplate(t *testing.T) {
	html := `<html><head><script>var x=1;</script><style>p{}</style></head>
	<body>
	  <nav>Home About</nav>
	  <div class="advert-banner">Buy now!</div>
	  <aside class="sidebar-left">Related</aside>
	  <p>Bitcoin   has been described
	  as digital gold.</p>
	  <iframe src="x"></iframe>
	  <noscript>enable js</noscript>
	  <footer>(c) 2026</footer>
	</body></html>`

	got := CleanHTML(html)
	assert.Equal(t, "Bitcoin has been described as digital gold.", got)
}

func TestCleanHTMLEmptyInput(t *testing.T) {
	assert.Equal(t, "", CleanHTML(""))
}

func TestFetchEntirePageSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		_, _ = w.Write([]byte("<body><p>hello page</p></body>"))
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	got := f.FetchEntirePage(context.Background(), "req-1", 3, srv.URL)
	assert.Equal(t, "hello page", got)
}

func TestFetchEntirePageGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		// Stop net/http from transparently decompressing for us.
		w.Header().Set("Content-Type", "text/html")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte("<body>compressed text</body>"))
		_ = gz.Close()
	}))
	defer srv.Close()

	f := NewFetcher(Options{})
	got := f.FetchEntirePage(context.Background(), "req-1", 0, srv.URL)
	assert.Equal(t, "compressed text", got)
}

func TestFetchEntirePageNonOKYieldsEmpty(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))
		f := NewFetcher(Options{})
		assert.Empty(t, f.FetchEntirePage(context.Background(), "req-1", 0, srv.URL), "status %d", status)
		srv.Close()
	}
}

func TestFetchEntirePageUnreachableYieldsEmpty(t *testing.T) {
	f := NewFetcher(Options{})
	assert.Empty(t, f.FetchEntirePage(context.Background(), "req-1", 0, "http://127.0.0.1:1/nope"))
}

type stubDriver struct {
	source    string
	err       error
	cookieErr error
	closed    atomic.Bool
}

func (d *stubDriver) PageSource(context.Context, string) (string, error) { return d.source, d.err }

func (d *stubDriver) ClearCookies() error { return d.cookieErr }

func (d *stubDriver) Close() error {
	d.closed.Store(true)
	return nil
}

func TestForbiddenFallsBackToBrowser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	pool := NewDriverPool(1, func() (Driver, error) {
		return &stubDriver{source: "<body>rendered by browser</body>"}, nil
	})
	f := NewFetcher(Options{Browsers: pool})

	got := f.FetchEntirePage(context.Background(), "req-1", 0, srv.URL)
	assert.Equal(t, "rendered by browser", got)
	assert.Equal(t, 1, pool.Size(), "driver returned to pool")
}

func TestDriverDiscardedOnError(t *testing.T) {
	bad := &stubDriver{err: assert.AnError}
	pool := NewDriverPool(1, func() (Driver, error) { return bad, nil })

	_, err := pool.Fetch(context.Background(), "https://example.com")
	require.Error(t, err)
	assert.True(t, bad.closed.Load())
	assert.Equal(t, 0, pool.Size())

	_, err = pool.Fetch(context.Background(), "https://example.com")
	require.ErrorIs(t, err, ErrNoDriver)
}

func TestHTMLParserAPIPreferred(t *testing.T) {
	parser := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/parse", r.URL.Path)
		_, _ = w.Write([]byte("parsed text"))
	}))
	defer parser.Close()

	f := NewFetcher(Options{HTMLParserAPIURL: parser.URL, UseHTMLParserAPI: true})
	got := f.FetchEntirePage(context.Background(), "req-1", 0, "https://unreachable.example/page")
	assert.Equal(t, "parsed text", got)
}

func TestFetchConcurrencyBounded(t *testing.T) {
	const width = 2

	var mu sync.Mutex
	inflight, peak := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()

		time.Sleep(30 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()
		_, _ = w.Write([]byte("<body>ok</body>"))
	}))
	defer srv.Close()

	f := NewFetcher(Options{Concurrency: width})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.FetchEntirePage(context.Background(), "req-1", 0, srv.URL)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, width, "in-flight fetches must never exceed the semaphore width")
}
