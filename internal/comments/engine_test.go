// SPDX-License-Identifier: MIT

package comments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/semaphore"

	"github.com/ManuGH/tubetext/internal/cache"
	"github.com/ManuGH/tubetext/internal/inflight"
	"github.com/ManuGH/tubetext/internal/store"
	"github.com/ManuGH/tubetext/internal/youtube"
	"github.com/ManuGH/tubetext/internal/ytdlp"
)

const testVideoID = "dQw4w9WgXcQ"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeCommentsAPI serves the watch-next endpoint. The initial call (videoId
// set) answers with the menu body; continuation calls are answered from the
// pages map.
type fakeCommentsAPI struct {
	mu        sync.Mutex
	nextCalls int
	delay     time.Duration
	status    int

	menu  string
	pages map[string]string
}

func (f *fakeCommentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/next" {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	f.nextCalls++
	delay, status := f.delay, f.status
	menu, pages := f.menu, f.pages
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}

	var req struct {
		VideoID      string `json:"videoId"`
		Continuation string `json:"continuation"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	w.Header().Set("Content-Type", "application/json")
	if req.Continuation != "" {
		_, _ = io.WriteString(w, pages[req.Continuation])
		return
	}
	_, _ = io.WriteString(w, menu)
}

func (f *fakeCommentsAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextCalls
}

const menuWithTop = `{"contents":{"sortFilterSubMenuRenderer":{"subMenuItems":[` +
	`{"title":"Top comments","serviceEndpoint":{"continuationCommand":{"token":"top"}}}]}}}`

const menuNoComments = `{"contents":{}}`

// commentsPage renders one continuation response carrying the given comment
// texts and, when next is non-empty, a token for the following page.
func commentsPage(next string, texts ...string) string {
	items := make([]string, 0, len(texts)+1)
	for _, t := range texts {
		items = append(items, `{"commentRenderer":{"contentText":{"simpleText":"`+t+`"}}}`)
	}
	if next != "" {
		items = append(items, `{"continuationItemRenderer":{"continuationEndpoint":{"continuationCommand":{"token":"`+next+`"}}}}`)
	}
	return `{"onResponseReceivedEndpoints":[{"appendContinuationItemsAction":{"continuationItems":[` +
		strings.Join(items, ",") + `]}}]}`
}

// commentsExecutor fakes yt-dlp metadata runs with a canned stdout dump.
type commentsExecutor struct {
	mu   sync.Mutex
	out  []byte
	err  error
	runs int
}

func (s *commentsExecutor) Execute(context.Context, string, ...string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	if s.out == nil {
		return []byte(`{"id":"` + testVideoID + `","comments":[]}`), nil
	}
	return s.out, nil
}

func (s *commentsExecutor) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// rerouteTransport sends every request to host, standing in for a gateway
// egress that reaches the upstream over a separate network path.
type rerouteTransport struct {
	host string
	base http.RoundTripper
}

func (rt rerouteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.URL.Host = rt.host
	return rt.base.RoundTrip(r)
}

func newTestEngine(t *testing.T, api *fakeCommentsAPI, exec *commentsExecutor, wait time.Duration, limit, maxFetch int) *Engine {
	t.Helper()
	if exec == nil {
		exec = &commentsExecutor{}
	}
	if wait == 0 {
		wait = time.Second
	}

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	logger := zerolog.Nop()
	yt := youtube.NewClient(
		youtube.WithHTTPClient(srv.Client()),
		youtube.WithEndpoints(srv.URL, srv.URL+"/api/timedtext"),
	)
	return NewEngine(Config{
		Cache:    store.NewTwoTier(cache.NewMemoryCache(64, 0), nil, time.Minute, time.Minute, logger),
		Flights:  inflight.New(context.Background(), wait, 30*time.Second, logger),
		Workers:  semaphore.NewWeighted(2),
		YouTube:  yt,
		Ytdlp:    ytdlp.NewClient("yt-dlp", ytdlp.WithExecutor(exec)),
		Limit:    limit,
		MaxFetch: maxFetch,
		Logger:   logger,
	})
}

func TestGetWalksCachesAndTruncates(t *testing.T) {
	api := &fakeCommentsAPI{
		menu:  menuWithTop,
		pages: map[string]string{"top": commentsPage("", "first", "second", "third")},
	}
	exec := &commentsExecutor{}
	eng := newTestEngine(t, api, exec, 0, 2, 5)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, res.Comments)
	assert.Empty(t, res.Warning)
	assert.Equal(t, "miss", res.Cache)

	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, again.Comments)
	assert.Equal(t, "memory", again.Cache)

	assert.Equal(t, 2, api.calls(), "menu and one page, once")
	assert.Equal(t, 0, exec.count(), "walker success must not reach yt-dlp")
}

func TestMultiPageWalkStopsAtMaxFetch(t *testing.T) {
	api := &fakeCommentsAPI{
		menu: menuWithTop,
		pages: map[string]string{
			"top":   commentsPage("page2", "one", "two"),
			"page2": commentsPage("page3", "three", "four"),
		},
	}
	eng := newTestEngine(t, api, nil, 0, 10, 3)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, res.Comments)
	assert.Equal(t, 3, api.calls(), "menu plus two pages, third page never requested")
}

func TestProxiedWalkerServesWhenDirectComesUpEmpty(t *testing.T) {
	direct := &fakeCommentsAPI{menu: menuNoComments}
	gateway := &fakeCommentsAPI{
		menu: menuWithTop,
		pages: map[string]string{"top": commentsPage("",
			"one", "two", "three", "four", "five", "six", "seven")},
	}

	srv := httptest.NewServer(direct)
	t.Cleanup(srv.Close)
	gwSrv := httptest.NewServer(gateway)
	t.Cleanup(gwSrv.Close)

	exec := &commentsExecutor{}
	logger := zerolog.Nop()
	eng := NewEngine(Config{
		Cache:   store.NewTwoTier(cache.NewMemoryCache(64, 0), nil, time.Minute, time.Minute, logger),
		Flights: inflight.New(context.Background(), time.Second, 30*time.Second, logger),
		Workers: semaphore.NewWeighted(2),
		YouTube: youtube.NewClient(
			youtube.WithHTTPClient(srv.Client()),
			youtube.WithEndpoints(srv.URL, srv.URL+"/api/timedtext"),
		),
		Ytdlp: ytdlp.NewClient("yt-dlp", ytdlp.WithExecutor(exec)),
		Gateway: &http.Client{Transport: rerouteTransport{
			host: gwSrv.Listener.Addr().String(),
			base: &http.Transport{DisableKeepAlives: true},
		}},
		Limit:    20,
		MaxFetch: 20,
		Logger:   logger,
	})

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three", "four", "five", "six", "seven"}, res.Comments)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1, direct.calls(), "direct walker saw only the empty menu")
	assert.Equal(t, 2, gateway.calls(), "proxied walker fetched menu and one page")
	assert.Equal(t, 0, exec.count(), "the chain must stop at the proxied walker")

	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, res.Comments, again.Comments)
	assert.Equal(t, "memory", again.Cache)
	assert.Equal(t, 2, gateway.calls())
}

func TestYtdlpServesWhenWalkerComesUpEmpty(t *testing.T) {
	api := &fakeCommentsAPI{menu: menuNoComments}
	exec := &commentsExecutor{out: []byte(`{"id":"` + testVideoID + `","comments":[` +
		`{"id":"a","parent":"root","text":"from ytdlp"},` +
		`{"id":"a.b","parent":"a","text":"reply skipped"},` +
		`{"id":"c","parent":"","text":"second"}]}`)}
	eng := newTestEngine(t, api, exec, 0, 20, 20)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"from ytdlp", "second"}, res.Comments)
	assert.Empty(t, res.Warning)
	assert.Equal(t, 1, exec.count())

	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, "memory", again.Cache)
	assert.Equal(t, 1, exec.count())
}

func TestBlockedUpstreamCachesBriefEmpty(t *testing.T) {
	api := &fakeCommentsAPI{menu: menuNoComments}
	exec := &commentsExecutor{err: errors.New("ERROR: [youtube] " + testVideoID + ": Sign in to confirm you're not a bot")}
	eng := newTestEngine(t, api, exec, 0, 20, 20)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
	assert.NotNil(t, res.Comments)
	assert.Equal(t, WarningBlocked, res.Warning)
	assert.Equal(t, 1, exec.count())

	// The brief empty entry serves repeat traffic without another attempt
	// and without the warning.
	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Empty(t, again.Comments)
	assert.Empty(t, again.Warning)
	assert.Equal(t, "memory", again.Cache)
	assert.Equal(t, 1, exec.count())
}

func TestTechnicalFailureIsNotCached(t *testing.T) {
	api := &fakeCommentsAPI{status: http.StatusInternalServerError}
	exec := &commentsExecutor{err: errors.New("network timeout")}
	eng := newTestEngine(t, api, exec, 0, 20, 20)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
	assert.Equal(t, WarningTechnical, res.Warning)

	// Nothing was cached, so the next request runs the whole chain again.
	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, WarningTechnical, again.Warning)
	assert.Equal(t, 2, exec.count())
}

func TestAllStrategiesEmptyCachesCleanEmpty(t *testing.T) {
	api := &fakeCommentsAPI{menu: menuNoComments}
	exec := &commentsExecutor{}
	eng := newTestEngine(t, api, exec, 0, 20, 20)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Empty(t, res.Comments)
	assert.NotNil(t, res.Comments)
	assert.Empty(t, res.Warning, "a genuinely commentless video carries no warning")

	again, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, "memory", again.Cache)
	assert.Equal(t, 1, exec.count())
}

func TestConcurrentRequestsShareOneWalk(t *testing.T) {
	api := &fakeCommentsAPI{
		menu:  menuWithTop,
		pages: map[string]string{"top": commentsPage("", "only")},
		delay: 50 * time.Millisecond,
	}
	eng := newTestEngine(t, api, nil, 0, 20, 20)

	const callers = 4
	results := make(chan Result, callers)
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := eng.Get(context.Background(), testVideoID)
			results <- res
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for res := range results {
		assert.Equal(t, []string{"only"}, res.Comments)
	}
	assert.Equal(t, 2, api.calls(), "all callers share one walk")
}

func TestWaitExpiredRejoinsRunningFlight(t *testing.T) {
	api := &fakeCommentsAPI{
		menu:  menuWithTop,
		pages: map[string]string{"top": commentsPage("", "late")},
		delay: 120 * time.Millisecond,
	}
	eng := newTestEngine(t, api, nil, 160*time.Millisecond, 20, 20)

	res, err := eng.Get(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, res.Comments)
	assert.Equal(t, 2, api.calls(), "the promoted caller must not start a second walk")
}
