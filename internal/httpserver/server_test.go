package httpserver_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/shelf/internal/command"
	"github.com/MrSnakeDoc/shelf/internal/events"
	"github.com/MrSnakeDoc/shelf/internal/httpserver"
	"github.com/MrSnakeDoc/shelf/internal/httpserver/deps"
	"github.com/MrSnakeDoc/shelf/internal/index"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/query"
	"github.com/MrSnakeDoc/shelf/internal/stats"
)

const principalHeader = "X-User-ID"

type apiError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type bookmarkJSON struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Public     bool   `json:"public"`
	Favorite   bool   `json:"favorite"`
	Rating     *int   `json:"rating"`
	VisitCount int64  `json:"visit_count"`
}

type connectionJSON struct {
	Edges []struct {
		Node   bookmarkJSON `json:"node"`
		Cursor string       `json:"cursor"`
	} `json:"edges"`
	PageInfo   query.PageInfo `json:"pageInfo"`
	TotalCount int64          `json:"totalCount"`
}

type fixture struct {
	t   *testing.T
	srv *httptest.Server
	bus *events.Bus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.NewNop()
	idx := index.NewMemoryIndex()
	bus := events.NewBus(events.DefaultCapacity, log)

	st, err := stats.NewService(idx, 16, time.Minute, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go st.Run(ctx, bus)

	d := deps.Deps{
		Logger:          log,
		StartTime:       time.Now(),
		Version:         "test",
		PrincipalHeader: principalHeader,
		RequestTimeout:  5 * time.Second,
		RateBurst:       1000,
		RatePerMinute:   1000,
		SSEKeepAlive:    time.Second,
		StoreKind:       "memory",
		Store:           idx,
		Bus:             bus,
		Queries:         query.NewService(idx, log),
		Commands:        command.NewService(idx, bus, log),
		Stats:           st,
	}

	srv := httptest.NewServer(httpserver.Router(log, d))
	t.Cleanup(func() {
		// Closing the bus ends open streams so the server can close.
		bus.Close()
		cancel()
		srv.Close()
	})
	return &fixture{t: t, srv: srv, bus: bus}
}

func (f *fixture) do(method, path, principal string, body any) (int, []byte) {
	f.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(f.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if principal != "" {
		req.Header.Set(principalHeader, principal)
	}

	resp, err := f.srv.Client().Do(req)
	require.NoError(f.t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(f.t, err)
	return resp.StatusCode, out
}

func (f *fixture) create(principal, title string, public bool) bookmarkJSON {
	f.t.Helper()
	status, body := f.do(http.MethodPost, "/api/bookmarks", principal, map[string]any{
		"title":  title,
		"url":    "https://example.com/" + title,
		"public": public,
	})
	require.Equal(f.t, http.StatusCreated, status, string(body))

	var b bookmarkJSON
	require.NoError(f.t, json.Unmarshal(body, &b))
	return b
}

func (f *fixture) page(principal, rawQuery string) connectionJSON {
	f.t.Helper()
	status, body := f.do(http.MethodGet, "/api/bookmarks?"+rawQuery, principal, nil)
	require.Equal(f.t, http.StatusOK, status, string(body))

	var conn connectionJSON
	require.NoError(f.t, json.Unmarshal(body, &conn))
	return conn
}

func ids(conn connectionJSON) []int64 {
	out := make([]int64, 0, len(conn.Edges))
	for _, e := range conn.Edges {
		out = append(out, e.Node.ID)
	}
	return out
}

func TestAPI_PageHonoursVisibility(t *testing.T) {
	f := newFixture(t)
	f.create("1", "one", true)
	f.create("1", "two", false)
	f.create("2", "three", true)

	anon := f.page("", "")
	assert.Equal(t, []int64{1, 3}, ids(anon))
	assert.EqualValues(t, 3, anon.TotalCount)
	assert.False(t, anon.PageInfo.HasPreviousPage)

	owner := f.page("1", "")
	assert.Equal(t, []int64{1, 2, 3}, ids(owner))
}

func TestAPI_PageWalksWithCursors(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.create("1", "b"+strconv.Itoa(i), true)
	}

	first := f.page("", "first=2")
	assert.Equal(t, []int64{1, 2}, ids(first))
	require.True(t, first.PageInfo.HasNextPage)
	require.NotNil(t, first.PageInfo.EndCursor)

	second := f.page("", "first=2&after="+url.QueryEscape(*first.PageInfo.EndCursor))
	assert.Equal(t, []int64{3, 4}, ids(second))
	assert.True(t, second.PageInfo.HasPreviousPage)

	last := f.page("", "first=2&after="+url.QueryEscape(*second.PageInfo.EndCursor))
	assert.Equal(t, []int64{5}, ids(last))
	assert.False(t, last.PageInfo.HasNextPage)
}

func TestAPI_Errors(t *testing.T) {
	f := newFixture(t)
	private := f.create("1", "private", false)
	public := f.create("1", "public", true)
	privatePath := "/api/bookmarks/" + strconv.FormatInt(private.ID, 10)
	publicPath := "/api/bookmarks/" + strconv.FormatInt(public.ID, 10)

	tests := []struct {
		name      string
		method    string
		path      string
		principal string
		body      any
		status    int
		code      string
	}{
		{"invalid cursor", http.MethodGet, "/api/bookmarks?after=%21%21", "", nil, http.StatusBadRequest, "INVALID_CURSOR"},
		{"non numeric first", http.MethodGet, "/api/bookmarks?first=ten", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"private record hidden from others", http.MethodGet, privatePath, "2", nil, http.StatusNotFound, "BOOKMARK_NOT_FOUND"},
		{"private record hidden from anonymous", http.MethodGet, privatePath, "", nil, http.StatusNotFound, "BOOKMARK_NOT_FOUND"},
		{"unknown record", http.MethodGet, "/api/bookmarks/999", "1", nil, http.StatusNotFound, "BOOKMARK_NOT_FOUND"},
		{"bad id", http.MethodGet, "/api/bookmarks/abc", "1", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"anonymous create", http.MethodPost, "/api/bookmarks", "", map[string]any{"title": "x", "url": "https://x.dev"}, http.StatusForbidden, "FORBIDDEN"},
		{"create without url", http.MethodPost, "/api/bookmarks", "1", map[string]any{"title": "x"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"unknown field", http.MethodPost, "/api/bookmarks", "1", map[string]any{"title": "x", "url": "https://x.dev", "owner": 3}, http.StatusBadRequest, "INVALID_INPUT"},
		{"update someone else's record", http.MethodPatch, publicPath, "2", map[string]any{"title": "mine"}, http.StatusForbidden, "FORBIDDEN"},
		{"rating out of range", http.MethodPut, publicPath + "/rating", "1", map[string]any{"rating": 9}, http.StatusBadRequest, "INVALID_RATING"},
		{"rating missing", http.MethodPut, publicPath + "/rating", "1", map[string]any{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"malformed principal", http.MethodGet, "/api/bookmarks", "bob", nil, http.StatusBadRequest, "INVALID_PRINCIPAL"},
		{"unknown view", http.MethodGet, "/api/subscriptions/everything", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"search min rating out of range", http.MethodGet, "/api/bookmarks/search?min_rating=7", "", nil, http.StatusBadRequest, "INVALID_RATING"},
		{"search favorite not a boolean", http.MethodGet, "/api/bookmarks/search?favorite=maybe", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"most visited limit not a number", http.MethodGet, "/api/bookmarks/most-visited?limit=all", "", nil, http.StatusBadRequest, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := f.do(tt.method, tt.path, tt.principal, tt.body)
			assert.Equal(t, tt.status, status, string(body))

			var e apiError
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.code, e.Code)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestAPI_Mutations(t *testing.T) {
	f := newFixture(t)
	b := f.create("1", "docs", true)
	path := "/api/bookmarks/" + strconv.FormatInt(b.ID, 10)

	status, body := f.do(http.MethodPatch, path, "1", map[string]any{"title": "go docs"})
	require.Equal(t, http.StatusOK, status, string(body))
	var updated bookmarkJSON
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "go docs", updated.Title)

	status, body = f.do(http.MethodPost, path+"/favorite", "1", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.True(t, updated.Favorite)

	status, body = f.do(http.MethodPut, path+"/rating", "1", map[string]any{"rating": 4})
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &updated))
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4, *updated.Rating)

	// Anyone who can see a record can visit it.
	status, body = f.do(http.MethodPost, path+"/visit", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.EqualValues(t, 1, updated.VisitCount)

	status, _ = f.do(http.MethodDelete, path, "1", nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = f.do(http.MethodGet, path, "1", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Stats(t *testing.T) {
	f := newFixture(t)
	a := f.create("1", "a", true)
	f.create("1", "b", false)
	f.do(http.MethodPut, "/api/bookmarks/"+strconv.FormatInt(a.ID, 10)+"/rating", "1", map[string]any{"rating": 5})

	status, body := f.do(http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var st stats.Statistics
	require.NoError(t, json.Unmarshal(body, &st))
	assert.EqualValues(t, 1, st.TotalBookmarks)
	require.NotNil(t, st.AverageRating)
	assert.InDelta(t, 5.0, *st.AverageRating, 0.001)
}

type listJSON struct {
	Bookmarks []bookmarkJSON `json:"bookmarks"`
	Count     int            `json:"count"`
}

func (f *fixture) list(principal, path string) []int64 {
	f.t.Helper()
	status, body := f.do(http.MethodGet, path, principal, nil)
	require.Equal(f.t, http.StatusOK, status, string(body))

	var l listJSON
	require.NoError(f.t, json.Unmarshal(body, &l))
	require.Len(f.t, l.Bookmarks, l.Count)
	out := make([]int64, 0, len(l.Bookmarks))
	for _, b := range l.Bookmarks {
		out = append(out, b.ID)
	}
	return out
}

func TestAPI_ListViews(t *testing.T) {
	f := newFixture(t)
	goBlog := f.create("1", "go-blog", true)
	goTour := f.create("1", "go-tour", false)
	rust := f.create("1", "rust-book", true)

	path := func(b bookmarkJSON, suffix string) string {
		return "/api/bookmarks/" + strconv.FormatInt(b.ID, 10) + suffix
	}
	f.do(http.MethodPost, path(goBlog, "/favorite"), "1", nil)
	f.do(http.MethodPost, path(goTour, "/favorite"), "1", nil)
	f.do(http.MethodPut, path(goBlog, "/rating"), "1", map[string]any{"rating": 5})
	f.do(http.MethodPut, path(goTour, "/rating"), "1", map[string]any{"rating": 4})
	f.do(http.MethodPut, path(rust, "/rating"), "1", map[string]any{"rating": 2})
	for range 2 {
		f.do(http.MethodPost, path(rust, "/visit"), "", nil)
	}
	f.do(http.MethodPost, path(goBlog, "/visit"), "", nil)

	assert.Equal(t, []int64{goBlog.ID}, f.list("", "/api/bookmarks/search?q=GO"))
	assert.Equal(t, []int64{goBlog.ID, goTour.ID}, f.list("1", "/api/bookmarks/search?q=go"))
	assert.Equal(t, []int64{rust.ID}, f.list("1", "/api/bookmarks/search?favorite=false"))
	assert.Equal(t, []int64{goBlog.ID, goTour.ID}, f.list("1", "/api/bookmarks/search?min_rating=4"))

	assert.Equal(t, []int64{goBlog.ID}, f.list("", "/api/bookmarks/favorites"))
	assert.Equal(t, []int64{goBlog.ID, goTour.ID}, f.list("1", "/api/bookmarks/favorites"))

	assert.Equal(t, []int64{goBlog.ID}, f.list("2", "/api/bookmarks/top-rated"))
	assert.Equal(t, []int64{goBlog.ID, goTour.ID, rust.ID}, f.list("1", "/api/bookmarks/top-rated?min_rating=1"))

	assert.Equal(t, []int64{rust.ID, goBlog.ID}, f.list("", "/api/bookmarks/most-visited?limit=2"))
	assert.Equal(t, []int64{goBlog.ID, rust.ID}, f.list("", "/api/bookmarks/recently-visited"))

	assert.Empty(t, f.list("", "/api/bookmarks/search?q=python"))
}

func TestAPI_Ops(t *testing.T) {
	f := newFixture(t)

	status, body := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"ok"`)

	status, body = f.do(http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"ready":true`)

	// Metrics are not mounted without a handler.
	status, _ = f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func readFrame(t *testing.T, r *bufio.Reader) []string {
	t.Helper()
	var lines []string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			return lines
		}
		lines = append(lines, line)
	}
}

func TestAPI_ServerSentEvents(t *testing.T) {
	f := newFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.srv.URL+"/api/subscriptions/created", nil)
	require.NoError(t, err)
	req.Header.Set(principalHeader, "2")

	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	assert.Equal(t, []string{": connected"}, readFrame(t, r))

	// Private records of other users never reach the stream.
	f.create("1", "hidden", false)
	f.create("1", "shown", true)

	var frame []string
	for {
		frame = readFrame(t, r)
		if !strings.HasPrefix(frame[0], ":") {
			break
		}
	}
	require.Len(t, frame, 2)
	assert.Equal(t, "event: created", frame[0])

	var b bookmarkJSON
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frame[1], "data: ")), &b))
	assert.Equal(t, "shown", b.Title)
}

func TestAPI_WebSocket(t *testing.T) {
	f := newFixture(t)
	b := f.create("1", "gone", true)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/api/subscriptions/deleted/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	status, _ := f.do(http.MethodDelete, "/api/bookmarks/"+strconv.FormatInt(b.ID, 10), "1", nil)
	require.Equal(t, http.StatusNoContent, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg struct {
		View string `json:"view"`
		Data struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "deleted", msg.View)
	assert.Equal(t, b.ID, msg.Data.ID)
}
