package web

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/services/beeapi"
	"github.com/liut/beeview/pkg/services/llm"
	"github.com/liut/beeview/pkg/services/stores"
	"github.com/liut/beeview/pkg/services/viewer"
)

const testKey = "bee-key"

// fakeBee serves the remote conversation API from memory.
type fakeBee struct {
	mu  sync.Mutex
	ids []int64
}

func (f *fakeBee) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("x-api-key") != testKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Path == "/v1/me/conversations" {
		var page int
		fmt.Sscan(r.URL.Query().Get("page"), &page)
		total := max(1, (len(f.ids)+14)/15)
		start := min((page-1)*15, len(f.ids))
		end := min(start+15, len(f.ids))
		var items []string
		for _, id := range f.ids[start:end] {
			items = append(items, fmt.Sprintf(`{"id":%d,"start_time":"2024-01-01T10:00:00Z","end_time":"2024-01-01T10:30:00Z","short_summary":"Talk %d about work"}`, id, id))
		}
		fmt.Fprintf(w, `{"conversations":[%s],"currentPage":%d,"totalPages":%d}`, strings.Join(items, ","), page, total)
		return
	}
	var id int64
	fmt.Sscan(strings.TrimPrefix(r.URL.Path, "/v1/me/conversations/"), &id)
	for i, have := range f.ids {
		if have != id {
			continue
		}
		if r.Method == http.MethodDelete {
			f.ids = append(f.ids[:i], f.ids[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		fmt.Fprintf(w, `{"conversation":{"id":%d,"start_time":"2024-01-01T10:00:00Z","end_time":"2024-01-01T10:30:00Z","summary":"All about work","transcriptions":[{"utterances":[{"speaker":"1","spoken_at":"2024-01-01T10:00:00Z","text":"hi"}]}]}}`, id)
		return
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"Conversation not found"}`))
}

type echoStreamer struct{}

func (echoStreamer) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		last := req.Messages[len(req.Messages)-1].Content
		for _, w := range strings.SplitAfter("you said "+last, " ") {
			if !yield(w, nil) {
				return
			}
		}
	}
}

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	hc     *http.Client
	evlog  *stores.EventLog
	tab    string
}

func newTestClient(t *testing.T, n int) *testClient {
	fb := &fakeBee{}
	for i := n; i > 0; i-- {
		fb.ids = append(fb.ids, int64(i))
	}
	beeSrv := httptest.NewServer(fb)
	t.Cleanup(beeSrv.Close)
	bee, err := beeapi.New(beeapi.Config{BaseURL: beeSrv.URL})
	require.NoError(t, err)

	events := stores.NewEventLog(10)
	s := newServer(Config{
		Bee:      bee,
		Streamer: echoStreamer{},
		Sessions: stores.NewMemorySessions(),
		Events:   events,
		Preset:   aigc.Preset{Welcome: &aigc.Message{Content: "hello"}},
	})
	srv := httptest.NewServer(s.ar)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	return &testClient{t: t, srv: srv, hc: &http.Client{Jar: jar}, evlog: events}
}

func (c *testClient) do(method, path, key, body string) *http.Response {
	req, err := http.NewRequest(method, c.srv.URL+path, strings.NewReader(body))
	require.NoError(c.t, err)
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(key) > 0 {
		req.Header.Set(headerAPIKey, key)
	}
	if len(c.tab) > 0 {
		req.Header.Set(headerTabID, c.tab)
	}
	resp, err := c.hc.Do(req)
	require.NoError(c.t, err)
	return resp
}

func (c *testClient) json(method, path, key, body string, out any) {
	resp := c.do(method, path, key, body)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var res struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&res))
	require.NoError(c.t, json.Unmarshal(res.Data, out))
}

func (c *testClient) events(method, path, key, body string) (out []string) {
	resp := c.do(method, path, key, body)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	assert.Equal(c.t, "text/event-stream", resp.Header.Get("Content-Type"))
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			out = append(out, data)
		}
	}
	return
}

func TestPing(t *testing.T) {
	c := newTestClient(t, 0)
	resp := c.do(http.MethodGet, "/ping", "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDefaults(t *testing.T) {
	c := newTestClient(t, 0)
	var res struct {
		Params  aigc.ChatParams `json:"params"`
		Welcome string          `json:"welcome"`
		Columns []string        `json:"columns"`
	}
	c.json(http.MethodGet, "/api/defaults", "", "", &res)
	assert.Equal(t, aigc.DefaultParams(), res.Params)
	assert.Equal(t, "hello", res.Welcome)
	assert.Equal(t, []string{"ID", "End Time", "Duration", "Summary"}, res.Columns)
}

func TestLoadAndPage(t *testing.T) {
	c := newTestClient(t, 20)

	var lv viewer.ListView
	c.json(http.MethodPost, "/api/load", testKey, `{"tz":"UTC"}`, &lv)
	require.Empty(t, lv.Error)
	assert.Len(t, lv.Rows, 15)
	assert.Equal(t, "Page 1 of 2", lv.Info)
	assert.Equal(t, "10:30 AM UTC", lv.Rows[0].EndTime)
	assert.Equal(t, "0h 30m", lv.Rows[0].Duration)
	assert.Equal(t, "20 about work...", lv.Rows[0].Summary)

	c.json(http.MethodPost, "/api/page/prev", testKey, "", &lv)
	assert.Equal(t, 1, lv.Page)
	assert.False(t, lv.PrevEnabled)

	c.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 2, lv.Page)
	assert.Len(t, lv.Rows, 5)
	c.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 2, lv.Page)
	assert.False(t, lv.NextEnabled)

	// a second browser has its own cursor
	other := &testClient{t: t, srv: c.srv, hc: &http.Client{}}
	var lv2 viewer.ListView
	other.json(http.MethodPost, "/api/load", testKey, "", &lv2)
	assert.Equal(t, 1, lv2.Page)

	resp := c.do(http.MethodPost, "/api/page/sideways", testKey, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTabsKeepOwnCursor(t *testing.T) {
	a := newTestClient(t, 40)
	a.tab = uuid.NewString()
	b := *a
	b.tab = uuid.NewString()

	var lv viewer.ListView
	a.json(http.MethodPost, "/api/load", testKey, "", &lv)
	assert.Equal(t, "Page 1 of 3", lv.Info)
	b.json(http.MethodPost, "/api/load", testKey, "", &lv)
	assert.Equal(t, 1, lv.Page)

	a.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 2, lv.Page)
	b.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 2, lv.Page)
	a.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 3, lv.Page)
	b.json(http.MethodPost, "/api/page/prev", testKey, "", &lv)
	assert.Equal(t, 1, lv.Page)

	// same cookie jar, no tab header: the cookie session is separate again
	c := *a
	c.tab = ""
	c.json(http.MethodPost, "/api/load", testKey, "", &lv)
	assert.Equal(t, 1, lv.Page)
	c.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 2, lv.Page)

	c.tab = "not-a-uuid"
	c.json(http.MethodPost, "/api/page/next", testKey, "", &lv)
	assert.Equal(t, 3, lv.Page)
}

func TestLoadBadKey(t *testing.T) {
	c := newTestClient(t, 3)
	var lv viewer.ListView
	c.json(http.MethodPost, "/api/load", "nope", "", &lv)
	assert.Contains(t, lv.Info, "Error loading conversations")
	assert.Empty(t, lv.Rows)
}

func TestSelectStream(t *testing.T) {
	c := newTestClient(t, 3)
	c.json(http.MethodPost, "/api/load", testKey, `{"tz":"UTC"}`, &viewer.ListView{})

	frames := c.events(http.MethodGet, "/api/conversations/2", testKey, "")
	require.Len(t, frames, 2)
	var first, second viewer.DetailView
	require.NoError(t, json.Unmarshal([]byte(frames[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(frames[1]), &second))
	assert.Equal(t, viewer.MsgLoading, first.Markdown)
	assert.True(t, first.Loading)
	assert.True(t, strings.HasPrefix(second.Markdown, "# Conversation [2] 10:00 AM - 10:30 AM UTC"))
	assert.True(t, second.DeleteVisible)

	resp := c.do(http.MethodGet, "/api/conversations/abc", testKey, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteRefetches(t *testing.T) {
	c := newTestClient(t, 3)
	var dv viewer.DeleteView
	c.json(http.MethodDelete, "/api/conversations/2", testKey, "", &dv)
	assert.Equal(t, "Conversation 2 deleted successfully.", dv.Message)
	assert.Equal(t, []int64{3, 1}, dv.List.Rows.IDs())
	assert.False(t, dv.DeleteVisible)

	c.json(http.MethodDelete, "/api/conversations/2", testKey, "", &dv)
	assert.True(t, strings.HasPrefix(dv.Message, "Failed to delete conversation: "))
	assert.Equal(t, []int64{3, 1}, dv.List.Rows.IDs())
}

func TestChatStream(t *testing.T) {
	c := newTestClient(t, 3)
	frames := c.events(http.MethodPost, "/api/chat", "", `{"message":"hello there","context":"ctx"}`)
	require.NotEmpty(t, frames)
	assert.Equal(t, esDone, frames[len(frames)-1])

	var texts []string
	for _, f := range frames[:len(frames)-1] {
		var cm ChatMessage
		require.NoError(t, json.Unmarshal([]byte(f), &cm))
		assert.Empty(t, cm.Error)
		texts = append(texts, cm.Text)
	}
	assert.Equal(t, "you said hello there", texts[len(texts)-1])
	for i := 1; i < len(texts); i++ {
		assert.True(t, strings.HasPrefix(texts[i], texts[i-1]))
	}

	var turns []aigc.HistoryChatItem
	c.json(http.MethodGet, "/api/history", "", "", &turns)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello there", turns[0].User)

	resp := c.do(http.MethodDelete, "/api/history", "", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	frames = c.events(http.MethodPost, "/api/chat", "", `{"message":""}`)
	require.Len(t, frames, 2)
	assert.Contains(t, frames[0], viewer.ErrEmptyMessage.Error())
}

func TestEvents(t *testing.T) {
	c := newTestClient(t, 0)
	zl := c.evlog.Tee(zap.NewNop(), zapcore.InfoLevel)
	zl.Info("bee list fetched", zap.Int("page", 1))
	zl.Debug("hidden")

	var evs []stores.Event
	c.json(http.MethodGet, "/api/events", "", "", &evs)
	require.Len(t, evs, 1)
	assert.Equal(t, "bee list fetched", evs[0].Message)
}
