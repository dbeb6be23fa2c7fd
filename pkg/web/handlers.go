package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jpillora/eventsource"
	"github.com/marcsv/go-binder/binder"
	"github.com/spf13/cast"

	"github.com/liut/beeview/pkg/models/aigc"
	"github.com/liut/beeview/pkg/models/convo"
	"github.com/liut/beeview/pkg/services/viewer"
	"github.com/liut/beeview/pkg/settings"
)

const esDone = "[DONE]"

type loadReq struct {
	TimeZone string `json:"tz"`
}

// ChatMessage is one frame of the chat stream.
type ChatMessage struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (s *server) getDefaults(w http.ResponseWriter, r *http.Request) {
	apiOk(w, r, M{
		"params":   s.preset.Params(),
		"welcome":  s.preset.WelcomeText(),
		"timeZone": settings.Current.TimeZone,
		"pageSize": settings.Current.PageSize,
		"columns":  convo.Columns,
		"limits": M{
			"maxTokens":   []int{aigc.MinMaxTokens, aigc.MaxMaxTokens},
			"temperature": []float32{aigc.MinTemperature, aigc.MaxTemperature},
			"topP":        []float32{aigc.MinTopP, aigc.MaxTopP},
		},
	})
}

func (s *server) getEvents(w http.ResponseWriter, r *http.Request) {
	data := s.events.Recent()
	apiOk(w, r, data, len(data))
}

func (s *server) postLoad(w http.ResponseWriter, r *http.Request) {
	var param loadReq
	if r.ContentLength > 0 {
		if err := binder.BindBody(r, &param); err != nil {
			apiFail(w, r, 400, err)
			return
		}
	}
	st, err := s.loadState(r)
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	if len(param.TimeZone) > 0 {
		if _, err := time.LoadLocation(param.TimeZone); err == nil {
			st.TimeZone = param.TimeZone
		} else {
			logger().Infow("ignore unknown zone", "tz", param.TimeZone)
		}
	}
	lv := s.ctl.Load(r.Context(), st, apiKeyOf(r))
	s.saveState(r.Context(), st)
	apiOk(w, r, lv)
}

func (s *server) postPage(w http.ResponseWriter, r *http.Request) {
	dir := chi.URLParam(r, "dir")
	if dir != "next" && dir != "prev" {
		apiFail(w, r, 400, "invalid direction")
		return
	}
	st, err := s.loadState(r)
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	var lv viewer.ListView
	if dir == "next" {
		lv = s.ctl.NextPage(r.Context(), st, apiKeyOf(r))
	} else {
		lv = s.ctl.PrevPage(r.Context(), st, apiKeyOf(r))
	}
	s.saveState(r.Context(), st)
	apiOk(w, r, lv)
}

func conversationID(r *http.Request) (int64, bool) {
	id, err := cast.ToInt64E(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

func (s *server) getConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		apiFail(w, r, 400, "invalid id")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	st, err := s.loadState(r)
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	setStreamHeaders(w)

	var idx int
	for dv := range s.ctl.Select(r.Context(), st, apiKeyOf(r), id) {
		idx++
		if !writeEvent(w, strconv.Itoa(idx), &dv) {
			break
		}
		flusher.Flush()
	}
	s.saveState(r.Context(), st)
}

func (s *server) deleteConversation(w http.ResponseWriter, r *http.Request) {
	id, ok := conversationID(r)
	if !ok {
		apiFail(w, r, 400, "invalid id")
		return
	}
	st, err := s.loadState(r)
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	dv := s.ctl.Delete(r.Context(), st, apiKeyOf(r), id)
	s.saveState(r.Context(), st)
	apiOk(w, r, dv)
}

func (s *server) postChat(w http.ResponseWriter, r *http.Request) {
	var param viewer.ChatRequest
	if err := binder.BindBody(r, &param); err != nil {
		apiFail(w, r, 400, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}
	st, err := s.loadState(r)
	if err != nil {
		apiFail(w, r, 503, err)
		return
	}
	logger().Infow("chat", "sid", st.ID, "prompt", param.Message, "ip", r.RemoteAddr)
	setStreamHeaders(w)

	var idx int
	var answer string
	for text, err := range s.ctl.ChatSend(r.Context(), st, param) {
		idx++
		cm := ChatMessage{Text: text}
		if err != nil {
			cm.Error = err.Error()
		}
		if !writeEvent(w, strconv.Itoa(idx), &cm) {
			break
		}
		flusher.Flush()
		answer = text
	}
	_ = writeEvent(w, strconv.Itoa(idx+1), esDone)
	flusher.Flush()
	logger().Infow("chat done", "sid", st.ID, "chunks", idx, "answer", len(answer))
}

func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	data, err := s.sessions.History(sessionID(r.Context())).ListHistory(r.Context())
	if err != nil {
		apiFail(w, r, 500, err)
		return
	}
	apiOk(w, r, data.Turns(), len(data))
}

func (s *server) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.History(sessionID(r.Context())).ClearHistory(r.Context()); err != nil {
		apiFail(w, r, 500, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func setStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// writeEvent write and auto flush
func writeEvent(w io.Writer, id string, m any) bool {
	var b []byte
	var err error
	if s, ok := m.(string); ok {
		b = []byte(s)
	} else {
		b, err = json.Marshal(m)
		if err != nil {
			logger().Infow("json marshal fail", "m", m, "err", err)
			return false
		}
	}

	if err = eventsource.WriteEvent(w, eventsource.Event{
		ID:   id,
		Data: b,
	}); err != nil {
		logger().Infow("eventsource write fail", "err", err)
		return false
	}

	return true
}
