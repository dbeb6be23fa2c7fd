// Package viewer dispatches the user actions of one session to the conversation
// service, the formatter and the completion service.
package viewer

import (
	"context"
	"errors"
	"iter"
	"strconv"

	"go.uber.org/zap"

	"github.com/liut/beeview/pkg/models/convo"
	"github.com/liut/beeview/pkg/services/beeapi"
	"github.com/liut/beeview/pkg/services/llm"
	"github.com/liut/beeview/pkg/services/stores"
	"github.com/liut/beeview/pkg/services/transcript"
)

// user-visible texts
const (
	MsgLoading        = "Loading conversation details..."
	MsgMissingKeyOrID = "No conversation selected or API key missing"
)

// ListView is what the table, page info and paging controls show.
type ListView struct {
	Columns     []string   `json:"columns"`
	Rows        convo.Rows `json:"rows"`
	Info        string     `json:"info"`
	Page        int        `json:"page"`
	TotalPages  int        `json:"totalPages"`
	PrevEnabled bool       `json:"prevEnabled"`
	NextEnabled bool       `json:"nextEnabled"`
	Error       string     `json:"error,omitempty"`
}

// DetailView is one emission of the detail pane.
type DetailView struct {
	ID            int64  `json:"id,omitempty"`
	Markdown      string `json:"markdown"`
	HTML          string `json:"html,omitempty"`
	Loading       bool   `json:"loading,omitempty"`
	DeleteVisible bool   `json:"deleteVisible"`
	Error         string `json:"error,omitempty"`
}

// DeleteView is the outcome of a delete: a message and the re-fetched list.
type DeleteView struct {
	Message       string   `json:"message"`
	List          ListView `json:"list"`
	DeleteVisible bool     `json:"deleteVisible"`
}

// Controller is stateless; all session state arrives as *stores.State.
type Controller struct {
	bee      beeapi.Client
	streamer llm.Streamer
	sessions stores.Sessions
}

// New ...
func New(bee beeapi.Client, streamer llm.Streamer, sessions stores.Sessions) *Controller {
	return &Controller{bee: bee, streamer: streamer, sessions: sessions}
}

// Load fetches the session's current page.
func (c *Controller) Load(ctx context.Context, st *stores.State, apiKey string) ListView {
	st.Clamp()
	page, err := c.bee.ListConversations(ctx, apiKey, st.Page)
	if err != nil {
		logger().Infow("load conversations fail", "sid", st.ID, "page", st.Page, "err", err)
		return ListView{
			Columns: convo.Columns,
			Info:    "Error loading conversations: " + describe(err),
			Page:    st.Page, TotalPages: st.TotalPages,
			Error: describe(err),
		}
	}
	requested := st.Page
	st.TotalPages = page.TotalPages
	st.Clamp()
	if st.Page != requested {
		// the list shrank under the cursor
		if again, err := c.bee.ListConversations(ctx, apiKey, st.Page); err == nil {
			page = again
		}
	}
	logger().Infow("loaded conversations", "sid", st.ID, "page", st.Page, "total", st.TotalPages, "rows", len(page.Conversations))
	return ListView{
		Columns:     convo.Columns,
		Rows:        transcript.Rows(page, st.Location()),
		Info:        transcript.PageInfo(st.Page, st.TotalPages),
		Page:        st.Page,
		TotalPages:  st.TotalPages,
		PrevEnabled: st.CanPrev(),
		NextEnabled: st.CanNext(),
	}
}

// NextPage moves forward one page, staying put at the last page.
func (c *Controller) NextPage(ctx context.Context, st *stores.State, apiKey string) ListView {
	st.Step(1)
	return c.Load(ctx, st, apiKey)
}

// PrevPage moves back one page, staying put at page 1.
func (c *Controller) PrevPage(ctx context.Context, st *stores.State, apiKey string) ListView {
	st.Step(-1)
	return c.Load(ctx, st, apiKey)
}

// Select yields a loading placeholder, then the rendered conversation.
func (c *Controller) Select(ctx context.Context, st *stores.State, apiKey string, id int64) iter.Seq[DetailView] {
	return func(yield func(DetailView) bool) {
		st.Unselect()
		if !yield(DetailView{ID: id, Markdown: MsgLoading, Loading: true}) {
			return
		}
		yield(c.detail(ctx, st, apiKey, id))
	}
}

func (c *Controller) detail(ctx context.Context, st *stores.State, apiKey string, id int64) DetailView {
	cv, err := c.bee.GetConversation(ctx, apiKey, id)
	if err != nil {
		logger().Infow("fetch conversation fail", "id", id, "err", err)
		msg := "Failed to fetch conversation: " + describe(err)
		return DetailView{ID: id, Markdown: msg, Error: msg}
	}
	md, err := transcript.FormatConversation(cv, st.Location())
	if err != nil {
		logger().Infow("format conversation fail", "id", id, "err", err)
		msg := "Error formatting conversation: " + describe(err)
		return DetailView{ID: id, Markdown: msg, Error: msg}
	}
	st.SelectedID, st.Detail = id, md
	return DetailView{ID: id, Markdown: md, HTML: transcript.RenderHTML(md), DeleteVisible: true}
}

// Delete removes a conversation and always re-fetches the current page.
func (c *Controller) Delete(ctx context.Context, st *stores.State, apiKey string, id int64) DeleteView {
	if len(apiKey) == 0 || id == 0 {
		return DeleteView{Message: MsgMissingKeyOrID}
	}
	logger().Infow("deleting conversation", "sid", st.ID, "id", id)
	var dv DeleteView
	if err := c.bee.DeleteConversation(ctx, apiKey, id); err != nil {
		logger().Infow("delete conversation fail", "id", id, "err", err)
		dv.Message = "Failed to delete conversation: " + describe(err)
	} else {
		dv.Message = "Conversation " + strconv.FormatInt(id, 10) + " deleted successfully."
	}
	st.Unselect()
	dv.List = c.Load(ctx, st, apiKey)
	return dv
}

// describe renders an action failure for the user.
func describe(err error) string {
	var (
		ae *beeapi.AuthError
		ne *beeapi.NetworkError
		re *beeapi.RemoteError
		fe *transcript.FormatError
	)
	switch {
	case errors.As(err, &ae):
		return "invalid or missing API key (" + ae.Error() + ")"
	case errors.As(err, &ne):
		return "network error: " + ne.Err.Error()
	case errors.As(err, &re):
		return re.Error()
	case errors.As(err, &fe):
		return fe.Error()
	}
	return err.Error()
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
