package viewer

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"sync"

	"github.com/liut/beeview/pkg/models/convo"
	"github.com/liut/beeview/pkg/services/beeapi"
	"github.com/liut/beeview/pkg/services/llm"
)

const testKey = "k"

type fakeBee struct {
	mu         sync.Mutex
	convs      convo.Conversations
	pageSize   int
	listCalls  int
	failDelete error
}

var _ beeapi.Client = (*fakeBee)(nil)

func newFakeBee(n int) *fakeBee {
	f := &fakeBee{pageSize: 15}
	for i := n; i > 0; i-- {
		f.convs = append(f.convs, convo.Conversation{
			ID:           int64(i),
			StartTime:    "2024-01-01T10:00:00Z",
			EndTime:      "2024-01-01T11:05:00Z",
			ShortSummary: fmt.Sprintf("Conversation number %d about things", i),
			Summary:      "Long summary",
			Transcriptions: []convo.Transcription{{Utterances: []convo.Utterance{
				{Speaker: "1", SpokenAt: "2024-01-01T10:00:00Z", Text: "hello"},
			}}},
		})
	}
	return f
}

func (f *fakeBee) ListConversations(ctx context.Context, apiKey string, page int) (*convo.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if apiKey != testKey {
		return nil, &beeapi.AuthError{StatusCode: http.StatusUnauthorized}
	}
	total := max(1, (len(f.convs)+f.pageSize-1)/f.pageSize)
	start := min((page-1)*f.pageSize, len(f.convs))
	end := min(start+f.pageSize, len(f.convs))
	return &convo.Page{
		Conversations: append(convo.Conversations(nil), f.convs[start:end]...),
		CurrentPage:   page,
		TotalPages:    total,
		TotalCount:    len(f.convs),
	}, nil
}

func (f *fakeBee) GetConversation(ctx context.Context, apiKey string, id int64) (*convo.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if apiKey != testKey {
		return nil, &beeapi.AuthError{StatusCode: http.StatusUnauthorized}
	}
	for _, c := range f.convs {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &beeapi.RemoteError{StatusCode: http.StatusNotFound, Message: "Conversation not found"}
}

func (f *fakeBee) DeleteConversation(ctx context.Context, apiKey string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	for i, c := range f.convs {
		if c.ID == id {
			f.convs = append(f.convs[:i], f.convs[i+1:]...)
			return nil
		}
	}
	return &beeapi.RemoteError{StatusCode: http.StatusNotFound, Message: "Conversation not found"}
}

func (f *fakeBee) add(c convo.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs = append(convo.Conversations{c}, f.convs...)
}

type fakeStreamer struct {
	deltas []string
	err    error
	last   llm.Request
	pulled int
}

func (s *fakeStreamer) Stream(ctx context.Context, req llm.Request) iter.Seq2[string, error] {
	s.last = req
	s.pulled = 0
	return func(yield func(string, error) bool) {
		for _, d := range s.deltas {
			s.pulled++
			if !yield(d, nil) {
				return
			}
		}
		if s.err != nil {
			yield("", s.err)
		}
	}
}
