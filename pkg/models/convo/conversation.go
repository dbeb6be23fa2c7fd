// Package convo holds the records served by the remote conversation service and the
// rows projected from them for the listing table.
package convo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cast"
)

// Utterance is one spoken segment attributed to a speaker.
type Utterance struct {
	Speaker  string `json:"speaker"`
	SpokenAt string `json:"spoken_at"`
	Text     string `json:"text"`
}

// Transcription is a block of utterances in spoken order.
type Transcription struct {
	ID         int64       `json:"id,omitempty"`
	Utterances []Utterance `json:"utterances"`
}

// Conversation is one recorded session. Every field except ID may be absent.
type Conversation struct {
	ID             int64           `json:"id"`
	StartTime      string          `json:"start_time,omitempty"`
	EndTime        string          `json:"end_time,omitempty"`
	ShortSummary   string          `json:"short_summary,omitempty"`
	Summary        string          `json:"summary,omitempty"`
	Transcriptions []Transcription `json:"transcriptions,omitempty"`
}

// StringID ...
func (z *Conversation) StringID() string {
	return strconv.FormatInt(z.ID, 10)
}

// HasBounds reports whether both start and end are known.
func (z *Conversation) HasBounds() bool {
	return len(z.StartTime) > 0 && len(z.EndTime) > 0
}

// Utterances flattens all transcription blocks in order.
func (z *Conversation) Utterances() (out []Utterance) {
	for _, t := range z.Transcriptions {
		out = append(out, t.Utterances...)
	}
	return
}

// UnmarshalJSON decodes loosely: ids may be numbers or strings, nulls are absent.
func (z *Conversation) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := cast.ToInt64E(raw["id"])
	if err != nil {
		return fmt.Errorf("invalid conversation id %v: %w", raw["id"], err)
	}
	*z = Conversation{
		ID:           id,
		StartTime:    cast.ToString(raw["start_time"]),
		EndTime:      cast.ToString(raw["end_time"]),
		ShortSummary: cast.ToString(raw["short_summary"]),
		Summary:      cast.ToString(raw["summary"]),
	}
	for _, it := range cast.ToSlice(raw["transcriptions"]) {
		tm := cast.ToStringMap(it)
		tr := Transcription{ID: cast.ToInt64(tm["id"])}
		for _, u := range cast.ToSlice(tm["utterances"]) {
			um := cast.ToStringMap(u)
			tr.Utterances = append(tr.Utterances, Utterance{
				Speaker:  cast.ToString(um["speaker"]),
				SpokenAt: cast.ToString(um["spoken_at"]),
				Text:     cast.ToString(um["text"]),
			})
		}
		z.Transcriptions = append(z.Transcriptions, tr)
	}
	return nil
}

// Conversations ...
type Conversations []Conversation

// IDs ...
func (z Conversations) IDs() []int64 {
	out := make([]int64, 0, len(z))
	for _, c := range z {
		out = append(out, c.ID)
	}
	return out
}

// Page is one window of the remote list endpoint.
type Page struct {
	Conversations Conversations `json:"conversations"`
	CurrentPage   int           `json:"currentPage"`
	TotalPages    int           `json:"totalPages"`
	TotalCount    int           `json:"totalCount"`
}

// Columns of the listing table, in display order.
var Columns = []string{"ID", "End Time", "Duration", "Summary"}

// Row is a display-ready projection of a Conversation.
type Row struct {
	ID       int64  `json:"id"`
	EndTime  string `json:"endTime"`
	Duration string `json:"duration"`
	Summary  string `json:"summary"`
}

// Values returns the cells in Columns order.
func (r Row) Values() []string {
	return []string{strconv.FormatInt(r.ID, 10), r.EndTime, r.Duration, r.Summary}
}

// Rows ...
type Rows []Row

// IDs ...
func (z Rows) IDs() []int64 {
	out := make([]int64, 0, len(z))
	for _, r := range z {
		out = append(out, r.ID)
	}
	return out
}
