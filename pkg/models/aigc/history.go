package aigc

import "encoding/json"

// HistoryChatItem is one chat turn.
type HistoryChatItem struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type HistoryItem struct {
	Time int64 `json:"time"`

	// chat
	ChatItem *HistoryChatItem `json:"chat"`
}

type HistoryItems []HistoryItem

// Turns returns the chat turns in order, skipping empty items.
func (z HistoryItems) Turns() (out []HistoryChatItem) {
	for _, hi := range z {
		if hi.ChatItem != nil {
			out = append(out, *hi.ChatItem)
		}
	}
	return
}

// Recently keeps the last n items.
func (z HistoryItems) Recently(n int) HistoryItems {
	if n <= 0 || len(z) <= n {
		return z
	}
	return z[len(z)-n:]
}

// MarshalBinary implements the encoding.BinaryMarshaler interface.
func (z *HistoryItem) MarshalBinary() (data []byte, err error) {
	data, err = json.Marshal(z)
	return
}

// UnmarshalBinary unmarshal a binary representation of itself. for redis result.Scan
func (z *HistoryItem) UnmarshalBinary(data []byte) error {
	var t HistoryItem
	err := json.Unmarshal(data, &t)
	if err == nil {
		*z = t
	}
	return err
}
