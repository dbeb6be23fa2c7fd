// Package transcript turns conversation records into listing rows and markdown.
package transcript

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/russross/blackfriday/v2"
	"go.uber.org/zap"

	"github.com/liut/beeview/pkg/models/convo"
)

const (
	// GapMarkerAfter is the silence that earns a standalone time marker.
	GapMarkerAfter = 300 * time.Second

	// SearchURL is the pseudo-anchor used for every utterance's speaker link.
	SearchURL = "https://kagi.com/search?q="

	summarySkipWords = 1
	summaryMaxWords  = 21

	layoutClock    = "03:04 PM"
	layoutClockTZ  = "03:04 PM MST"
	layoutDateTime = "2006-01-02 03:04 PM"
)

// FormatError reports a missing or malformed field while rendering.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s is missing", e.Field)
	}
	return fmt.Sprintf("%s %q is malformed: %s", e.Field, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// isoLocal is an ISO-8601 date-time without zone designator.
var isoLocal = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?$`)

// ParseTime parses an ISO-8601 timestamp, "Z" suffix included. A timestamp
// without zone is taken as UTC; anything else is a FormatError.
func ParseTime(field, s string) (time.Time, error) {
	if len(s) == 0 {
		return time.Time{}, &FormatError{Field: field}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	if !isoLocal.MatchString(s) {
		return time.Time{}, &FormatError{Field: field, Value: s, Err: err}
	}
	t, err = dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Field: field, Value: s, Err: err}
	}
	return t, nil
}

// FormatDuration renders end-start as "<H>h <M>m" with floor semantics.
func FormatDuration(start, end string) (string, error) {
	st, err := ParseTime("start_time", start)
	if err != nil {
		return "", err
	}
	et, err := ParseTime("end_time", end)
	if err != nil {
		return "", err
	}
	secs := int64(math.Floor(et.Sub(st).Seconds()))
	h := floorDiv(secs, 3600)
	m := floorMod(secs, 3600) / 60
	return fmt.Sprintf("%dh %dm", h, m), nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}

// FormatTimestamp converts iso into loc as a 12-hour clock with zone abbreviation.
func FormatTimestamp(iso string, loc *time.Location) (string, error) {
	t, err := ParseTime("timestamp", iso)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(layoutClockTZ), nil
}

// TruncateSummary keeps words 2 through 21 and appends an ellipsis.
func TruncateSummary(s string) string {
	if len(s) == 0 {
		return ""
	}
	words := strings.Fields(s)
	if len(words) > summaryMaxWords {
		words = words[:summaryMaxWords]
	}
	if len(words) > summarySkipWords {
		words = words[summarySkipWords:]
	} else {
		words = nil
	}
	return strings.Join(words, " ") + "..."
}

// RowOf projects one conversation. Unparseable times leave their cells empty.
func RowOf(c *convo.Conversation, loc *time.Location) convo.Row {
	row := convo.Row{ID: c.ID, Summary: TruncateSummary(c.ShortSummary)}
	if len(c.EndTime) > 0 {
		s, err := FormatTimestamp(c.EndTime, loc)
		if err != nil {
			logger().Infow("format end time fail", "id", c.ID, "err", err)
		}
		row.EndTime = s
	}
	if c.HasBounds() {
		s, err := FormatDuration(c.StartTime, c.EndTime)
		if err != nil {
			logger().Infow("format duration fail", "id", c.ID, "err", err)
		}
		row.Duration = s
	}
	return row
}

// Rows projects a page for the listing table.
func Rows(p *convo.Page, loc *time.Location) convo.Rows {
	if p == nil {
		return nil
	}
	out := make(convo.Rows, 0, len(p.Conversations))
	for i := range p.Conversations {
		out = append(out, RowOf(&p.Conversations[i], loc))
	}
	return out
}

// PageInfo ...
func PageInfo(page, total int) string {
	return fmt.Sprintf("Page %d of %d", page, total)
}

// FormatConversation renders the detail pane markdown.
func FormatConversation(c *convo.Conversation, loc *time.Location) (string, error) {
	if c == nil {
		return "", &FormatError{Field: "conversation"}
	}
	var sb strings.Builder
	sb.WriteString("# Conversation [" + strconv.FormatInt(c.ID, 10) + "] ")

	switch {
	case c.HasBounds():
		st, err := ParseTime("start_time", c.StartTime)
		if err != nil {
			return "", err
		}
		et, err := ParseTime("end_time", c.EndTime)
		if err != nil {
			return "", err
		}
		st, et = st.In(loc), et.In(loc)
		zone := et.Format("MST")
		if sameDay(st, et) {
			fmt.Fprintf(&sb, "%s - %s %s\n\n", st.Format(layoutClock), et.Format(layoutClock), zone)
		} else {
			fmt.Fprintf(&sb, "\n\n**Start**: %s %s\n", st.Format(layoutDateTime), st.Format("MST"))
			fmt.Fprintf(&sb, "**End**: %s %s\n", et.Format(layoutDateTime), zone)
		}
	case len(c.StartTime) > 0:
		s, err := FormatTimestamp(c.StartTime, loc)
		if err != nil {
			return "", err
		}
		sb.WriteString("**Start**: " + s + "\n")
	case len(c.EndTime) > 0:
		s, err := FormatTimestamp(c.EndTime, loc)
		if err != nil {
			return "", err
		}
		sb.WriteString("**End**: " + s + "\n")
	}

	if len(c.ShortSummary) > 0 {
		sb.WriteString("\n## Short Summary\n\n" + c.ShortSummary + "\n")
	}
	sb.WriteString("\n")
	if len(c.Summary) > 0 {
		sb.WriteString("\n" + c.Summary)
	}

	if us := c.Utterances(); len(us) > 0 {
		sb.WriteString("\n\n## Transcriptions\n\n")
		if err := writeUtterances(&sb, us, loc); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

func writeUtterances(sb *strings.Builder, us []convo.Utterance, loc *time.Location) error {
	var last time.Time
	for i, u := range us {
		cur, err := ParseTime("spoken_at", u.SpokenAt)
		if err != nil {
			return err
		}
		if i > 0 && cur.Sub(last) > GapMarkerAfter {
			sb.WriteString("[" + cur.In(loc).Format(layoutClock) + "]\n\n")
		}
		fmt.Fprintf(sb, "Speaker **[%s](%s%s)**: %s\n\n", u.Speaker, SearchURL, u.SpokenAt, u.Text)
		last = cur
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

var htmlFlags = blackfriday.CommonHTMLFlags | blackfriday.SkipHTML | blackfriday.HrefTargetBlank

// RenderHTML renders markdown for the detail pane. Raw HTML in the input is dropped.
func RenderHTML(md string) string {
	r := blackfriday.NewHTMLRenderer(blackfriday.HTMLRendererParameters{Flags: htmlFlags})
	return string(blackfriday.Run([]byte(md), blackfriday.WithRenderer(r)))
}

func logger() *zap.SugaredLogger {
	return zap.S()
}
