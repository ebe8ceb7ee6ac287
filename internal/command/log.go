//
//
package command

import (
	"fmt"
	"strings"
	"time"
)

// LogEntry records one issued command and the reply matched to it, if any.
type LogEntry struct {
	Seq         uint64    `json:"seq"`
	Command     string    `json:"command"`
	Response    string    `json:"response,omitempty"`
	IssuedAt    time.Time `json:"issuedAt"`
	RespondedAt time.Time `json:"respondedAt,omitempty"`
	Err         error     `json:"-"`
}

// Responded reports whether a reply has been matched to the entry.
func (e LogEntry) Responded() bool {
	return !e.RespondedAt.IsZero()
}

// Latency returns the time between issue and reply, or zero.
func (e LogEntry) Latency() time.Duration {
	if !e.Responded() {
		return 0
	}
	return e.RespondedAt.Sub(e.IssuedAt)
}

// String renders the entry as one line of the session log.
func (e LogEntry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%d command=%q", e.IssuedAt.Format("2006-01-02 15:04:05.000"), e.Seq, e.Command)
	if e.Responded() {
		fmt.Fprintf(&b, " response=%q latency=%s", e.Response, e.Latency().Round(time.Millisecond))
	} else {
		b.WriteString(" response=<none>")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, " error=%q", e.Err.Error())
	}
	return b.String()
}
