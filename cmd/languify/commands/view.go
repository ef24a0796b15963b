package commands

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/cli"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
	"github.com/princeofnothin/teste-languify/pkg/voicesession"
)

const maxHistory = 50

const talkHelp = "enter: talk / send   r: reconnect   q: quit"

// statusText summarizes a session state for the status bar. alert is set
// while recording and after a connection failure.
func statusText(st voicesession.State) (text string, alert bool) {
	switch st.Connection.State {
	case realtime.StateConnecting:
		return "connecting…", false
	case realtime.StateFailed:
		if st.Connection.Err != nil {
			return "connection failed: " + st.Connection.Err.Error(), true
		}
		return "connection failed", true
	case realtime.StateDisconnected:
		return "disconnected", false
	}
	switch st.Turn {
	case voicesession.TurnCapturing:
		return "recording…", true
	case voicesession.TurnThinking:
		return "thinking…", false
	default:
		return "ready", false
	}
}

// talkView accumulates what the talk screen shows. It is fed from the store
// subscription and read by the renderer.
type talkView struct {
	title  string
	styles cli.Styles
	logs   *cli.LogWriter
	played atomic.Int64
	now    func() time.Time

	mu         sync.Mutex
	state      voicesession.State
	transcript string
	history    []string
	// thinkingSince is when the current turn was sent, zero otherwise.
	thinkingSince time.Time
	replyIn       time.Duration
}

func newTalkView(title string, logs *cli.LogWriter) *talkView {
	return &talkView{
		title:  title,
		styles: cli.NewStyles(cli.DefaultTheme),
		logs:   logs,
		now:    time.Now,
	}
}

// addPlayed records played audio bytes.
func (v *talkView) addPlayed(n int) {
	v.played.Add(int64(n))
}

// update applies a state and reports whether a new transcript arrived.
func (v *talkView) update(st voicesession.State) (newTranscript bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if st.Turn == voicesession.TurnThinking && v.state.Turn != voicesession.TurnThinking {
		v.thinkingSince = v.now()
	}
	v.state = st
	if st.Transcript == "" || st.Transcript == v.transcript {
		return false
	}
	if !v.thinkingSince.IsZero() {
		v.replyIn = v.now().Sub(v.thinkingSince)
		v.thinkingSince = time.Time{}
	}
	v.transcript = st.Transcript
	v.history = append(v.history, st.Transcript)
	if len(v.history) > maxHistory {
		v.history = v.history[len(v.history)-maxHistory:]
	}
	return true
}

// line renders a single status line for non-interactive output.
func (v *talkView) line() string {
	v.mu.Lock()
	st := v.state
	v.mu.Unlock()
	text, _ := statusText(st)
	return fmt.Sprintf("[%s] played %s", text, cli.FormatBytes(v.played.Load()))
}

// frame builds the full-screen frame.
func (v *talkView) frame() cli.Frame {
	v.mu.Lock()
	st := v.state
	history := append([]string(nil), v.history...)
	replyIn := v.replyIn
	v.mu.Unlock()

	status, alert := statusText(st)
	session := []string{
		"connection: " + st.Connection.String(),
		"turn:       " + st.Turn.String(),
		"played:     " + cli.FormatBytes(v.played.Load()),
	}
	if replyIn > 0 {
		session = append(session, "reply in:   "+cli.FormatDuration(replyIn))
	}
	if st.LastError != nil {
		session = append(session, "last error: "+st.LastError.Error())
	}

	sections := []cli.Section{
		{Label: "Session", Content: func() []string { return session }},
		{Label: "Transcript", Content: func() []string { return history }},
	}
	if v.logs != nil {
		sections = append(sections, cli.Section{Label: "Logs", Content: v.logs.Lines})
	}
	return cli.Frame{
		Styles:   v.styles,
		Title:    v.title,
		Status:   status,
		Alert:    alert,
		Sections: sections,
		Help:     talkHelp,
	}
}

// render draws the frame for a width x height terminal, from the top left.
func (v *talkView) render(width, height int) string {
	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	b.WriteString(v.frame().Render(width, height))
	return b.String()
}
