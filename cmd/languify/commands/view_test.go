package commands

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/princeofnothin/teste-languify/pkg/cli"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
	"github.com/princeofnothin/teste-languify/pkg/voicesession"
)

func openState(turn voicesession.TurnState) voicesession.State {
	return voicesession.State{
		Turn:       turn,
		Connection: realtime.ConnStatus{State: realtime.StateOpen},
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		name      string
		state     voicesession.State
		want      string
		wantAlert bool
	}{
		{"idle", openState(voicesession.TurnIdle), "ready", false},
		{"capturing", openState(voicesession.TurnCapturing), "recording…", true},
		{"thinking", openState(voicesession.TurnThinking), "thinking…", false},
		{"connecting", voicesession.State{Connection: realtime.ConnStatus{State: realtime.StateConnecting}}, "connecting…", false},
		{"disconnected", voicesession.State{}, "disconnected", false},
		{"failed", voicesession.State{Connection: realtime.ConnStatus{State: realtime.StateFailed, Err: errors.New("refused")}}, "connection failed: refused", true},
		{"failed no error", voicesession.State{Connection: realtime.ConnStatus{State: realtime.StateFailed}}, "connection failed", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, alert := statusText(tt.state)
			if got != tt.want || alert != tt.wantAlert {
				t.Errorf("statusText = (%q, %v), want (%q, %v)", got, alert, tt.want, tt.wantAlert)
			}
		})
	}
}

func TestTalkViewUpdate(t *testing.T) {
	v := newTalkView("languify", nil)

	st := openState(voicesession.TurnThinking)
	if v.update(st) {
		t.Error("state without transcript reported as new")
	}
	st.Transcript = "hello"
	if !v.update(st) {
		t.Error("first transcript not reported")
	}
	if v.update(st) {
		t.Error("repeated transcript reported as new")
	}

	for i := range maxHistory + 5 {
		st.Transcript = fmt.Sprintf("t%d", i)
		v.update(st)
	}
	if len(v.history) != maxHistory {
		t.Fatalf("history len = %d, want %d", len(v.history), maxHistory)
	}
	if v.history[0] != "t5" || v.history[maxHistory-1] != fmt.Sprintf("t%d", maxHistory+4) {
		t.Errorf("history = %v ... %v", v.history[0], v.history[maxHistory-1])
	}
}

func TestTalkViewLine(t *testing.T) {
	v := newTalkView("languify", nil)
	v.update(openState(voicesession.TurnCapturing))
	v.addPlayed(2048)
	if got, want := v.line(), "[recording…] played 2.00 KB"; got != want {
		t.Errorf("line = %q, want %q", got, want)
	}
}

func TestTalkViewFrame(t *testing.T) {
	logs := cli.NewLogWriter(10)
	fmt.Fprintln(logs, "connected")
	v := newTalkView("languify · local", logs)

	st := openState(voicesession.TurnIdle)
	st.Transcript = "hi there"
	st.LastError = errors.New("bad delta")
	v.update(st)

	f := v.frame()
	if f.Status != "ready" || f.Alert {
		t.Errorf("status = %q alert=%v", f.Status, f.Alert)
	}
	if len(f.Sections) != 3 {
		t.Fatalf("sections = %d, want 3", len(f.Sections))
	}
	session := strings.Join(f.Sections[0].Content(), "\n")
	if !strings.Contains(session, "last error: bad delta") {
		t.Errorf("session section = %q", session)
	}
	if got := f.Sections[1].Content(); len(got) != 1 || got[0] != "hi there" {
		t.Errorf("transcript section = %v", got)
	}

	out := v.render(60, 20)
	if !strings.HasPrefix(out, "\033[H\033[2J") {
		t.Error("render does not clear the screen")
	}
	for _, want := range []string{"languify · local", "hi there", "connected"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
}

func TestTalkViewReplyLatency(t *testing.T) {
	now := time.Unix(100, 0)
	v := newTalkView("languify", nil)
	v.now = func() time.Time { return now }

	v.update(openState(voicesession.TurnCapturing))
	v.update(openState(voicesession.TurnThinking))
	now = now.Add(850 * time.Millisecond)
	// A repeated thinking state does not restart the clock.
	v.update(openState(voicesession.TurnThinking))
	now = now.Add(450 * time.Millisecond)

	st := openState(voicesession.TurnIdle)
	st.Transcript = "bonjour"
	v.update(st)

	session := strings.Join(v.frame().Sections[0].Content(), "\n")
	if !strings.Contains(session, "reply in:   1.3s") {
		t.Errorf("session section = %q", session)
	}
}
