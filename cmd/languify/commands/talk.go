package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/princeofnothin/teste-languify/pkg/audio/chunker"
	"github.com/princeofnothin/teste-languify/pkg/audio/portaudio"
	"github.com/princeofnothin/teste-languify/pkg/cli"
	"github.com/princeofnothin/teste-languify/pkg/realtime"
	"github.com/princeofnothin/teste-languify/pkg/realtime/loopback"
	"github.com/princeofnothin/teste-languify/pkg/voicesession"
)

var (
	talkProfile     string
	talkURL         string
	talkLoopback    bool
	talkPlain       bool
	talkMetricsAddr string
)

// errQuit ends a session on user request.
var errQuit = errors.New("quit")

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Run a push-to-talk session",
	Long: `Run a push-to-talk voice session on the default microphone and speaker.

Press Enter to start recording and Enter again to send the turn; the reply
is played as it streams in. Type r and Enter to reconnect after a failure,
q and Enter (or Ctrl-C) to quit.

The endpoint comes from the current context (or -c), overridden by
LANGUIFY_REALTIME_URL / LANGUIFY_API_KEY and --url. With --loopback an
in-process echo server is used instead.

Examples:
  languify talk
  languify -c local talk -f profile.yaml
  languify talk --loopback --metrics-addr :9090`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTalk(cmd)
	},
}

func init() {
	talkCmd.Flags().StringVarP(&talkProfile, "file", "f", "", "session profile (YAML or JSON, - for stdin)")
	talkCmd.Flags().StringVar(&talkURL, "url", "", "realtime WebSocket URL, overrides the context")
	talkCmd.Flags().BoolVar(&talkLoopback, "loopback", false, "talk to an in-process loopback server")
	talkCmd.Flags().BoolVar(&talkPlain, "plain", false, "print status lines instead of the full-screen view")
	talkCmd.Flags().StringVar(&talkMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
}

func runTalk(cmd *cobra.Command) error {
	prof, err := loadProfile(talkProfile)
	if err != nil {
		return err
	}

	interactive := !talkPlain && term.IsTerminal(int(os.Stdout.Fd()))
	var logs *cli.LogWriter
	logOut := cmd.ErrOrStderr()
	if interactive {
		logs = cli.NewLogWriter(200)
		logOut = logs
		if f, err := openTalkLog(); err == nil {
			defer f.Close()
			logOut = io.MultiWriter(logs, f)
		}
	}
	log := newLogger(logOut)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	var ep *endpoint
	if talkLoopback {
		ep, err = startLoopback(ctx, g, log)
	} else {
		var cfg *cli.Config
		if cfg, err = getConfig(); err == nil {
			ep, err = resolveEndpoint(cfg, contextName, talkURL, os.Getenv)
		}
	}
	if err != nil {
		stop()
		return errors.Join(err, ignoreQuit(g.Wait()))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if talkMetricsAddr != "" {
		g.Go(func() error { return serveMetrics(ctx, talkMetricsAddr, reg, log) })
	}

	tcfg := ep.transportConfig(prof)
	tcfg.Logger = log
	tr := realtime.NewTransport(tcfg)

	ccfg := prof.chunkerConfig()
	ccfg.Logger = log
	ch := chunker.New(prof.opener(), ccfg)
	defer portaudio.Terminate()

	title := "languify"
	if ep.Context != "" {
		title += " · " + ep.Context
	}
	view := newTalkView(title, logs)

	retry := ep.Retry
	coord := voicesession.New(ch, tr,
		voicesession.WithLogger(log),
		voicesession.WithMetrics(voicesession.NewMetrics(reg)),
		voicesession.WithAudioObserver(view.addPlayed),
		voicesession.WithConnect(func(ctx context.Context, t voicesession.Transport) error {
			return realtime.ConnectWithRetry(ctx, t, retry, log)
		}),
	)
	defer coord.Stop()

	log.Info("talk session", "url", ep.URL, "context", ep.Context, "interactive", interactive)

	runControls(ctx, g, cmd.InOrStdin(), coord, log)
	g.Go(func() error {
		return renderLoop(ctx, coord.Store(), view, logs, interactive, cmd.OutOrStdout())
	})

	err = ignoreQuit(g.Wait())
	if stopErr := coord.Stop(); stopErr != nil {
		log.Warn("stop session", "error", stopErr)
	}
	if !interactive {
		fmt.Fprintln(cmd.OutOrStdout(), view.line())
	}
	return err
}

func ignoreQuit(err error) error {
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openTalkLog() (*os.File, error) {
	paths, err := cli.NewPaths(appName)
	if err != nil {
		return nil, err
	}
	path, err := paths.LogPath("talk.log")
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
}

// startLoopback runs a loopback server on a free local port for the life of
// g and returns its endpoint.
func startLoopback(ctx context.Context, g *errgroup.Group, log *slog.Logger) (*endpoint, error) {
	srv := loopback.New(&loopback.Config{Logger: log.With("component", "loopback")})
	ready := make(chan net.Addr, 1)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, "127.0.0.1:0", ready)
	})
	select {
	case addr := <-ready:
		return &endpoint{
			Context:     "loopback",
			URL:         "ws://" + addr.String() + loopback.DefaultPath,
			DialTimeout: realtime.DefaultDialTimeout,
			Retry:       realtime.RetryPolicy{MaxAttempts: 3},
		}, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("loopback server did not start: %w", context.Cause(ctx))
	}
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("serving metrics", "addr", addr, "path", "/metrics")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}

// session is the part of the coordinator driven by the keyboard.
type session interface {
	Start(ctx context.Context) error
	Press() error
	Release() error
	Turn() voicesession.TurnState
}

// runControls connects s and reads commands from in, both on g. A failed
// connect leaves the session up in the Failed state so that r can retry;
// only the control loop ends the group.
func runControls(ctx context.Context, g *errgroup.Group, in io.Reader, s session, log *slog.Logger) {
	g.Go(func() error {
		connect(ctx, s, log)
		return nil
	})
	g.Go(func() error {
		return controlLoop(ctx, in, s, log)
	})
}

func connect(ctx context.Context, s session, log *slog.Logger) {
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		log.Error("connect failed, type r to retry", "error", err)
	}
}

// controlLoop maps input lines to session operations until q, end of input
// or ctx is done.
func controlLoop(ctx context.Context, in io.Reader, s session, log *slog.Logger) error {
	lines := make(chan string)
	// The scanner cannot be interrupted; it is abandoned when ctx ends.
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- strings.TrimSpace(sc.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			switch strings.ToLower(line) {
			case "":
				toggle(s, log)
			case "r", "reconnect":
				go connect(ctx, s, log)
			case "q", "quit", "exit":
				return errQuit
			default:
				log.Info("unknown input, press enter to talk or q to quit", "input", line)
			}
		}
	}
}

func toggle(s session, log *slog.Logger) {
	if s.Turn() == voicesession.TurnCapturing {
		if err := s.Release(); err != nil {
			log.Warn("release", "error", err)
		}
		return
	}
	if err := s.Press(); err != nil {
		log.Warn("press", "error", err)
	}
}

// renderLoop redraws on every state change and, when interactive, on new
// log lines and terminal resizes.
func renderLoop(ctx context.Context, store *voicesession.Store, v *talkView, logs *cli.LogWriter, interactive bool, out io.Writer) error {
	states, cancel := store.Subscribe()
	defer cancel()

	var logUpdates <-chan struct{}
	if logs != nil {
		logUpdates = logs.Updates()
	}
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	lastLine := ""
	draw := func() {
		if interactive {
			w, h, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				w, h = 80, 24
			}
			fmt.Fprint(out, v.render(w, h))
			return
		}
		if line := v.line(); line != lastLine {
			lastLine = line
			fmt.Fprintln(out, line)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case st, ok := <-states:
			if !ok {
				return nil
			}
			if v.update(st) && !interactive {
				fmt.Fprintf(out, "> %s\n", st.Transcript)
			}
			draw()
		case <-logUpdates:
			draw()
		case <-tick.C:
			if interactive {
				draw()
			}
		}
	}
}
