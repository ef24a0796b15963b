package commands

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/princeofnothin/teste-languify/pkg/realtime/loopback"
)

var (
	loopbackAddr  string
	loopbackDelta time.Duration
)

var loopbackCmd = &cobra.Command{
	Use:   "loopback",
	Short: "Serve a local realtime endpoint that echoes each turn",
	Long: `Serve a realtime endpoint on the local machine.

Every committed turn is streamed back as audio deltas followed by a
transcript describing its length, so talk can be tried without a backend.

Example:
  languify loopback --addr 127.0.0.1:8089
  languify talk --url ws://127.0.0.1:8089/v1/realtime`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(cmd.ErrOrStderr())
		srv := loopback.New(&loopback.Config{
			DeltaDuration: loopbackDelta,
			Logger:        log,
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, ctx := errgroup.WithContext(ctx)

		ready := make(chan net.Addr, 1)
		g.Go(func() error {
			return srv.ListenAndServe(ctx, loopbackAddr, ready)
		})
		g.Go(func() error {
			select {
			case addr := <-ready:
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on ws://%s%s\n", addr, loopback.DefaultPath)
			case <-ctx.Done():
			}
			return nil
		})
		return g.Wait()
	},
}

func init() {
	loopbackCmd.Flags().StringVar(&loopbackAddr, "addr", "127.0.0.1:8089", "listen address")
	loopbackCmd.Flags().DurationVar(&loopbackDelta, "delta", loopback.DefaultDeltaDuration, "audio length per response delta")
}
