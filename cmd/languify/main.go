// Package main is the languify command line: push-to-talk voice sessions
// against a realtime speech endpoint.
//
// Usage:
//
//	languify [flags] <command> [args]
//
// Commands:
//
//	talk      - Run a push-to-talk session (Enter starts and stops a turn)
//	loopback  - Serve a local realtime endpoint that echoes each turn
//	devices   - List audio devices
//	config    - Manage endpoint contexts
//	version   - Show version information
//
// Configuration:
//
//	Contexts are stored in ~/.languify/languify/config.yaml. A .env file in
//	the working directory and LANGUIFY_API_KEY / LANGUIFY_REALTIME_URL
//	override the context.
package main

import (
	"fmt"
	"os"

	"github.com/princeofnothin/teste-languify/cmd/languify/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
