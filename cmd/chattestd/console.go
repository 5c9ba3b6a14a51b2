package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/danmuck/chattest/internal/room"
	"github.com/rs/zerolog/log"
)

const consoleRefresh = 100 * time.Millisecond

// runConsole prints new room log entries to out and sends each line read
// from in as an admin announcement. It returns when ctx ends.
func runConsole(ctx context.Context, svc *room.Service, in io.Reader, out io.Writer) {
	cfg := svc.Config()
	fmt.Fprintf(out, "  Room name: %s\n  Admin: %s\n", cfg.Room, cfg.Admin)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			if err := svc.Announce(line); err != nil {
				log.Warn().Err(err).Msg("chattestd.console announce rejected")
			}
		}
	}()

	ticker := time.NewTicker(consoleRefresh)
	defer ticker.Stop()
	next := 0
	for {
		for _, e := range svc.Log().Since(next) {
			fmt.Fprintln(out, e.String())
			next = e.Seq + 1
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
