package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/chattest/internal/client"
	"github.com/danmuck/chattest/internal/config"
	"github.com/danmuck/chattest/internal/logging"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "cmd/chattest/client.toml", "path to client.toml")
	server := flag.String("server", "", "server address, host or host:port")
	name := flag.String("name", "", "display name")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: chattest [flags] [members]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	_ = godotenv.Load()
	logging.ConfigureRuntime()

	cfg, err := config.LoadClientConfig(*configPath)
	if err != nil {
		fail(err)
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *name != "" {
		cfg.Name = *name
	}
	color.Enable = !cfg.NoColor

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "":
		err = chat(ctx, cfg, os.Stdin, os.Stdout)
	case "members":
		err = members(ctx, cfg.AdminURL, os.Stdout)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "chattest: %v\n", err)
	os.Exit(1)
}

var (
	adminStyle = color.New(color.FgYellow)
	peerStyle  = color.New(color.FgGreen)
	ownStyle   = color.New(color.FgGray)
)

// chat joins the room and runs the line-mode conversation until stdin
// closes, ctx ends or the server goes away.
func chat(ctx context.Context, cfg config.ClientConfig, in io.Reader, out io.Writer) error {
	input := bufio.NewScanner(in)
	prompt := func(text string) (string, bool) {
		fmt.Fprint(out, text)
		if !input.Scan() {
			return "", false
		}
		return strings.TrimSpace(input.Text()), true
	}

	if strings.TrimSpace(cfg.Name) == "" {
		v, ok := prompt("  What's your name?\n > ")
		if !ok {
			return nil
		}
		cfg.Name = v
	}

	joinCfg := client.DefaultConfig()
	joinCfg.Addr = cfg.Server
	joinCfg.Name = cfg.Name
	joinCfg.DialAttempts = cfg.DialAttempts
	s, err := client.Join(ctx, joinCfg, func(_ context.Context, rejected string) (string, error) {
		v, ok := prompt(fmt.Sprintf("  There is already someone called %q!\n  Write a new name\n > ", rejected))
		if !ok {
			return "", io.EOF
		}
		return v, nil
	})
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintf(out, "  Connected to room %s\n  The admin is %s\n", s.Room(), s.Admin())

	lines := make(chan string)
	go func() {
		defer close(lines)
		for input.Scan() {
			select {
			case lines <- input.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	adminPrefix := "  " + s.Admin() + "# "
	err = s.Pump(ctx, lines, func(line string) {
		switch {
		case strings.HasPrefix(line, adminPrefix):
			line = adminStyle.Render(line)
		case strings.Contains(line, "> "):
			line = peerStyle.Render(line)
		default:
			line = ownStyle.Render(line)
		}
		fmt.Fprintln(out, line)
	})
	if errors.Is(err, client.ErrConnectionLost) {
		fmt.Fprintln(out, "  Connection lost!")
	}
	return err
}
