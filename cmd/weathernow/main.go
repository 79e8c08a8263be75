// Package main is the interactive terminal front end of WeatherNow.
//
// Type a city name to search. When several cities match, type the number of
// one to see its weather, or press Enter to take the first. A single match is
// shown right away. Type :q to quit.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	_ "time/tzdata"

	"weathernow/internal/config"
	"weathernow/internal/external"
	"weathernow/internal/forecasts"
	"weathernow/internal/geocoding"
	"weathernow/internal/types"
	"weathernow/internal/widget"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// stdout belongs to the screen.
	logger := newLogger(os.Stderr, cfg.LogLevel)

	reg := external.NewClientRegistry(cfg, logger)
	cities := geocoding.NewService(reg.Geocoding, cfg.Geocoding.ResultCount, cfg.Geocoding.Language, logger)
	weather := forecasts.NewService(reg.Forecast, types.RealClock{}, cfg.Forecast.WindowHours, logger)
	ctrl := widget.NewController(cities, weather, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return session(ctx, ctrl, os.Stdin, newScreen(os.Stdout))
}

// session reads commands until :q, end of input or ctx is cancelled. Each
// command runs on its own goroutine so the prompt stays live while a lookup
// is outstanding; the controller drops whichever response has been
// superseded.
func session(ctx context.Context, ctrl *widget.Controller, in io.Reader, scr *screen) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsubscribe := ctrl.Subscribe(scr.render)
	defer unsubscribe()

	scr.render(ctrl.State())

	lines, readErr := scanLines(ctx, in)

	var wg sync.WaitGroup
	defer func() {
		ctrl.Close()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			cmd := parseCommand(line)
			if cmd.kind == cmdQuit {
				return nil
			}
			wg.Go(func() {
				if err := dispatch(ctx, ctrl, cmd); err != nil {
					scr.notice(err)
				}
			})
		}
	}
}

// scanLines feeds in line by line until end of input or ctx is done. lines
// is closed when the reader stops; readErr carries the scanner error, if the
// input ran out first.
func scanLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()
	return lines, readErr
}

type commandKind int

const (
	cmdSearch commandKind = iota
	cmdSelect
	cmdConfirm
	cmdQuit
)

type command struct {
	kind  commandKind
	query string
	// index is zero-based; the user types the one-based list number.
	index int
}

func parseCommand(line string) command {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return command{kind: cmdConfirm}
	case line == ":q" || line == ":quit":
		return command{kind: cmdQuit}
	}
	if n, err := strconv.Atoi(line); err == nil {
		return command{kind: cmdSelect, index: n - 1}
	}
	return command{kind: cmdSearch, query: line}
}

func dispatch(ctx context.Context, ctrl *widget.Controller, cmd command) error {
	switch cmd.kind {
	case cmdSearch:
		return ctrl.Search(ctx, cmd.query)
	case cmdSelect:
		return ctrl.Select(ctx, cmd.index)
	case cmdConfirm:
		return ctrl.Confirm(ctx)
	}
	return nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}
