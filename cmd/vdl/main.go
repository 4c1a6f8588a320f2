package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grouprk/vdl/internal/core/config"
	"github.com/grouprk/vdl/internal/core/gateway"
	"github.com/grouprk/vdl/internal/core/version"
	"github.com/grouprk/vdl/internal/delivery"
	"github.com/grouprk/vdl/internal/server"
	"github.com/grouprk/vdl/internal/tui"
)

const usage = `vdl - video download gateway

Usage:
  vdl serve [-port N] [-backend URL]
  vdl get [-format ID] [-out DIR] [-y] [-plain] <url>
  vdl token
  vdl config get <key>
  vdl config set <key> <value>
  vdl version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.LoadOrDefault()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(cfg, os.Args[2:])
	case "get":
		err = runGet(cfg, os.Args[2:])
	case "token":
		err = runToken(cfg)
	case "config":
		err = runConfig(cfg, os.Args[2:])
	case "version":
		fmt.Println(version.Version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", cfg.Server.Port, "listen port")
	backendURL := fs.String("backend", cfg.Backend.BaseURL, "extraction backend base URL")
	fs.Parse(args)

	cfg.Server.Port = *port
	cfg.Backend.BaseURL = *backendURL

	if !config.Exists() {
		log.Printf("No config file at %s, using defaults", config.Path())
	}

	srv := server.NewServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		log.Printf("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}

func runGet(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	formatID := fs.String("format", "", "format id to download instead of the default")
	outDir := fs.String("out", cfg.Client.OutputDir, "output directory")
	yes := fs.Bool("y", false, "download the selected format without asking")
	plain := fs.Bool("plain", false, "no interactive UI")
	fs.Parse(args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	engine := delivery.NewEngine(
		gateway.New(cfg.Client.GatewayURL, cfg.Client.Token),
		delivery.HTTPFetcher{},
		delivery.FileSink{Dir: *outDir},
		delivery.SystemBrowser{},
	)

	if *plain {
		return getPlain(ctx, engine, fs.Arg(0), *formatID)
	}

	state, err := tui.Run(ctx, engine, tui.Options{URL: fs.Arg(0), FormatID: *formatID, Yes: *yes})
	if err != nil {
		return err
	}
	if state.Error != "" {
		return errors.New(state.Error)
	}
	return nil
}

func getPlain(ctx context.Context, engine *delivery.Engine, url, formatID string) error {
	state := engine.Submit(ctx, delivery.State{URL: url})
	if state.Error != "" {
		return errors.New(state.Error)
	}
	if formatID != "" {
		state = delivery.Reduce(state, delivery.SelectFormat{FormatID: formatID})
		if state.SelectedFormat != formatID {
			return fmt.Errorf("format %s is not available", formatID)
		}
	}
	if !state.CanDownload() {
		return errors.New("no formats available")
	}

	state = engine.Download(ctx, state)
	if state.Error != "" {
		return errors.New(state.Error)
	}
	fmt.Println(tui.DeliveryReport(state.LastDelivery))
	return nil
}

func runToken(cfg *config.Config) error {
	if cfg.Server.APIKey == "" {
		return errors.New("server.api_key is not configured")
	}
	token, err := server.GenerateAPIToken(cfg.Server.APIKey, nil)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}
	fmt.Println(token)
	return nil
}

func runConfig(cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: vdl config get <key> | vdl config set <key> <value>")
	}

	switch args[0] {
	case "get":
		v, err := cfg.Get(args[1])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil
	case "set":
		if len(args) < 3 {
			return errors.New("usage: vdl config set <key> <value>")
		}
		// env overrides must not leak into the file
		stored, err := config.LoadFile()
		if err != nil {
			return err
		}
		if err := stored.Set(args[1], args[2]); err != nil {
			return err
		}
		if err := config.Save(stored); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Printf("%s updated\n", args[1])
		return nil
	}
	return fmt.Errorf("unknown config command: %s", args[0])
}
