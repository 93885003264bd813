package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/config"
	"github.com/clinicboard/annotator/internal/export"
	lan "github.com/clinicboard/annotator/internal/net"
	"github.com/clinicboard/annotator/internal/server"
	"github.com/clinicboard/annotator/internal/session"
	"github.com/clinicboard/annotator/internal/store"
	"github.com/clinicboard/annotator/internal/ui"
)

type Globals struct {
	Config   string `short:"c" type:"path" help:"TOML config file."`
	LogLevel string `help:"Log level, overrides the config (debug, info, warn, error)."`
}

type CLI struct {
	Globals

	Annotate annotateCmd `cmd:"" help:"Open the annotation editor for one image."`
	Serve    serveCmd    `cmd:"" help:"Serve annotation documents to clinic devices."`
	Discover discoverCmd `cmd:"" help:"List annotation servers on the local network."`
	Export   exportCmd   `cmd:"" help:"Export annotations as a PDF report or PNG."`
}

// config loads the config file and applies the global flags.
func (g *Globals) config() (config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return cfg, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if err := cfg.Log.SetupLogging(); err != nil {
		return cfg, fmt.Errorf("log level: %w", err)
	}
	return cfg, nil
}

type annotateCmd struct {
	Key      string        `required:"" help:"Image key, clinics/<clinic>/patients/<patient>/images/<image>."`
	Image    string        `type:"existingfile" help:"Image shown under the annotations."`
	Server   string        `help:"Annotation server URL, overrides the config."`
	Discover bool          `help:"Use the first annotation server found on the local network."`
	Timeout  time.Duration `default:"3s" help:"How long to look for servers with --discover."`
}

func (c *annotateCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	key, err := store.ParseImageKey(c.Key)
	if err != nil {
		return err
	}
	if c.Server != "" {
		cfg.ServerURL = c.Server
	}
	if c.Discover {
		servers, err := lan.Browse(c.Timeout)
		if err != nil {
			return err
		}
		if len(servers) == 0 {
			return errors.New("no annotation server found on the local network")
		}
		log.WithField("server", servers[0].Addr).Info("[MDNS] using discovered server")
		cfg.ServerURL = servers[0].URL()
	}

	st, err := cfg.Store()
	if err != nil {
		return err
	}
	s, err := session.Open(ctx, st, key, cfg.EngineOptions()...)
	if err != nil {
		return err
	}
	var base image.Image
	if c.Image != "" {
		if base, err = export.LoadImage(c.Image); err != nil {
			return err
		}
	}
	ui.RunApp(ctx, "Annotate "+key.ImageID, s, base)
	return nil
}

type serveCmd struct {
	Listen    string `help:"Listen address, overrides the config."`
	DataDir   string `type:"path" help:"Data directory, overrides the config."`
	Advertise bool   `help:"Announce the server over mDNS."`
}

func (c *serveCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Listen = c.Listen
	}
	if c.DataDir != "" {
		cfg.DataDir = c.DataDir
	}
	fs, err := cfg.FileStore()
	if err != nil {
		return err
	}

	srv := server.New(fs)
	if err := srv.StartWatch(ctx); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	if c.Advertise || cfg.Advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		m, err := lan.Advertise(port, cfg.ServiceName)
		if err != nil {
			ln.Close()
			return err
		}
		defer m.Shutdown()
	}
	return srv.Serve(ctx, ln)
}

type discoverCmd struct {
	Timeout time.Duration `default:"3s" help:"How long to listen for answers."`
}

func (c *discoverCmd) Run(g *Globals) error {
	if _, err := g.config(); err != nil {
		return err
	}
	servers, err := lan.Browse(c.Timeout)
	if err != nil {
		return err
	}
	if len(servers) == 0 {
		fmt.Fprintln(os.Stderr, "no annotation servers found")
		return nil
	}
	for _, s := range servers {
		fmt.Printf("%s\t%s\n", s.Addr, s.Instance)
	}
	return nil
}

func main() {
	var cli CLI
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	k := kong.Parse(&cli,
		kong.Name("annotator"),
		kong.Description("Annotate clinic images and serve the annotations."),
		kong.UsageOnError(),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	err := k.Run(&cli.Globals)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	k.FatalIfErrorf(err)
}
