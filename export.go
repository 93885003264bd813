package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/clinicboard/annotator/internal/export"
	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

type exportCmd struct {
	PDF exportPDFCmd `cmd:"" name:"pdf" help:"Write a PDF report per image."`
	PNG exportPNGCmd `cmd:"" name:"png" help:"Write a PNG per image."`
}

type ExportFlags struct {
	Keys   []string `name:"key" required:"" help:"Image key; repeat to export several images."`
	Image  string   `type:"existingfile" help:"Base image drawn under the annotations (single key only)."`
	Width  float64  `help:"Image width in pixels when no base image is given."`
	Height float64  `help:"Image height in pixels when no base image is given."`
	Title  string   `help:"Report title. Defaults to the image key."`
	Out    string   `type:"path" default:"." help:"Output directory."`
	Jobs   int      `default:"4" help:"Images exported at once."`
}

type exportPDFCmd struct {
	ExportFlags
}

func (c *exportPDFCmd) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, ".pdf", export.PDF, export.Options{})
}

type exportPNGCmd struct {
	ExportFlags
	Crop bool `help:"Crop to the annotated area."`
}

func (c *exportPNGCmd) Run(ctx context.Context, g *Globals) error {
	return c.run(ctx, g, ".png", export.PNG, export.Options{Crop: c.Crop})
}

type writeFunc func(io.Writer, state.Document, export.Options) error

func (f ExportFlags) run(ctx context.Context, g *Globals, ext string, write writeFunc, opts export.Options) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	keys := make([]store.ImageKey, 0, len(f.Keys))
	for _, k := range f.Keys {
		key, err := store.ParseImageKey(k)
		if err != nil {
			return err
		}
		keys = append(keys, key)
	}
	if f.Image != "" && len(keys) > 1 {
		return errors.New("--image needs a single --key")
	}
	opts.ImageWidth, opts.ImageHeight = f.Width, f.Height
	if f.Image != "" {
		var base image.Image
		if base, err = export.LoadImage(f.Image); err != nil {
			return err
		}
		opts.Base = base
	}
	st, err := cfg.Store()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.Out, 0o755); err != nil {
		return err
	}

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(max(f.Jobs, 1))
	for _, key := range keys {
		grp.Go(func() error {
			doc, err := st.Load(ctx, key)
			if err != nil {
				return err
			}
			if doc == nil {
				log.WithField("key", key.Path()).Warn("[EXPORT] nothing stored, exporting the bare image")
				empty := state.Empty()
				doc = &empty
			}
			o := opts
			if o.Title = f.Title; o.Title == "" {
				o.Title = key.Path()
			}
			out := filepath.Join(f.Out, fileName(key)+ext)
			if err := writeFile(out, func(w io.Writer) error { return write(w, *doc, o) }); err != nil {
				return fmt.Errorf("export %s: %w", key.Path(), err)
			}
			log.WithField("file", out).Info("[EXPORT] written")
			return nil
		})
	}
	return grp.Wait()
}

func fileName(k store.ImageKey) string {
	return strings.Join([]string{k.ClinicID, k.PatientID, k.ImageID}, "_")
}

// writeFile writes through fn and removes the file again when fn fails.
func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
