package server

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// StartWatch watches the file store for document files written by anything
// other than this server and broadcasts EventChanged for them. The watch is
// in place when StartWatch returns; it ends with ctx.
func (s *Server) StartWatch(ctx context.Context) error {
	if s.files == nil {
		return errors.New("server: watching needs a file store")
	}
	root := s.files.Root()
	if err := os.MkdirAll(root, 0o700); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(w, root); err != nil {
		w.Close()
		return err
	}
	log.WithField("root", root).Info("[SERVER] watching data dir")

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				s.handleFileEvent(w, ev)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.WithError(err).Warn("[SERVER] watch error")
			}
		}
	}()
	return nil
}

func (s *Server) handleFileEvent(w *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			// files may have landed before the directory was watched
			if err := addTree(w, ev.Name); err != nil {
				log.WithError(err).Warn("[SERVER] could not watch new directory")
			}
			filepath.WalkDir(ev.Name, func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					s.fileChanged(path)
				}
				return nil
			})
			return
		}
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		s.fileChanged(ev.Name)
	}
}

func (s *Server) fileChanged(path string) {
	key, ok := s.files.KeyForFile(path)
	if !ok || s.isOwnWrite(path) {
		return
	}
	log.WithField("key", key.Path()).Info("[SERVER] annotations changed on disk")
	s.hub.Broadcast(Event{Type: EventChanged, Key: key.Path(), Server: s.id})
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
