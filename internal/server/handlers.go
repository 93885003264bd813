// Package server serves annotation documents over HTTP and pushes change
// notices to websocket subscribers.
package server

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

// maxDocumentBytes bounds PUT bodies.
const maxDocumentBytes = 8 << 20

// ownWriteWindow is how long a file event is attributed to this server's own
// write of that file.
const ownWriteWindow = 2 * time.Second

type Server struct {
	store store.Store
	files *store.FileStore
	hub   *Hub
	id    string

	upgrader websocket.Upgrader

	mu        sync.Mutex
	revisions map[store.ImageKey]uint64
	ownWrites map[string]time.Time
}

// New serves documents from st. When st is a *store.FileStore the server
// can also watch it for outside changes.
func New(st store.Store) *Server {
	s := &Server{
		store:     st,
		hub:       NewHub(),
		id:        uuid.NewString(),
		revisions: make(map[store.ImageKey]uint64),
		ownWrites: make(map[string]time.Time),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// clinic devices load the gallery from other origins on the LAN
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if fs, ok := st.(*store.FileStore); ok {
		s.files = fs
	}
	return s
}

func (s *Server) Hub() *Hub { return s.hub }

// ID identifies this server instance in events.
func (s *Server) ID() string { return s.id }

func keyFromVars(r *http.Request) (store.ImageKey, error) {
	v := mux.Vars(r)
	k := store.ImageKey{ClinicID: v["clinic"], PatientID: v["patient"], ImageID: v["image"]}
	return k, k.Validate()
}

// GetAnnotationsHandler returns the stored document, or the empty document
// with X-Annotations-Found: false.
func (s *Server) GetAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromVars(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	doc, err := s.store.Load(r.Context(), key)
	if err != nil {
		log.WithError(err).WithField("key", key.Path()).Error("[SERVER] load failed")
		http.Error(w, "could not load annotations", http.StatusInternalServerError)
		return
	}
	found := doc != nil
	if !found {
		empty := state.Empty()
		doc = &empty
	}
	data, err := state.Marshal(*doc)
	if err != nil {
		http.Error(w, "could not encode annotations", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !found {
		w.Header().Set(store.FoundHeader, "false")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// PutAnnotationsHandler stores the posted document and notifies subscribers.
func (s *Server) PutAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	key, err := keyFromVars(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "document too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	doc, err := state.Unmarshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if s.files != nil {
		s.noteOwnWrite(s.files.FilePath(key))
	}
	if err := s.store.Save(r.Context(), key, doc); err != nil {
		log.WithError(err).WithField("key", key.Path()).Error("[SERVER] save failed")
		http.Error(w, "could not save annotations", http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.revisions[key]++
	rev := s.revisions[key]
	s.mu.Unlock()

	log.WithField("key", key.Path()).WithField("revision", rev).Info("[SERVER] annotations saved")
	s.hub.Broadcast(Event{Type: EventSaved, Key: key.Path(), Revision: rev, Server: s.id})
	w.WriteHeader(http.StatusNoContent)
}

// EventsHandler upgrades to a websocket that streams events for one image,
// or for every image when the route has no key.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	var filter string
	if _, ok := mux.Vars(r)["clinic"]; ok {
		key, err := keyFromVars(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter = key.Path()
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied
		log.WithError(err).Warn("[SERVER] websocket upgrade failed")
		return
	}
	go s.hub.serveConn(conn, filter)
}

func (s *Server) noteOwnWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for p, t := range s.ownWrites {
		if now.Sub(t) > ownWriteWindow {
			delete(s.ownWrites, p)
		}
	}
	s.ownWrites[path] = now
}

func (s *Server) isOwnWrite(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ownWrites[path]
	return ok && time.Since(t) <= ownWriteWindow
}
