package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/clinicboard/annotator/internal/state"
	"github.com/clinicboard/annotator/internal/store"
)

const docPath = "/clinics/c1/patients/p1/images/img1/annotations"

var key = store.ImageKey{ClinicID: "c1", PatientID: "p1", ImageID: "img1"}

func newTestServer(t *testing.T, st store.Store) (*Server, *httptest.Server) {
	t.Helper()
	s := New(st)
	ts := httptest.NewServer(NewRouter(s))
	t.Cleanup(ts.Close)
	return s, ts
}

func sampleJSON(t *testing.T) []byte {
	doc := state.Empty().WithText(state.TextLabel{ID: "t1", Text: "Cavity", X: 0.5, Y: 0.3, Color: "#FFD700"})
	data, err := state.Marshal(doc)
	require.NoError(t, err)
	return data
}

func put(t *testing.T, url string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, store.NewMemoryStore())
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK\n", string(body))
}

func TestGetMissingReturnsEmptyDocument(t *testing.T) {
	_, ts := newTestServer(t, store.NewMemoryStore())
	resp, err := http.Get(ts.URL + docPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "false", resp.Header.Get(store.FoundHeader))
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, `{"version":1,"strokes":[],"texts":[]}`, string(body))
}

func TestPutThenGet(t *testing.T) {
	mem := store.NewMemoryStore()
	_, ts := newTestServer(t, mem)
	want := sampleJSON(t)

	resp := put(t, ts.URL+docPath, want)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := http.Get(ts.URL + docPath)
	require.NoError(t, err)
	defer got.Body.Close()
	require.Empty(t, got.Header.Get(store.FoundHeader))
	body, _ := io.ReadAll(got.Body)
	require.Equal(t, string(want), string(body))

	raw, ok := mem.Raw(key)
	require.True(t, ok)
	require.Equal(t, string(want), string(raw))
}

func TestPutKeepsNewerSchema(t *testing.T) {
	_, ts := newTestServer(t, store.NewFileStore(t.TempDir()))
	want := `{"version":2,"strokes":[],"texts":[{"id":"t1","text":"Crown","x":0.5,"y":0.5,"color":"#FFD700"}],"layers":[{"name":"caries"}]}`

	resp := put(t, ts.URL+docPath, []byte(want))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := http.Get(ts.URL + docPath)
	require.NoError(t, err)
	defer got.Body.Close()
	body, _ := io.ReadAll(got.Body)
	require.Equal(t, want, string(body))
}

func TestPutRejectsBadInput(t *testing.T) {
	_, ts := newTestServer(t, store.NewMemoryStore())

	resp := put(t, ts.URL+docPath, []byte(`{"strokes":`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = put(t, ts.URL+"/clinics/a%5Cb/patients/p/images/i/annotations", sampleJSON(t))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoteStoreAgainstServer(t *testing.T) {
	_, ts := newTestServer(t, store.NewFileStore(t.TempDir()))
	rs := store.NewRemoteStore(ts.URL)
	ctx := context.Background()

	doc, err := rs.Load(ctx, key)
	require.NoError(t, err)
	require.Nil(t, doc)

	want := state.Empty().WithStroke(state.Stroke{ID: "s", Color: "#FF0000", Width: 3, Points: []state.Point{{X: 0.25, Y: 0.75}}})
	require.NoError(t, rs.Save(ctx, key, want))
	doc, err = rs.Load(ctx, key)
	require.NoError(t, err)
	require.Equal(t, want, *doc)
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Len() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestEventsAfterSave(t *testing.T) {
	s, ts := newTestServer(t, store.NewMemoryStore())
	conn := dial(t, ts, "/clinics/c1/patients/p1/images/img1/events")
	all := dial(t, ts, "/events")
	waitSubscribers(t, s.Hub(), 2)

	put(t, ts.URL+"/clinics/c1/patients/p1/images/other/annotations", sampleJSON(t))
	put(t, ts.URL+docPath, sampleJSON(t))
	put(t, ts.URL+docPath, sampleJSON(t))

	var ev Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, Event{Type: EventSaved, Key: key.Path(), Revision: 1, Server: s.ID()}, ev)
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, uint64(2), ev.Revision)

	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, all.ReadJSON(&ev))
	require.Equal(t, "clinics/c1/patients/p1/images/other", ev.Key)
}

func TestHubDropsClosedSubscription(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe("")
	require.Equal(t, 1, h.Len())
	cancel()
	cancel()
	require.Equal(t, 0, h.Len())
	_, ok := <-ch
	require.False(t, ok)

	slow, _ := h.Subscribe("k")
	for i := 0; i < sendBuffer+1; i++ {
		h.Broadcast(Event{Type: EventSaved, Key: "k"})
	}
	require.Equal(t, 0, h.Len())
	n := 0
	for range slow {
		n++
	}
	require.Equal(t, sendBuffer, n)
}

func TestWatchReportsOutsideWrites(t *testing.T) {
	root := t.TempDir()
	fs := store.NewFileStore(root)
	s, ts := newTestServer(t, fs)
	require.NoError(t, os.MkdirAll(filepath.Dir(fs.FilePath(key)), 0o700))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartWatch(ctx))
	events, stop := s.Hub().Subscribe("")
	defer stop()

	// a write through the server is announced once, as saved
	put(t, ts.URL+docPath, sampleJSON(t))
	ev := next(t, events)
	require.Equal(t, EventSaved, ev.Type)

	// a write by another process
	other := store.NewFileStore(root)
	otherKey := store.ImageKey{ClinicID: "c1", PatientID: "p1", ImageID: "img2"}
	require.NoError(t, other.Save(ctx, otherKey, state.Empty()))
	ev = next(t, events)
	require.Equal(t, EventChanged, ev.Type)
	require.Equal(t, otherKey.Path(), ev.Key)
}

func next(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
	}
	return Event{}
}

func TestWatchNeedsFileStore(t *testing.T) {
	require.Error(t, New(store.NewMemoryStore()).StartWatch(context.Background()))
}
