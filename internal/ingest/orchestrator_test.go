package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Khaja-s/iptv-player/internal/store"
	"github.com/Khaja-s/iptv-player/internal/xtream"
)

const samplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-logo="http://logo/1.png" group-title="News",News One
http://stream.example/news1
#EXTINF:-1 group-title="Sports",Sports One
http://stream.example/sports1
`

// guideServer serves the playlist and provider fixtures the tests hit.
// /slow.m3u blocks until the request is cancelled; fetches counts every
// /good.m3u download so refresh tests can see the re-fetch.
type guideServer struct {
	*httptest.Server
	fetches  atomic.Int64
	slowHit  chan struct{}
	released chan struct{}
}

func newGuideServer(t *testing.T) *guideServer {
	gs := &guideServer{
		slowHit:  make(chan struct{}, 8),
		released: make(chan struct{}),
	}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/good.m3u":
			gs.fetches.Add(1)
			fmt.Fprint(w, samplePlaylist)
		case "/slow.m3u":
			gs.slowHit <- struct{}{}
			select {
			case <-r.Context().Done():
			case <-gs.released:
				fmt.Fprint(w, samplePlaylist)
			}
		case "/empty.m3u":
			// 200 with nothing in it
		case "/noise.m3u":
			fmt.Fprint(w, "<html>not a playlist</html>")
		case "/error.m3u":
			w.WriteHeader(http.StatusInternalServerError)
		case "/player_api.php":
			switch r.URL.Query().Get("action") {
			case "":
				fmt.Fprint(w, `{"user_info":{"username":"u","status":"Active"}}`)
			case "get_live_categories":
				fmt.Fprint(w, `[{"category_id":"1","category_name":"News"}]`)
			case "get_live_streams":
				fmt.Fprint(w, `[{"stream_id":9,"name":"Provider One","category_id":"1"}]`)
			}
		default:
			t.Errorf("unexpected request path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gs.Close)
	return gs
}

func newTestOrchestrator(srv *guideServer, kv store.KV) *Orchestrator {
	var st *store.Store
	if kv != nil {
		st = store.New(kv)
	}
	client := srv.Client()
	return New(client, xtream.NewClient(client), st, nil)
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v is not a classified ingest error", err)
	}
	return e.Kind
}

func TestLoadFromURL_commit(t *testing.T) {
	srv := newGuideServer(t)
	kv := store.NewMemoryKV()
	orch := newTestOrchestrator(srv, kv)

	if err := orch.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatal(err)
	}
	st := orch.Status()
	if st.State != StateReady || st.Err != nil || st.Count != 2 {
		t.Fatalf("status = %+v", st)
	}
	channels, categories := orch.Guide().Snapshot()
	if channels[0].Name != "News One" || channels[1].Name != "Sports One" {
		t.Errorf("channels = %+v", channels)
	}
	if len(categories) != 2 {
		t.Errorf("categories = %v", categories)
	}

	orch.Flush()
	ctx := context.Background()
	s := store.New(kv)
	cached, _ := s.Channels(ctx)
	if len(cached) != 2 {
		t.Errorf("persisted %d channels; want 2", len(cached))
	}
	if mode, _ := s.Mode(ctx); mode != store.ModePlaylist {
		t.Errorf("persisted mode = %q", mode)
	}
	if u, _ := s.PlaylistURL(ctx); u != srv.URL+"/good.m3u" {
		t.Errorf("persisted url = %q", u)
	}
	md, _ := s.Metadata(ctx)
	if md == nil || md.Count != 2 || md.Source != srv.URL+"/good.m3u" {
		t.Errorf("persisted metadata = %+v", md)
	}
}

func TestLoadFromURL_failures(t *testing.T) {
	srv := newGuideServer(t)
	cases := []struct {
		path string
		kind Kind
	}{
		{"/noise.m3u", KindInvalidContent},
		{"/empty.m3u", KindInvalidContent},
		{"/error.m3u", KindHTTPStatus},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			orch := newTestOrchestrator(srv, nil)
			err := orch.LoadFromURL(srv.URL + c.path)
			if got := kindOf(t, err); got != c.kind {
				t.Errorf("kind = %v; want %v", got, c.kind)
			}
			if st := orch.Status(); st.State != StateFailed || st.Err == nil {
				t.Errorf("status = %+v", st)
			}
		})
	}
}

func TestLoadFromURL_httpStatusCarried(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)
	err := orch.LoadFromURL(srv.URL + "/error.m3u")
	var e *Error
	if !errors.As(err, &e) || e.Status != http.StatusInternalServerError {
		t.Fatalf("err = %+v; want status 500 carried", err)
	}
}

func TestLoadFromURL_rejectsNonHTTP(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)
	for _, u := range []string{"file:///etc/passwd", "ftp://host/list.m3u", "no scheme"} {
		err := orch.LoadFromURL(u)
		if got := kindOf(t, err); got != KindInvalidContent {
			t.Errorf("LoadFromURL(%q): kind = %v; want %v", u, got, KindInvalidContent)
		}
	}
}

func TestLoadFromURL_unreachable(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)
	err := orch.LoadFromURL("http://127.0.0.1:1/list.m3u")
	if got := kindOf(t, err); got != KindUnreachable {
		t.Errorf("kind = %v; want %v", got, KindUnreachable)
	}
}

func TestLoadFromURL_timeout(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)
	orch.SetPlaylistTimeout(0) // ignored
	if orch.playlistTimeout != PlaylistTimeout {
		t.Fatalf("playlistTimeout = %v after zero override", orch.playlistTimeout)
	}
	orch.SetPlaylistTimeout(50 * time.Millisecond)
	err := orch.LoadFromURL(srv.URL + "/slow.m3u")
	if got := kindOf(t, err); got != KindTimeout {
		t.Errorf("kind = %v; want %v", got, KindTimeout)
	}
	<-srv.slowHit
}

func TestCancel_keepsCommittedData(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)
	if err := orch.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- orch.LoadFromURL(srv.URL + "/slow.m3u")
	}()
	<-srv.slowHit
	orch.Cancel()
	err := <-done
	if got := kindOf(t, err); got != KindCancelled {
		t.Errorf("kind = %v; want %v", got, KindCancelled)
	}
	st := orch.Status()
	if st.State != StateCancelled {
		t.Errorf("state = %v; want %v", st.State, StateCancelled)
	}
	if st.Count != 2 {
		t.Errorf("count = %d; cancel must not discard committed data", st.Count)
	}
}

func TestSupersession_newLoadWins(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)

	first := make(chan error, 1)
	go func() {
		first <- orch.LoadFromURL(srv.URL + "/slow.m3u")
	}()
	<-srv.slowHit

	if err := orch.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatal(err)
	}
	err := <-first
	if got := kindOf(t, err); got != KindCancelled {
		t.Errorf("superseded load kind = %v; want %v", got, KindCancelled)
	}
	st := orch.Status()
	if st.State != StateReady || st.Count != 2 {
		t.Errorf("status after supersession = %+v", st)
	}
}

func TestRefresh(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)

	err := orch.Refresh()
	if got := kindOf(t, err); got != KindInvalidContent {
		t.Errorf("refresh with no source: kind = %v", got)
	}

	if err := orch.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatal(err)
	}
	if err := orch.Refresh(); err != nil {
		t.Fatal(err)
	}
	if n := srv.fetches.Load(); n != 2 {
		t.Errorf("fetches = %d; refresh should re-download", n)
	}
}

func TestLoadFromURL_providerRouting(t *testing.T) {
	srv := newGuideServer(t)
	orch := newTestOrchestrator(srv, nil)

	// A get.php link is a provider API URL in disguise.
	err := orch.LoadFromURL(srv.URL + "/get.php?username=u&password=p")
	if err != nil {
		t.Fatal(err)
	}
	channels, _ := orch.Guide().Snapshot()
	if len(channels) != 1 || channels[0].Name != "Provider One" || channels[0].Group != "News" {
		t.Errorf("channels = %+v", channels)
	}
	if src := orch.lastGood; src.Mode != store.ModeProvider || src.Creds.Username != "u" {
		t.Errorf("lastGood = %+v", src)
	}
}

func TestLoadFromProvider_authFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"user_info":{"username":"u","status":"Banned"}}`)
	}))
	defer bad.Close()

	client := bad.Client()
	orch := New(client, xtream.NewClient(client), nil, nil)
	err := orch.LoadFromProvider(xtream.Credentials{Server: bad.URL, Username: "u", Password: "p"})
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindAuth {
		t.Fatalf("err = %+v; want auth kind", err)
	}
	if e.Message != "Account not active: Banned" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestRestore_fromCache(t *testing.T) {
	srv := newGuideServer(t)
	kv := store.NewMemoryKV()
	first := newTestOrchestrator(srv, kv)
	if err := first.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatal(err)
	}
	first.Flush()
	fetched := srv.fetches.Load()

	second := newTestOrchestrator(srv, kv)
	if err := second.Restore(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := second.Status()
	if st.State != StateReady || st.Count != 2 {
		t.Fatalf("status after restore = %+v", st)
	}
	if srv.fetches.Load() != fetched {
		t.Error("restore from cache must not hit the network")
	}
	// Refresh target survives restarts.
	if err := second.Refresh(); err != nil {
		t.Fatal(err)
	}
	if srv.fetches.Load() != fetched+1 {
		t.Error("refresh after restore should re-download")
	}
}

func TestRestore_fallsBackToStoredCredentials(t *testing.T) {
	srv := newGuideServer(t)
	kv := store.NewMemoryKV()
	ctx := context.Background()
	s := store.New(kv)
	if err := s.SaveMode(ctx, store.ModeProvider); err != nil {
		t.Fatal(err)
	}
	creds := xtream.Credentials{Server: srv.URL, Username: "u", Password: "p"}
	if err := s.SaveCredentials(ctx, creds); err != nil {
		t.Fatal(err)
	}

	// No cached channels, so restore must go through the provider path.
	orch := newTestOrchestrator(srv, kv)
	if err := orch.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	st := orch.Status()
	if st.State != StateReady || st.Count != 1 {
		t.Fatalf("status after restore = %+v", st)
	}
	channels, _ := orch.Guide().Snapshot()
	if channels[0].Name != "Provider One" || channels[0].Group != "News" {
		t.Errorf("channels = %+v", channels)
	}
	if src := orch.lastGood; src.Mode != store.ModeProvider || src.Creds.Server != srv.URL {
		t.Errorf("lastGood = %+v", src)
	}
}

func TestRestore_fallsBackToStoredURL(t *testing.T) {
	srv := newGuideServer(t)
	kv := store.NewMemoryKV()
	ctx := context.Background()
	s := store.New(kv)
	if err := s.SavePlaylistURL(ctx, srv.URL+"/good.m3u"); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMode(ctx, store.ModePlaylist); err != nil {
		t.Fatal(err)
	}

	orch := newTestOrchestrator(srv, kv)
	if err := orch.Restore(ctx); err != nil {
		t.Fatal(err)
	}
	if st := orch.Status(); st.State != StateReady || st.Count != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestPersist_bestEffort(t *testing.T) {
	srv := newGuideServer(t)
	kv := store.NewMemoryKV()
	kv.FailWrites = errors.New("disk full")
	orch := newTestOrchestrator(srv, kv)

	if err := orch.LoadFromURL(srv.URL + "/good.m3u"); err != nil {
		t.Fatalf("persistence failure must not fail the load: %v", err)
	}
	orch.Flush()
	if st := orch.Status(); st.State != StateReady || st.Count != 2 {
		t.Errorf("status = %+v", st)
	}
}

func TestKindStrings(t *testing.T) {
	want := map[Kind]string{
		KindTimeout:        "timeout",
		KindUnreachable:    "unreachable",
		KindHTTPStatus:     "http_error",
		KindInvalidContent: "invalid_content",
		KindAuth:           "auth_error",
		KindCancelled:      "cancelled",
	}
	for k, s := range want {
		if k.String() != s {
			t.Errorf("%d.String() = %q; want %q", k, k.String(), s)
		}
	}
}
