// Package ingest orchestrates channel ingestion: it routes a source to the
// playlist or provider path, owns the in-flight attempt lifecycle
// (timeout, cancellation, supersession), commits results to the in-memory
// guide, and persists them best-effort to the store.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Khaja-s/iptv-player/internal/classify"
	"github.com/Khaja-s/iptv-player/internal/guide"
	"github.com/Khaja-s/iptv-player/internal/httpclient"
	"github.com/Khaja-s/iptv-player/internal/metrics"
	"github.com/Khaja-s/iptv-player/internal/playlist"
	"github.com/Khaja-s/iptv-player/internal/safeurl"
	"github.com/Khaja-s/iptv-player/internal/store"
	"github.com/Khaja-s/iptv-player/internal/xtream"
)

// PlaylistTimeout bounds a plain playlist download. Provider API calls get a
// larger budget inside the xtream client.
const PlaylistTimeout = 15 * time.Second

// State is the per-attempt state machine. Ready and Failed are terminal for
// one attempt but not for the session; a new load always passes through
// Loading again.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Status is the orchestrator's externally visible condition.
type Status struct {
	State State
	Phase string // human-readable loading phase, "" unless loading
	Err   *Error // last classified error, nil when none
	Count int    // committed channel count
}

// Source describes where committed data came from; used by Refresh.
type Source struct {
	Mode  store.Mode
	URL   string
	Creds xtream.Credentials
}

// Orchestrator composes the parser, the provider client, and the store. All
// public load methods block until their attempt settles, are safe to call
// concurrently, and enforce supersession: starting a new load cancels any
// in-flight one, and a superseded attempt never commits.
type Orchestrator struct {
	httpClient *http.Client
	provider   *xtream.Client
	store      *store.Store
	guide      *guide.Guide

	playlistTimeout time.Duration

	mu       sync.Mutex
	state    State
	phase    string
	lastErr  *Error
	lastGood Source // last successfully committed source; Refresh target
	gen      uint64 // attempt generation; commits are guarded against staleness
	cancel   context.CancelFunc

	persistWG sync.WaitGroup
}

// New wires an orchestrator. httpClient and provider may be nil to use the
// shared defaults; st may be nil to run without persistence.
func New(httpClient *http.Client, provider *xtream.Client, st *store.Store, g *guide.Guide) *Orchestrator {
	if httpClient == nil {
		httpClient = httpclient.Default()
	}
	if provider == nil {
		provider = xtream.NewClient(httpClient)
	}
	if g == nil {
		g = guide.New()
	}
	return &Orchestrator{
		httpClient:      httpClient,
		provider:        provider,
		store:           st,
		guide:           g,
		playlistTimeout: PlaylistTimeout,
	}
}

// SetPlaylistTimeout overrides the playlist download budget. Zero or negative
// values are ignored and keep PlaylistTimeout. Call before the first load.
func (o *Orchestrator) SetPlaylistTimeout(d time.Duration) {
	if d > 0 {
		o.playlistTimeout = d
	}
}

// Guide returns the committed channel collection.
func (o *Orchestrator) Guide() *guide.Guide { return o.guide }

// Status returns the current externally visible state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{State: o.state, Phase: o.phase, Err: o.lastErr, Count: o.guide.Count()}
}

// Restore brings the orchestrator up from persisted state: cached data wins
// (instant usability, no network), else stored provider credentials, else a
// stored playlist URL, else Idle.
func (o *Orchestrator) Restore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	channels, err := o.store.Channels(ctx)
	if err != nil {
		log.Printf("ingest: restore: read cache: %v", err)
	}
	if len(channels) > 0 {
		categories, _ := o.store.Categories(ctx)
		o.guide.Replace(channels, categories)
		metrics.ChannelsLoaded.Set(float64(len(channels)))
		o.mu.Lock()
		o.state = StateReady
		o.lastGood = o.restoredSource(ctx)
		o.mu.Unlock()
		log.Printf("ingest: restored %d channels from cache", len(channels))
		return nil
	}
	mode, _ := o.store.Mode(ctx)
	if mode == store.ModeProvider {
		if creds, _ := o.store.Credentials(ctx); creds != nil {
			return o.LoadFromProvider(*creds)
		}
	}
	if u, _ := o.store.PlaylistURL(ctx); u != "" {
		return o.LoadFromURL(u)
	}
	return nil
}

// restoredSource rebuilds the Refresh target from stored source descriptors.
func (o *Orchestrator) restoredSource(ctx context.Context) Source {
	mode, _ := o.store.Mode(ctx)
	switch mode {
	case store.ModeProvider:
		if creds, _ := o.store.Credentials(ctx); creds != nil {
			return Source{Mode: store.ModeProvider, Creds: *creds}
		}
	case store.ModePlaylist:
		if u, _ := o.store.PlaylistURL(ctx); u != "" {
			return Source{Mode: store.ModePlaylist, URL: u}
		}
	}
	return Source{}
}

// LoadFromURL ingests rawURL. URLs that are really provider-API URLs in
// disguise are routed to the provider path, never the text parser.
func (o *Orchestrator) LoadFromURL(rawURL string) error {
	if creds, ok := classify.Classify(rawURL); ok {
		return o.LoadFromProvider(creds)
	}
	if err := safeurl.Check(rawURL); err != nil {
		at := o.begin(sourcePlaylist)
		return o.fail(at, &Error{
			Kind:    KindInvalidContent,
			Message: "Not a valid playlist URL",
			Err:     err,
		})
	}
	src := Source{Mode: store.ModePlaylist, URL: rawURL}
	at := o.begin(sourcePlaylist)
	log.Printf("ingest[%s]: loading playlist %s", at.id, rawURL)

	res, err := o.fetchAndParse(at.ctx, at.gen, rawURL)
	if err != nil {
		return o.fail(at, classifyErr(err, sourcePlaylist))
	}
	if len(res.Channels) == 0 {
		return o.fail(at, &Error{
			Kind:    KindInvalidContent,
			Message: "The URL did not contain a valid playlist",
		})
	}
	return o.commit(at, src, res)
}

// LoadFromProvider ingests via the provider API path.
func (o *Orchestrator) LoadFromProvider(creds xtream.Credentials) error {
	creds = creds.Normalized()
	src := Source{Mode: store.ModeProvider, Creds: creds}
	at := o.begin(sourceProvider)
	log.Printf("ingest[%s]: loading provider %s", at.id, creds.Server)

	res, err := o.provider.LoadChannels(at.ctx, creds, func(phase string) {
		o.setPhase(at.gen, phase)
	})
	if err != nil {
		return o.fail(at, classifyErr(err, sourceProvider))
	}
	if len(res.Channels) == 0 {
		return o.fail(at, &Error{
			Kind:    KindInvalidContent,
			Message: "The provider returned no channels",
		})
	}
	return o.commit(at, src, res)
}

// Refresh re-runs ingestion against the last successfully loaded source.
func (o *Orchestrator) Refresh() error {
	o.mu.Lock()
	src := o.lastGood
	o.mu.Unlock()
	switch src.Mode {
	case store.ModeProvider:
		return o.LoadFromProvider(src.Creds)
	case store.ModePlaylist:
		return o.LoadFromURL(src.URL)
	default:
		return &Error{Kind: KindInvalidContent, Message: "Nothing to refresh; load a playlist first"}
	}
}

// Cancel aborts the in-flight attempt, if any. Previously committed data is
// untouched; the aborted attempt settles as Cancelled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// attempt identifies one in-flight ingestion run.
type attempt struct {
	ctx     context.Context
	gen     uint64
	id      string
	source  string
	started time.Time
}

// begin starts a new attempt: cancels any in-flight one (supersession) and
// bumps the generation so the superseded attempt can never commit.
func (o *Orchestrator) begin(source string) attempt {
	at := attempt{id: uuid.NewString()[:8], source: source, started: time.Now()}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	o.gen++
	at.gen = o.gen
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	at.ctx = ctx
	o.state = StateLoading
	o.phase = "Loading"
	o.lastErr = nil
	return at
}

func (o *Orchestrator) setPhase(gen uint64, phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen == o.gen {
		o.phase = phase
	}
}

// commit atomically replaces the in-memory collections, then persists in the
// background. Stale attempts (superseded while fetching) are discarded here.
func (o *Orchestrator) commit(at attempt, src Source, res guide.Result) error {
	o.mu.Lock()
	if at.gen != o.gen {
		o.mu.Unlock()
		log.Printf("ingest[%s]: superseded; discarding %d channels", at.id, len(res.Channels))
		return &Error{Kind: KindCancelled, Message: "Loading cancelled"}
	}
	o.guide.Replace(res.Channels, res.Categories)
	o.state = StateReady
	o.phase = ""
	o.lastErr = nil
	o.lastGood = src
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()

	metrics.RecordAttempt(at.source, "ready", time.Since(at.started).Seconds())
	metrics.ChannelsLoaded.Set(float64(len(res.Channels)))
	log.Printf("ingest[%s]: committed %d channels, %d categories", at.id, len(res.Channels), len(res.Categories))
	o.persistWG.Add(1)
	go func() {
		defer o.persistWG.Done()
		o.persist(src, res)
	}()
	return nil
}

// Flush waits for background persistence to finish. Used by one-shot callers
// and tests; the serving path never needs it.
func (o *Orchestrator) Flush() {
	o.persistWG.Wait()
}

// fail records a classified failure. A superseded attempt must not overwrite
// the successor's state; it reports Cancelled to its caller and nothing else.
func (o *Orchestrator) fail(at attempt, e *Error) error {
	o.mu.Lock()
	if at.gen != o.gen {
		o.mu.Unlock()
		return &Error{Kind: KindCancelled, Message: "Loading cancelled"}
	}
	if e.Kind == KindCancelled {
		o.state = StateCancelled
	} else {
		o.state = StateFailed
	}
	o.phase = ""
	o.lastErr = e
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.mu.Unlock()

	metrics.RecordAttempt(at.source, e.Kind.String(), time.Since(at.started).Seconds())
	log.Printf("ingest[%s]: %s: %s", at.id, e.Kind, e.Message)
	return e
}

// fetchAndParse downloads the playlist body under the playlist budget and
// runs the single-pass parser. Parsing never suspends; once the body is in
// memory the result is computed without further I/O.
func (o *Orchestrator) fetchAndParse(ctx context.Context, gen uint64, rawURL string) (guide.Result, error) {
	o.setPhase(gen, "Downloading playlist")
	ctx, cancel := context.WithTimeout(ctx, o.playlistTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return guide.Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "ChannelGuide/1.0")
	req.Header.Set("Accept-Encoding", httpclient.AcceptEncoding)
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return guide.Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return guide.Result{}, &statusError{code: resp.StatusCode}
	}
	body, err := httpclient.ReadBody(resp)
	if err != nil {
		return guide.Result{}, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return guide.Result{}, errEmptyBody
	}
	o.setPhase(gen, "Parsing playlist")
	return playlist.Parse(string(body)), nil
}

// persist writes the committed result and its source descriptor to the
// store. Best-effort: failures are logged and counted, never surfaced, since
// the in-memory state is already correct. The store gives no cross-key
// transactional guarantee; readers tolerate partial writes.
func (o *Orchestrator) persist(src Source, res guide.Result) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	save := func(what string, err error) {
		if err != nil {
			metrics.PersistFailures.Inc()
			log.Printf("ingest: persist %s: %v", what, err)
		}
	}
	source := src.URL
	if src.Mode == store.ModeProvider {
		source = src.Creds.Server
	}
	save("channels", o.store.SaveChannels(ctx, res.Channels))
	save("categories", o.store.SaveCategories(ctx, res.Categories))
	save("metadata", o.store.SaveMetadata(ctx, store.Metadata{
		Source:    source,
		Count:     len(res.Channels),
		UpdatedAt: time.Now().UTC(),
	}))
	save("mode", o.store.SaveMode(ctx, src.Mode))
	switch src.Mode {
	case store.ModePlaylist:
		save("playlist url", o.store.SavePlaylistURL(ctx, src.URL))
	case store.ModeProvider:
		save("credentials", o.store.SaveCredentials(ctx, src.Creds))
	}
}
