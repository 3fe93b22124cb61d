// Package feed loads the catalog from a remote delimited-text feed, falling
// back to the embedded list whenever the feed cannot be used.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jcmexdev/pharmacy-orders/internal/catalog"
	"github.com/jcmexdev/pharmacy-orders/internal/notify"
)

const (
	MsgLoading  = "Cargando catálogo..."
	MsgLoaded   = "Catálogo actualizado"
	MsgFallback = "No se pudo cargar el catálogo. Usando lista local."

	maxFeedBytes = 4 << 20
)

// ErrNoItems means the feed answered but no row survived parsing.
var ErrNoItems = errors.New("feed: no valid items")

// Source tells where the loaded catalog came from.
type Source string

const (
	SourceFeed     Source = "feed"
	SourceFallback Source = "fallback"
)

// Result describes which catalog was produced and why.
type Result struct {
	Items      []catalog.Item
	Source     Source
	Rejected   int
	Duplicates int
	Err        error
}

// Config configures a Loader. An empty URL skips the network and loads the
// fallback catalog without showing any message. Nil Client, Notifier and
// Logger fall back to defaults, as does a zero MessageDelay.
type Config struct {
	URL          string
	Client       *http.Client
	Notifier     notify.Notifier
	Logger       *slog.Logger
	MessageDelay time.Duration
	// Fallback defaults to catalog.Fallback.
	Fallback func() []catalog.Item
}

// Loader fetches the feed once per call. It never retries.
type Loader struct {
	url          string
	client       *http.Client
	notifier     notify.Notifier
	log          *slog.Logger
	messageDelay time.Duration
	fallback     func() []catalog.Item
}

// NewLoader builds a Loader from cfg.
func NewLoader(cfg Config) *Loader {
	l := &Loader{
		url:          cfg.URL,
		client:       cfg.Client,
		notifier:     cfg.Notifier,
		log:          cfg.Logger,
		messageDelay: cfg.MessageDelay,
		fallback:     cfg.Fallback,
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 10 * time.Second}
	}
	if l.notifier == nil {
		l.notifier = notify.Discard{}
	}
	if l.log == nil {
		l.log = slog.Default()
	}
	if l.messageDelay <= 0 {
		l.messageDelay = 3 * time.Second
	}
	if l.fallback == nil {
		l.fallback = catalog.Fallback
	}
	return l
}

// Load always returns a usable catalog. Feed problems are reported through
// Result.Err and the notifier, and the embedded list is returned instead.
func (l *Loader) Load(ctx context.Context) Result {
	if l.url == "" {
		return Result{Items: l.fallback(), Source: SourceFallback}
	}

	ctx, span := otel.Tracer("catalog-feed").Start(ctx, "LoadCatalogFeed")
	defer span.End()

	l.notifier.Show(notify.KindLoading, MsgLoading)

	parsed, err := l.fetch(ctx)
	if err == nil && len(parsed.Items) == 0 {
		err = ErrNoItems
	}
	if err != nil {
		span.RecordError(err)
		l.log.WarnContext(ctx, "catalog feed unusable, using fallback", "url", l.url, "error", err)
		notify.HideAfter(l.notifier, l.messageDelay, notify.KindError, MsgFallback)
		return Result{
			Items:      l.fallback(),
			Source:     SourceFallback,
			Rejected:   parsed.Rejected,
			Duplicates: parsed.Duplicates,
			Err:        err,
		}
	}

	l.log.InfoContext(ctx, "catalog feed loaded",
		"items", len(parsed.Items),
		"rejected", parsed.Rejected,
		"duplicates", parsed.Duplicates,
	)
	notify.HideAfter(l.notifier, l.messageDelay, notify.KindSuccess, MsgLoaded)
	return Result{
		Items:      parsed.Items,
		Source:     SourceFeed,
		Rejected:   parsed.Rejected,
		Duplicates: parsed.Duplicates,
	}
}

// LoadInto loads the catalog and replaces the store contents with it.
func (l *Loader) LoadInto(ctx context.Context, store *catalog.Store) (Result, error) {
	res := l.Load(ctx)
	if err := store.Load(res.Items); err != nil {
		return res, fmt.Errorf("feed: load store: %w", err)
	}
	return res, nil
}

func (l *Loader) fetch(ctx context.Context) (ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return ParseResult{}, fmt.Errorf("feed: build request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := l.client.Do(req)
	if err != nil {
		return ParseResult{}, fmt.Errorf("feed: fetch %s: %w", l.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ParseResult{}, fmt.Errorf("feed: fetch %s: unexpected status %d", l.url, resp.StatusCode)
	}

	return Parse(io.LimitReader(resp.Body, maxFeedBytes))
}
