package thirteenf

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/timberline"
	"github.com/etnz/timberline/metrics"
	"github.com/etnz/timberline/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source describes where a manager's filings are on the aggregator.
type Source struct {
	ManagerPath string // manager page, relative to the client base URL
	LinkPrefix  string // DefaultLinkPrefix if empty
	TableID     string // DefaultTableID if empty
	RowsPath    string // DefaultRowsPath if empty
}

// Filing is one filing read from the aggregator.
type Filing struct {
	ID       timberline.FilingID
	Location DataLocation
	Snapshot timberline.Snapshot
	Skipped  int
	Rows     int
}

// Report is the outcome of an ingestion run.
type Report struct {
	RunID    string
	Latest   Filing
	Previous *Filing // nil when the manager page lists a single filing
	Took     time.Duration
}

// Pipeline ingests the latest and previous filings of a manager.
type Pipeline struct {
	client  *Client
	source  Source
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPipeline creates a pipeline. logger and m may be nil.
func NewPipeline(client *Client, source Source, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if source.LinkPrefix == "" {
		source.LinkPrefix = DefaultLinkPrefix
	}
	if source.TableID == "" {
		source.TableID = DefaultTableID
	}
	if source.RowsPath == "" {
		source.RowsPath = DefaultRowsPath
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{client: client, source: source, logger: logger, metrics: m}
}

// Run fetches the latest and previous filings and publishes them to st.
//
// Nothing is published unless both filings were read successfully. When the
// manager lists a single filing, only the latest snapshot is published and the
// previous one is left untouched.
func (p *Pipeline) Run(ctx context.Context, st store.Store) (Report, error) {
	report, err := p.Fetch(ctx)
	if err == nil {
		err = p.publish(ctx, st, report)
	}
	p.metrics.IngestRun(err, report.Latest.Snapshot.Len())
	return report, err
}

// Fetch reads the latest and previous filings without publishing them.
func (p *Pipeline) Fetch(ctx context.Context) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run", report.RunID))

	page, err := p.client.Get(ctx, p.source.ManagerPath)
	if err != nil {
		return report, fmt.Errorf("cannot fetch manager page: %w", err)
	}
	ids, err := ListFilingIDs(page, p.source.LinkPrefix)
	if err != nil {
		return report, err
	}
	latest, previous, hasPrevious := SelectFilings(ids)
	log.Info("filings located",
		zap.Int("links", len(ids)),
		zap.Stringer("latest", latest),
		zap.Stringer("previous", previous),
	)

	// the two filings are independent, each one is read sequentially.
	var prev Filing
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Latest, err = p.ingest(gctx, log, latest)
		return err
	})
	if hasPrevious {
		g.Go(func() (err error) {
			prev, err = p.ingest(gctx, log, previous)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if hasPrevious {
		report.Previous = &prev
	}
	report.Took = time.Since(start)
	return report, nil
}

// ingest reads one filing: filing page, data location, payload, extraction.
func (p *Pipeline) ingest(ctx context.Context, log *zap.Logger, id timberline.FilingID) (Filing, error) {
	f := Filing{ID: id}
	log = log.With(zap.Stringer("filing", id))

	page, err := p.client.Get(ctx, string(id))
	if err != nil {
		return f, fmt.Errorf("cannot fetch filing %s: %w", id, err)
	}
	f.Location, err = ResolveDataLocation(page, p.source.TableID)
	if err != nil {
		return f, fmt.Errorf("filing %s: %w", id, err)
	}

	payload := f.Location.Inline
	if f.Location.Path != "" {
		payload, err = p.client.Get(ctx, f.Location.Path)
		if err != nil {
			return f, fmt.Errorf("cannot fetch holdings of filing %s: %w", id, err)
		}
	}

	x, err := ExtractorFor(f.Location.Format, p.source.RowsPath)
	if err != nil {
		return f, fmt.Errorf("filing %s: %w", id, err)
	}
	ex, err := x.Extract(payload)
	if err != nil {
		return f, fmt.Errorf("cannot extract holdings of filing %s: %w", id, err)
	}
	f.Snapshot, f.Skipped, f.Rows = ex.Snapshot, ex.Skipped, ex.Rows
	f.Snapshot.Filing = id

	p.metrics.RowsSkipped(f.Location.Format.String(), ex.Skipped)
	log.Info("holdings extracted",
		zap.Stringer("format", f.Location.Format),
		zap.Int("rows", ex.Rows),
		zap.Int("positions", f.Snapshot.Len()),
		zap.Int("skipped", ex.Skipped),
	)
	return f, nil
}

// publish saves the previous snapshot first, then the latest.
func (p *Pipeline) publish(ctx context.Context, st store.Store, report Report) error {
	if report.Previous != nil {
		if err := st.Put(ctx, store.Previous, report.Previous.Snapshot); err != nil {
			return fmt.Errorf("cannot publish previous snapshot: %w", err)
		}
	}
	if err := st.Put(ctx, store.Latest, report.Latest.Snapshot); err != nil {
		return fmt.Errorf("cannot publish latest snapshot: %w", err)
	}
	p.logger.Info("snapshots published",
		zap.String("run", report.RunID),
		zap.Int("latest", report.Latest.Snapshot.Len()),
		zap.Bool("previous", report.Previous != nil),
	)
	return nil
}
