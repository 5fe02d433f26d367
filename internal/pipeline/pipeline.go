package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gconnect/leadgen-cli/internal/export"
	"github.com/gconnect/leadgen-cli/internal/model"
	"github.com/gconnect/leadgen-cli/internal/outreach"
	"github.com/gconnect/leadgen-cli/internal/store"
	"github.com/gconnect/leadgen-cli/pkg/nominatim"
	"github.com/gconnect/leadgen-cli/pkg/overpass"
)

// ErrRunInProgress is returned when a run is requested while another is
// still executing. Runs are serialized; callers should retry later.
var ErrRunInProgress = eris.New("pipeline: a run is already in progress")

// ErrNoBatch is returned by SendAll when no run has produced leads yet.
var ErrNoBatch = eris.New("pipeline: no lead batch loaded, run the pipeline first")

// Params carries the dependencies and settings for a Pipeline.
type Params struct {
	Overpass    overpass.Client
	Nominatim   nominatim.Client
	Discoverer  *Discoverer
	Store       store.Store
	Engine      *outreach.Engine
	DefaultArea string
	EnrichDelay time.Duration
	CSVPath     string
	XLSXPath    string
}

// Pipeline orchestrates one end-to-end lead run: fetch, normalize,
// enrich, score, persist, export. At most one run executes at a time.
type Pipeline struct {
	ov          overpass.Client
	nom         nominatim.Client
	disc        *Discoverer
	st          store.Store
	engine      *outreach.Engine
	defaultArea string
	enrichDelay time.Duration
	csvPath     string
	xlsxPath    string

	runMu sync.Mutex

	batchMu sync.Mutex
	batch   []model.Lead
}

// New builds a Pipeline from its dependencies.
func New(p Params) *Pipeline {
	return &Pipeline{
		ov:          p.Overpass,
		nom:         p.Nominatim,
		disc:        p.Discoverer,
		st:          p.Store,
		engine:      p.Engine,
		defaultArea: p.DefaultArea,
		enrichDelay: p.EnrichDelay,
		csvPath:     p.CSVPath,
		xlsxPath:    p.XLSXPath,
	}
}

// RunResult summarizes one completed run.
type RunResult struct {
	Run   *model.Run
	Leads []model.Lead
}

// RunDefault executes the fixed default-area crawl.
func (p *Pipeline) RunDefault(ctx context.Context) (*RunResult, error) {
	area := CanonicalCity(p.defaultArea)
	return p.run(ctx, runSpec{
		areas:            []string{area},
		fallbackCategory: "Business",
	}, func(ctx context.Context, city string) ([]overpass.Element, error) {
		return p.ov.Fetch(ctx, DefaultAreaQuery(city))
	})
}

// RunSearch resolves each named area and crawls it for the given
// category. Areas that fail to resolve or fetch are skipped, not fatal;
// only a search that yields no leads at all is an error.
func (p *Pipeline) RunSearch(ctx context.Context, areasInput, category string) (*RunResult, error) {
	areas := SplitCities(areasInput)
	if len(areas) == 0 {
		return nil, eris.New("pipeline: no areas given")
	}
	if strings.TrimSpace(category) == "" {
		return nil, eris.New("pipeline: no category given")
	}

	return p.run(ctx, runSpec{
		areas:            areas,
		category:         category,
		fallbackCategory: category,
		requireLeads:     true,
		skipFailedAreas:  true,
	}, func(ctx context.Context, city string) ([]overpass.Element, error) {
		areaID, err := p.nom.ResolveArea(ctx, city)
		if err != nil {
			return nil, err
		}
		return p.ov.Fetch(ctx, AreaQuery(areaID, category))
	})
}

// runSpec describes one run: which areas, what category label to record and
// fall back to, and how strict the failure handling is. A multi-area search
// skips areas that fail but insists on leads overall; the default run has
// one fixed area, so an upstream failure there fails the whole run.
type runSpec struct {
	areas            []string
	category         string
	fallbackCategory string
	requireLeads     bool
	skipFailedAreas  bool
}

func (p *Pipeline) run(ctx context.Context, spec runSpec, fetch func(context.Context, string) ([]overpass.Element, error)) (*RunResult, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	run, err := p.st.CreateRun(ctx, spec.areas, spec.category)
	if err != nil {
		return nil, err
	}

	leads, err := p.collect(ctx, spec, fetch)
	if err == nil {
		leads, err = p.enrich(ctx, leads)
	}
	if err == nil && spec.requireLeads && len(leads) == 0 {
		err = eris.New("pipeline: no leads found in any area, try a broader category")
	}
	if err == nil {
		p.scoreAll(leads)
		err = p.persist(ctx, leads)
	}
	if err == nil {
		err = export.WriteAll(ctx, p.csvPath, p.xlsxPath, leads)
	}

	if cerr := p.st.CompleteRun(ctx, run.ID, len(leads), err); cerr != nil {
		zap.L().Error("record run outcome", zap.String("run_id", run.ID), zap.Error(cerr))
	}
	if err != nil {
		return nil, err
	}

	p.setBatch(leads)
	run.Status = model.RunStatusComplete
	run.LeadCount = len(leads)

	zap.L().Info("run complete",
		zap.String("run_id", run.ID),
		zap.Strings("areas", spec.areas),
		zap.Int("leads", len(leads)))
	return &RunResult{Run: run, Leads: leads}, nil
}

// collect fetches and normalizes every area, deduplicating across the
// whole run on lowercase(name+address), first occurrence wins. Fetch
// errors are fatal unless the spec allows skipping failed areas.
func (p *Pipeline) collect(ctx context.Context, spec runSpec, fetch func(context.Context, string) ([]overpass.Element, error)) ([]model.Lead, error) {
	var leads []model.Lead
	seen := make(map[string]struct{})

	for _, raw := range spec.areas {
		city := CanonicalCity(raw)
		elements, err := fetch(ctx, city)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "pipeline: collect")
			}
			if !spec.skipFailedAreas {
				return nil, eris.Wrapf(err, "pipeline: fetch %s", city)
			}
			zap.L().Warn("area skipped",
				zap.String("area", city),
				zap.Error(err))
			continue
		}

		for _, lead := range Normalize(elements, city, spec.fallbackCategory) {
			key := lead.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			leads = append(leads, lead)
		}
	}
	return leads, nil
}

// enrich resolves a contact email per lead via the discoverer and keeps
// only leads that got one: an unreachable lead has no outreach value.
// Only leads whose resolution needs a page fetch hit the rate limiter.
func (p *Pipeline) enrich(ctx context.Context, leads []model.Lead) ([]model.Lead, error) {
	limit := rate.Inf
	if p.enrichDelay > 0 {
		limit = rate.Every(p.enrichDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	emailed := leads[:0]
	for i := range leads {
		lead := leads[i]

		if !ValidEmail(strings.TrimSpace(lead.RawEmail)) {
			if lead.RawWebsite == "" {
				continue
			}
			if err := limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "pipeline: enrich")
			}
		}
		if email, ok := p.disc.Resolve(ctx, lead.RawEmail, lead.RawWebsite); ok {
			lead.Email = email
			emailed = append(emailed, lead)
		}
	}
	return emailed, nil
}

func (p *Pipeline) scoreAll(leads []model.Lead) {
	for i := range leads {
		leads[i].FinalScore, leads[i].Tier = Score(leads[i])
		leads[i].Status = model.StatusPending
	}
}

// persist upserts every emailed lead. Leads without a contact email have
// no durable key and live only in the run outputs.
func (p *Pipeline) persist(ctx context.Context, leads []model.Lead) error {
	for _, lead := range leads {
		if !lead.HasEmail() {
			continue
		}
		if err := p.st.UpsertLead(ctx, lead.Persisted()); err != nil {
			return err
		}
	}
	return nil
}

// SendAll sends outreach to every pending lead in the latest batch,
// persisting the resulting statuses and refreshing the output files.
func (p *Pipeline) SendAll(ctx context.Context) (outreach.BatchResult, error) {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	if len(p.batch) == 0 {
		return outreach.BatchResult{}, ErrNoBatch
	}

	res, err := p.engine.SendBatch(ctx, p.batch)
	if err != nil {
		return res, err
	}

	for _, lead := range p.batch {
		if !lead.HasEmail() {
			continue
		}
		if err := p.st.UpsertLead(ctx, lead.Persisted()); err != nil {
			zap.L().Warn("persist send status",
				zap.String("email", lead.Email),
				zap.Error(err))
		}
	}

	if err := export.WriteAll(ctx, p.csvPath, p.xlsxPath, p.batch); err != nil {
		return res, err
	}

	zap.L().Info("send pass complete",
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int("no_email", res.NoEmail),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

// Batch returns a copy of the latest run's leads.
func (p *Pipeline) Batch() []model.Lead {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()

	out := make([]model.Lead, len(p.batch))
	copy(out, p.batch)
	return out
}

func (p *Pipeline) setBatch(leads []model.Lead) {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	p.batch = leads
}
