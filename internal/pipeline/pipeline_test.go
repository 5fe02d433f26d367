package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gconnect/leadgen-cli/internal/model"
	"github.com/gconnect/leadgen-cli/internal/outreach"
	"github.com/gconnect/leadgen-cli/pkg/overpass"
)

type fakeOverpass struct {
	elements []overpass.Element
	queries  []string
	err      error
}

func (f *fakeOverpass) Fetch(_ context.Context, query string) ([]overpass.Element, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.elements, nil
}

type fakeNominatim struct {
	areaID   int64
	failCity string
	cities   []string
}

func (f *fakeNominatim) ResolveArea(_ context.Context, city string) (int64, error) {
	f.cities = append(f.cities, city)
	if f.failCity != "" && city == f.failCity {
		return 0, eris.New("geocode down")
	}
	return f.areaID, nil
}

type memStore struct {
	mu    sync.Mutex
	leads map[string]model.PersistedLead
	runs  map[string]*model.Run
}

func newMemStore() *memStore {
	return &memStore{
		leads: make(map[string]model.PersistedLead),
		runs:  make(map[string]*model.Run),
	}
}

func (m *memStore) UpsertLead(_ context.Context, lead model.PersistedLead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead.Email == "" {
		return eris.New("empty email")
	}
	m.leads[lead.Email] = lead
	return nil
}

func (m *memStore) GetLead(_ context.Context, email string) (*model.PersistedLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.leads[email]; ok {
		return &l, nil
	}
	return nil, nil
}

func (m *memStore) ListLeads(_ context.Context, _ int) ([]model.PersistedLead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.PersistedLead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) MarkInterested(_ context.Context, email, name, category, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.leads[email]
	l.Email, l.Name, l.Category, l.Status = email, name, category, model.StatusInterested
	m.leads[email] = l
	return nil
}

func (m *memStore) MarkNotInterested(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.leads[email]
	l.Status = model.StatusNotInterested
	m.leads[email] = l
	return nil
}

func (m *memStore) CreateRun(_ context.Context, areas []string, category string) (*model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := &model.Run{ID: uuid.NewString(), Areas: areas, Category: category, Status: model.RunStatusRunning}
	m.runs[run.ID] = run
	return run, nil
}

func (m *memStore) CompleteRun(_ context.Context, runID string, leadCount int, runErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[runID]
	if !ok {
		return eris.New("unknown run")
	}
	run.LeadCount = leadCount
	run.Status = model.RunStatusComplete
	if runErr != nil {
		run.Status = model.RunStatusFailed
		run.Error = runErr.Error()
	}
	return nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(_ context.Context, to string, _ outreach.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, to)
	return nil
}

func newTestPipeline(t *testing.T, ov overpass.Client, nom *fakeNominatim, st *memStore, sender outreach.Sender) *Pipeline {
	t.Helper()
	dir := t.TempDir()
	return New(Params{
		Overpass:   ov,
		Nominatim:  nom,
		Discoverer: NewDiscoverer(),
		Store:      st,
		Engine: outreach.NewEngine(sender, outreach.Templater{
			SenderName:      "Ramya T N",
			SenderEmail:     "outreach@gconnectt.com",
			TrackingBaseURL: "http://localhost:3001",
		}, 0),
		DefaultArea: "Bangalore",
		EnrichDelay: 0,
		CSVPath:     filepath.Join(dir, "leads.csv"),
		XLSXPath:    filepath.Join(dir, "leads.xlsx"),
	})
}

func TestRunSearch(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Write to Owner@IronGym.in for plans"))
	}))
	defer site.Close()

	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Iron Corp Fitness", "leisure": "fitness_centre", "email": "arjun@ironcorp.in"}},
		{ID: 2, Tags: map[string]string{"name": "Iron Gym", "website": site.URL}},
		{ID: 3, Tags: map[string]string{"name": "Silent Gym"}},
	}}
	nom := &fakeNominatim{areaID: 3600063231}
	st := newMemStore()

	p := newTestPipeline(t, ov, nom, st, &recordingSender{})
	p.disc = p.disc.WithHTTPClient(site.Client())

	res, err := p.RunSearch(context.Background(), "Bangalore", "gym")
	require.NoError(t, err)

	// the lead without any reachable contact is dropped
	require.Len(t, res.Leads, 2)

	// spelling fix applied before geocoding
	assert.Equal(t, []string{"Bengaluru"}, nom.cities)
	require.Len(t, ov.queries, 1)
	assert.Contains(t, ov.queries[0], "area(3600063231)")

	assert.Equal(t, "arjun@ironcorp.in", res.Leads[0].Email)
	assert.Equal(t, "owner@irongym.in", res.Leads[1].Email)

	for _, lead := range res.Leads {
		assert.Equal(t, model.StatusPending, lead.Status)
		assert.Equal(t, "gym", lead.Category)
	}

	assert.Len(t, st.leads, 2)
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)
	assert.Equal(t, 2, res.Run.LeadCount)
	assert.FileExists(t, p.csvPath)
	assert.FileExists(t, p.xlsxPath)
}

func TestRunSearchSkipsFailingArea(t *testing.T) {
	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Corner Cafe", "amenity": "cafe", "email": "hi@cornercafe.in"}},
	}}
	nom := &fakeNominatim{areaID: 100, failCity: "Atlantis"}
	st := newMemStore()
	p := newTestPipeline(t, ov, nom, st, &recordingSender{})

	res, err := p.RunSearch(context.Background(), "Atlantis, Pune", "cafe")
	require.NoError(t, err)
	assert.Len(t, res.Leads, 1)
	assert.Equal(t, []string{"Atlantis", "Pune"}, nom.cities)
	// only the resolvable area was crawled
	require.Len(t, ov.queries, 1)
}

func TestRunSearchValidation(t *testing.T) {
	p := newTestPipeline(t, &fakeOverpass{}, &fakeNominatim{}, newMemStore(), &recordingSender{})

	_, err := p.RunSearch(context.Background(), " , ", "gym")
	assert.Error(t, err)

	_, err = p.RunSearch(context.Background(), "Pune", "  ")
	assert.Error(t, err)
}

func TestRunDefault(t *testing.T) {
	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Corner Cafe", "amenity": "cafe", "email": "hi@cornercafe.in"}},
		{ID: 2, Tags: map[string]string{"name": "Untagged Services", "email": "desk@untagged.in"}},
	}}
	nom := &fakeNominatim{}
	p := newTestPipeline(t, ov, nom, newMemStore(), &recordingSender{})

	res, err := p.RunDefault(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Leads, 2)

	// default run queries by place name, no geocoding round-trip; the
	// area name keeps OSM casing because Overpass matches it exactly
	assert.Empty(t, nom.cities)
	require.Len(t, ov.queries, 1)
	assert.Contains(t, ov.queries[0], `area["name"="Bengaluru"]`)

	assert.Equal(t, "cafe", res.Leads[0].Category)
	assert.Equal(t, "Business", res.Leads[1].Category)
}

func TestRunDefaultUpstreamFailure(t *testing.T) {
	ov := &fakeOverpass{err: overpass.ErrUpstreamUnavailable}
	st := newMemStore()
	p := newTestPipeline(t, ov, &fakeNominatim{}, st, &recordingSender{})

	_, err := p.RunDefault(context.Background())
	require.Error(t, err)
	assert.True(t, eris.Is(err, overpass.ErrUpstreamUnavailable))

	// the failed run is recorded as failed and produces no batch or files
	require.Len(t, st.runs, 1)
	for _, run := range st.runs {
		assert.Equal(t, model.RunStatusFailed, run.Status)
	}
	assert.Empty(t, p.Batch())
	assert.NoFileExists(t, p.csvPath)
	assert.NoFileExists(t, p.xlsxPath)
}

func TestRunSearchNoLeadsAnywhere(t *testing.T) {
	// every element lacks a contact, so the search has nothing to deliver
	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Silent Gym", "leisure": "fitness_centre"}},
	}}
	p := newTestPipeline(t, ov, &fakeNominatim{areaID: 1}, newMemStore(), &recordingSender{})

	_, err := p.RunSearch(context.Background(), "Pune", "gym")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no leads found")
}

func TestRunInProgress(t *testing.T) {
	p := newTestPipeline(t, &fakeOverpass{}, &fakeNominatim{}, newMemStore(), &recordingSender{})

	p.runMu.Lock()
	defer p.runMu.Unlock()

	_, err := p.RunDefault(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestSendAll(t *testing.T) {
	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Iron Corp Fitness", "leisure": "fitness_centre", "email": "arjun@ironcorp.in"}},
		{ID: 2, Tags: map[string]string{"name": "Silent Gym"}},
	}}
	sender := &recordingSender{}
	st := newMemStore()
	p := newTestPipeline(t, ov, &fakeNominatim{areaID: 100}, st, sender)

	_, err := p.RunSearch(context.Background(), "Pune", "gym")
	require.NoError(t, err)

	res, err := p.SendAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []string{"arjun@ironcorp.in"}, sender.sent)

	assert.Equal(t, model.StatusSentSuccess, st.leads["arjun@ironcorp.in"].Status)

	// a second pass skips everything already handled
	res, err = p.SendAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Sent)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, sender.sent, 1)
}

func TestSendAllWithoutBatch(t *testing.T) {
	p := newTestPipeline(t, &fakeOverpass{}, &fakeNominatim{}, newMemStore(), &recordingSender{})
	_, err := p.SendAll(context.Background())
	assert.ErrorIs(t, err, ErrNoBatch)
}

func TestBatchReturnsCopy(t *testing.T) {
	ov := &fakeOverpass{elements: []overpass.Element{
		{ID: 1, Tags: map[string]string{"name": "Corner Cafe", "amenity": "cafe", "email": "hi@cornercafe.in"}},
	}}
	p := newTestPipeline(t, ov, &fakeNominatim{areaID: 1}, newMemStore(), &recordingSender{})

	_, err := p.RunSearch(context.Background(), "Pune", "cafe")
	require.NoError(t, err)

	batch := p.Batch()
	require.Len(t, batch, 1)
	batch[0].Name = "mutated"
	assert.Equal(t, "Corner Cafe", p.Batch()[0].Name)
}
