package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hyperengineering/fableforge/internal/cost"
	"github.com/hyperengineering/fableforge/internal/provider"
	"github.com/hyperengineering/fableforge/internal/ratelimit"
	"github.com/hyperengineering/fableforge/internal/store"
	"github.com/hyperengineering/fableforge/internal/types"
	"github.com/hyperengineering/fableforge/internal/vector"
)

// --- Mock Implementations for Testing ---

// Well-formed ULIDs for request bodies that pass field validation.
const (
	testProjectID = "01ARZ3NDEKTSV4RRFFQ69G5FAV"
	testNPCID     = "01BX5ZZKBKACTAV9WEVGEMMVRZ"
)

// mockStore implements store.Store for handler tests. Entities are held in
// maps keyed by ID; unset lookups return ErrNotFound.
type mockStore struct {
	projects map[string]types.Project
	quests   map[string]types.Quest
	lore     map[string]types.LoreEntry
	npcs     map[string]types.NPC
	counts   store.Counts

	recordedCalls []types.ServiceCall
	batchIDs      []string
	batchEntries  []types.NewLoreEntry
}

func newMockStore() *mockStore {
	return &mockStore{
		projects: map[string]types.Project{},
		quests:   map[string]types.Quest{},
		lore:     map[string]types.LoreEntry{},
		npcs:     map[string]types.NPC{},
	}
}

func (m *mockStore) CreateProject(ctx context.Context, p types.NewProject) (*types.Project, error) {
	created := types.Project{ID: testProjectID, Name: p.Name, Slug: p.Slug}
	m.projects[created.ID] = created
	return &created, nil
}

func (m *mockStore) GetProject(ctx context.Context, id string) (*types.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (m *mockStore) ListProjects(ctx context.Context) ([]types.Project, error) {
	var out []types.Project
	for _, p := range m.projects {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockStore) UpdateProject(ctx context.Context, id string, p types.NewProject) (*types.Project, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteProject(ctx context.Context, id string) error { return nil }

func (m *mockStore) CreateQuest(ctx context.Context, q types.NewQuest) (*types.Quest, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetQuest(ctx context.Context, id string) (*types.Quest, error) {
	q, ok := m.quests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (m *mockStore) ListQuests(ctx context.Context, projectID string) ([]types.Quest, error) {
	var out []types.Quest
	for _, q := range m.quests {
		if projectID == "" || q.ProjectID == projectID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *mockStore) UpdateQuest(ctx context.Context, id string, q types.NewQuest) (*types.Quest, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteQuest(ctx context.Context, id string) error { return nil }

func (m *mockStore) CreateLore(ctx context.Context, l types.NewLoreEntry) (*types.LoreEntry, error) {
	created := types.LoreEntry{
		ID: "01HQXW3P8NJKMQRSTVZ0123456", ProjectID: l.ProjectID,
		Title: l.Title, Content: l.Content, Category: l.Category,
		EmbeddingStatus: types.EmbeddingPending,
	}
	m.lore[created.ID] = created
	return &created, nil
}

func (m *mockStore) CreateLoreBatch(ctx context.Context, entries []types.NewLoreEntry) ([]string, error) {
	m.batchEntries = entries
	return m.batchIDs, nil
}

func (m *mockStore) GetLore(ctx context.Context, id string) (*types.LoreEntry, error) {
	l, ok := m.lore[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &l, nil
}

func (m *mockStore) ListLore(ctx context.Context, projectID string) ([]types.LoreEntry, error) {
	return nil, nil
}

func (m *mockStore) UpdateLore(ctx context.Context, id string, l types.NewLoreEntry) (*types.LoreEntry, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteLore(ctx context.Context, id string) error { return nil }

func (m *mockStore) GetPendingLoreEmbeddings(ctx context.Context, limit int) ([]types.LoreEntry, error) {
	return nil, nil
}

func (m *mockStore) UpdateLoreEmbedding(ctx context.Context, id string, embedding []float32) error {
	return nil
}

func (m *mockStore) MarkLoreEmbeddingFailed(ctx context.Context, id string) error { return nil }

func (m *mockStore) ListEmbeddedLore(ctx context.Context, projectID string) ([]types.LoreEntry, error) {
	return nil, nil
}

func (m *mockStore) CreateNPC(ctx context.Context, n types.NewNPC) (*types.NPC, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetNPC(ctx context.Context, id string) (*types.NPC, error) {
	n, ok := m.npcs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &n, nil
}

func (m *mockStore) ListNPCs(ctx context.Context, projectID string) ([]types.NPC, error) {
	return nil, nil
}

func (m *mockStore) UpdateNPC(ctx context.Context, id string, n types.NewNPC) (*types.NPC, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) DeleteNPC(ctx context.Context, id string) error { return nil }

func (m *mockStore) SetNPCAssets(ctx context.Context, id string, modelAssetID, voiceAssetID *string) error {
	return nil
}

func (m *mockStore) CreateManifest(ctx context.Context, mf types.NewManifest) (*types.Manifest, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetManifest(ctx context.Context, id string) (*types.Manifest, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) GetManifestByVersion(ctx context.Context, projectID string, version int64) (*types.Manifest, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) ListManifests(ctx context.Context, projectID string) ([]types.Manifest, error) {
	return nil, nil
}

func (m *mockStore) CreateVoiceAsset(ctx context.Context, a types.VoiceAsset) (*types.VoiceAsset, error) {
	return &a, nil
}

func (m *mockStore) GetVoiceAsset(ctx context.Context, id string) (*types.VoiceAsset, error) {
	return nil, store.ErrNotFound
}

func (m *mockStore) ListVoiceAssets(ctx context.Context, projectID string) ([]types.VoiceAsset, error) {
	return nil, nil
}

func (m *mockStore) DeleteVoiceAsset(ctx context.Context, id string) error { return nil }

func (m *mockStore) RecordServiceCall(ctx context.Context, call types.ServiceCall) (*types.ServiceCall, error) {
	m.recordedCalls = append(m.recordedCalls, call)
	return &call, nil
}

func (m *mockStore) ListServiceCallsSince(ctx context.Context, since time.Time) ([]types.ServiceCall, error) {
	return nil, nil
}

func (m *mockStore) UsageSummary(ctx context.Context, since time.Time) (*types.UsageSummary, error) {
	return &types.UsageSummary{Since: since}, nil
}

func (m *mockStore) MonthlySpend(ctx context.Context, monthStart time.Time) (int64, error) {
	return 0, nil
}

func (m *mockStore) GetCounts(ctx context.Context) (*store.Counts, error) {
	c := m.counts
	return &c, nil
}

func (m *mockStore) Close() error { return nil }

// mockEmbedder returns a fixed vector and token count.
type mockEmbedder struct {
	vector []float32
	tokens int64
	err    error
}

func (m *mockEmbedder) Embed(ctx context.Context, content string) ([]float32, int64, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.vector, m.tokens, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, contents []string) ([][]float32, int64, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	out := make([][]float32, len(contents))
	for i := range out {
		out[i] = m.vector
	}
	return out, m.tokens, nil
}

func (m *mockEmbedder) ModelName() string { return "text-embedding-3-small" }

// mockIndex returns canned matches.
type mockIndex struct {
	matches []vector.Match
}

func (m *mockIndex) Ensure(ctx context.Context) error                 { return nil }
func (m *mockIndex) Upsert(ctx context.Context, pts []vector.Point) error { return nil }
func (m *mockIndex) Delete(ctx context.Context, ids []string) error   { return nil }
func (m *mockIndex) Mode() string                                     { return "local" }

func (m *mockIndex) Search(ctx context.Context, v []float32, projectID string, limit int, threshold float32) ([]vector.Match, error) {
	return m.matches, nil
}

// mockTextGenerator returns a fixed completion.
type mockTextGenerator struct {
	name   string
	result provider.TextResult
	err    error
}

func (m *mockTextGenerator) GenerateText(ctx context.Context, req provider.TextRequest) (*provider.TextResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	r := m.result
	return &r, nil
}

func (m *mockTextGenerator) Name() string { return m.name }

func openLimits() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Limits{
		PerMinute: 100, PerHour: 1000, PerDay: 10000,
		MonthlyBudgetMicrocents: 1_000_000_000,
	})
}

func newTestHandler(s store.Store) *Handler {
	return NewHandler(Deps{
		Store:    s,
		Embedder: &mockEmbedder{vector: []float32{1, 0}, tokens: 7},
		Index:    &mockIndex{},
		Limiter:  openLimits(),
		Calc:     cost.NewCalculator(),
		Text: map[string]provider.TextGenerator{
			provider.NameOpenAI: &mockTextGenerator{
				name: provider.NameOpenAI,
				result: provider.TextResult{
					Text: "generated", Model: "gpt-4o-mini",
					InputTokens: 10, OutputTokens: 20,
				},
			},
		},
		APIKey:  "test-key",
		Version: "1.0.0",
	})
}

// --- Health ---

func TestHealth_ReturnsCountsAndMode(t *testing.T) {
	ms := newMockStore()
	ms.counts = store.Counts{Projects: 2, Quests: 5, Lore: 42, NPCs: 3}
	h := newTestHandler(ms)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.LoreCount != 42 {
		t.Errorf("lore_count = %d, want 42", resp.LoreCount)
	}
	if resp.VectorIndex != "local" {
		t.Errorf("vector_index = %q, want local", resp.VectorIndex)
	}
}

// --- Projects ---

func TestCreateProject_ValidationError(t *testing.T) {
	h := newTestHandler(newMockStore())

	body := `{"name": "", "slug": "Bad Slug!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateProject(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
	var p ProblemWithErrors
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(p.Errors) == 0 {
		t.Error("expected field errors in problem response")
	}
}

func TestCreateProject_InvalidJSON(t *testing.T) {
	h := newTestHandler(newMockStore())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects", strings.NewReader("{nope"))
	w := httptest.NewRecorder()
	h.CreateProject(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- Quest chain ---

func TestQuestChain_CycleReturns422(t *testing.T) {
	ms := newMockStore()
	ms.quests["q1"] = types.Quest{ID: "q1", ProjectID: "p1", PrerequisiteIDs: []string{"q2"}}
	ms.quests["q2"] = types.Quest{ID: "q2", ProjectID: "p1", PrerequisiteIDs: []string{"q1"}}
	h := newTestHandler(ms)

	w := doRouted(h, http.MethodGet, "/api/v1/quests/q1/chain", "")

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestQuestChain_ReturnsDependencyOrder(t *testing.T) {
	ms := newMockStore()
	ms.quests["q1"] = types.Quest{ID: "q1", ProjectID: "p1"}
	ms.quests["q2"] = types.Quest{ID: "q2", ProjectID: "p1", PrerequisiteIDs: []string{"q1"}}
	h := newTestHandler(ms)

	w := doRouted(h, http.MethodGet, "/api/v1/quests/q2/chain", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var chain []types.Quest
	if err := json.Unmarshal(w.Body.Bytes(), &chain); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(chain) != 2 || chain[0].ID != "q1" || chain[1].ID != "q2" {
		t.Errorf("chain order wrong: %+v", chain)
	}
}

// --- Bulk lore ---

func TestBulkCreateLore_PartialAcceptance(t *testing.T) {
	ms := newMockStore()
	ms.batchIDs = []string{"id1"}
	h := newTestHandler(ms)

	body := `{"lore": [
		{"project_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "title": "Valid", "content": "c", "category": "EVENT"},
		{"project_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "title": "", "content": "c", "category": "EVENT"}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lore/bulk", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.BulkCreateLore(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var result types.BulkLoreResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Accepted != 1 || result.Rejected != 1 {
		t.Errorf("accepted=%d rejected=%d, want 1/1", result.Accepted, result.Rejected)
	}
	if len(result.Errors) == 0 {
		t.Error("expected per-index errors for the rejected entry")
	}
	if len(ms.batchEntries) != 1 {
		t.Errorf("store received %d entries, want only the valid one", len(ms.batchEntries))
	}
}

// --- Search ---

func TestSearch_ReturnsScoredMatches(t *testing.T) {
	ms := newMockStore()
	ms.lore["l1"] = types.LoreEntry{ID: "l1", ProjectID: "p1", Title: "The Sundering"}
	h := newTestHandler(ms)
	h.index = &mockIndex{matches: []vector.Match{{ID: "l1", Score: 0.92}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=sundering&project_id=p1", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Matches []types.SearchMatch `json:"matches"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].ID != "l1" {
		t.Fatalf("matches = %+v, want l1", resp.Matches)
	}
	if resp.Matches[0].Score != 0.92 {
		t.Errorf("score = %f, want 0.92", resp.Matches[0].Score)
	}

	// The embedding call was ledgered
	if len(ms.recordedCalls) != 1 {
		t.Fatalf("recorded %d ledger rows, want 1", len(ms.recordedCalls))
	}
	call := ms.recordedCalls[0]
	if call.Provider != "openai" || call.Operation != "embed" || call.Status != types.CallOK {
		t.Errorf("ledger row = %+v", call)
	}
	if call.InputUnits != 7 {
		t.Errorf("InputUnits = %d, want 7 (embedder token count)", call.InputUnits)
	}
}

func TestSearch_MissingQuery(t *testing.T) {
	h := newTestHandler(newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearch_SkipsDeletedLore(t *testing.T) {
	// The index returns an ID whose row was deleted since indexing
	ms := newMockStore()
	h := newTestHandler(ms)
	h.index = &mockIndex{matches: []vector.Match{{ID: "gone", Score: 0.9}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Matches []types.SearchMatch `json:"matches"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Matches) != 0 {
		t.Errorf("matches = %+v, want empty", resp.Matches)
	}
}

// --- Generation & rate limiting ---

func TestGenerateLore_Success(t *testing.T) {
	ms := newMockStore()
	ms.projects["01ARZ3NDEKTSV4RRFFQ69G5FAV"] = types.Project{
		ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Name: "Realms", Genre: "fantasy",
	}
	h := newTestHandler(ms)

	body := `{"project_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "prompt": "a cursed forest"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/lore", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.GenerateLore(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp generateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Text != "generated" {
		t.Errorf("text = %q, want generated", resp.Text)
	}
	// gpt-4o-mini: 10 in * 15 + 20 out * 60 per-token microcents
	wantCost := int64(150 + 1200)
	if resp.CostMicrocents != wantCost {
		t.Errorf("cost = %d, want %d", resp.CostMicrocents, wantCost)
	}
	if len(ms.recordedCalls) != 1 || ms.recordedCalls[0].Status != types.CallOK {
		t.Errorf("ledger rows = %+v", ms.recordedCalls)
	}
}

func TestGenerateLore_RateLimitedReturns429(t *testing.T) {
	ms := newMockStore()
	ms.projects["01ARZ3NDEKTSV4RRFFQ69G5FAV"] = types.Project{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Name: "Realms"}
	h := newTestHandler(ms)
	h.limiter = ratelimit.New(ratelimit.Limits{
		PerMinute: 1, PerHour: 10, PerDay: 10, MonthlyBudgetMicrocents: 1_000_000,
	})
	h.limiter.Record(provider.NameOpenAI, provider.OpGenerate, 0) // window now full

	body := `{"project_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "prompt": "x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/lore", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.GenerateLore(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header on window denial")
	}
	// Denied call is ledgered as rate_limited with zero cost
	if len(ms.recordedCalls) != 1 {
		t.Fatalf("recorded %d ledger rows, want 1", len(ms.recordedCalls))
	}
	call := ms.recordedCalls[0]
	if call.Status != types.CallRateLimited || call.CostMicrocents != 0 {
		t.Errorf("ledger row = %+v, want rate_limited at zero cost", call)
	}
}

func TestGenerateLore_UnknownProvider(t *testing.T) {
	ms := newMockStore()
	ms.projects["01ARZ3NDEKTSV4RRFFQ69G5FAV"] = types.Project{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV", Name: "R"}
	h := newTestHandler(ms)

	body := `{"project_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV", "prompt": "x", "provider": "hal9000"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/lore", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.GenerateLore(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGenerateDialogue_UsesNPCPersona(t *testing.T) {
	ms := newMockStore()
	ms.npcs["01BX5ZZKBKACTAV9WEVGEMMVRZ"] = types.NPC{
		ID: "01BX5ZZKBKACTAV9WEVGEMMVRZ", ProjectID: "p1",
		Name: "Karth", Persona: "gruff blacksmith",
	}
	h := newTestHandler(ms)

	body := `{"npc_id": "01BX5ZZKBKACTAV9WEVGEMMVRZ", "prompt": "greet the player"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate/dialogue", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.GenerateDialogue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if len(ms.recordedCalls) != 1 {
		t.Errorf("recorded %d ledger rows, want 1", len(ms.recordedCalls))
	}
}

// --- Usage ---

func TestUsage_InvalidWindow(t *testing.T) {
	h := newTestHandler(newMockStore())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage?window=year", nil)
	w := httptest.NewRecorder()
	h.Usage(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUsageLimits_ReportsTrackedOperations(t *testing.T) {
	h := newTestHandler(newMockStore())
	h.limiter.Record("openai", "generate", 100)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/usage/limits", nil)
	w := httptest.NewRecorder()
	h.UsageLimits(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Operations []ratelimit.Headroom `json:"operations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Operations) != 1 {
		t.Fatalf("operations = %+v, want one tracked pair", resp.Operations)
	}
	if resp.Operations[0].Provider != "openai" || resp.Operations[0].MinuteRemaining != 99 {
		t.Errorf("headroom = %+v", resp.Operations[0])
	}
}

// --- Field selection ---

func TestFieldSelection_FiltersResponse(t *testing.T) {
	ms := newMockStore()
	ms.projects["p1"] = types.Project{ID: "p1", Name: "Realms", Slug: "realms", Genre: "fantasy"}
	h := newTestHandler(ms)

	w := doRouted(h, http.MethodGet, "/api/v1/projects/p1?fields=name", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var decoded map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["name"] != "Realms" {
		t.Errorf("name = %v, want Realms", decoded["name"])
	}
	if decoded["id"] != "p1" {
		t.Error("id must always be included in field selections")
	}
	if _, ok := decoded["genre"]; ok {
		t.Error("genre leaked through field selection")
	}
}

// doRouted sends a request through the full router with auth.
func doRouted(h *Handler, method, target, body string) *httptest.ResponseRecorder {
	router := NewRouter(h)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Authorization", "Bearer test-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
