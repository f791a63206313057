package types

import (
	"encoding/json"
	"time"
)

// QuestStatus represents the lifecycle state of a quest.
type QuestStatus string

const (
	QuestDraft    QuestStatus = "draft"
	QuestActive   QuestStatus = "active"
	QuestArchived QuestStatus = "archived"
)

// LoreCategory classifies a lore entry.
type LoreCategory string

const (
	CategoryWorldHistory LoreCategory = "WORLD_HISTORY"
	CategoryFaction      LoreCategory = "FACTION"
	CategoryLocation     LoreCategory = "LOCATION"
	CategoryCharacter    LoreCategory = "CHARACTER"
	CategoryItem         LoreCategory = "ITEM"
	CategoryEvent        LoreCategory = "EVENT"
	CategoryCustom       LoreCategory = "CUSTOM"
)

// EmbeddingStatus tracks the embedding pipeline state for a lore entry.
const (
	EmbeddingPending  = "pending"
	EmbeddingComplete = "complete"
	EmbeddingFailed   = "failed"
)

// Project is the root of ownership for all content entities.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description,omitempty"`
	Genre       string     `json:"genre,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// NewProject is the input type for creating a project.
type NewProject struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	Genre       string `json:"genre,omitempty"`
}

// Quest is a unit of playable content with optional prerequisites.
type Quest struct {
	ID              string      `json:"id"`
	ProjectID       string      `json:"project_id"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary,omitempty"`
	Status          QuestStatus `json:"status"`
	PrerequisiteIDs []string    `json:"prerequisite_ids"`
	Reward          string      `json:"reward,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	DeletedAt       *time.Time  `json:"deleted_at,omitempty"`
}

// NewQuest is the input type for creating a quest.
type NewQuest struct {
	ProjectID       string      `json:"project_id"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary,omitempty"`
	Status          QuestStatus `json:"status,omitempty"`
	PrerequisiteIDs []string    `json:"prerequisite_ids,omitempty"`
	Reward          string      `json:"reward,omitempty"`
}

// LoreEntry is a discrete unit of world knowledge.
type LoreEntry struct {
	ID              string       `json:"id"`
	ProjectID       string       `json:"project_id"`
	Title           string       `json:"title"`
	Content         string       `json:"content"`
	Category        LoreCategory `json:"category"`
	Tags            []string     `json:"tags"`
	Embedding       []float32    `json:"-"`
	EmbeddingStatus string       `json:"embedding_status"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	DeletedAt       *time.Time   `json:"deleted_at,omitempty"`
}

// NewLoreEntry is the input type for creating lore entries.
type NewLoreEntry struct {
	ProjectID string       `json:"project_id"`
	Title     string       `json:"title"`
	Content   string       `json:"content"`
	Category  LoreCategory `json:"category"`
	Tags      []string     `json:"tags,omitempty"`
}

// BulkLoreResult reports the outcome of a bulk lore ingest.
// Valid entries are accepted even when others in the batch fail validation.
type BulkLoreResult struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	IDs      []string `json:"ids"`
	Errors   []string `json:"errors"`
}

// NPC is a non-player character definition.
type NPC struct {
	ID            string     `json:"id"`
	ProjectID     string     `json:"project_id"`
	Name          string     `json:"name"`
	Role          string     `json:"role,omitempty"`
	Persona       string     `json:"persona,omitempty"`
	DialogueStyle string     `json:"dialogue_style,omitempty"`
	ModelAssetID  *string    `json:"model_asset_id,omitempty"`
	VoiceAssetID  *string    `json:"voice_asset_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// NewNPC is the input type for creating an NPC.
type NewNPC struct {
	ProjectID     string `json:"project_id"`
	Name          string `json:"name"`
	Role          string `json:"role,omitempty"`
	Persona       string `json:"persona,omitempty"`
	DialogueStyle string `json:"dialogue_style,omitempty"`
}

// ManifestEntry describes a single asset inside a manifest.
type ManifestEntry struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
	Kind string `json:"kind"`
}

// Manifest is a versioned snapshot of a project's asset set.
// Version is monotonic per project and assigned by the store.
type Manifest struct {
	ID        string                   `json:"id"`
	ProjectID string                   `json:"project_id"`
	Version   int64                    `json:"version"`
	Entries   map[string]ManifestEntry `json:"entries"`
	CreatedAt time.Time                `json:"created_at"`
}

// NewManifest is the input type for publishing a manifest version.
type NewManifest struct {
	ProjectID string                   `json:"project_id"`
	Entries   map[string]ManifestEntry `json:"entries"`
}

// VoiceAsset is a stored audio asset, usually TTS output for an NPC.
type VoiceAsset struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	NPCID       *string    `json:"npc_id,omitempty"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	ObjectKey   string     `json:"object_key"`
	Transcript  string     `json:"transcript,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// CallStatus is the outcome recorded for an AI service call.
type CallStatus string

const (
	CallOK          CallStatus = "ok"
	CallFailed      CallStatus = "failed"
	CallRateLimited CallStatus = "rate_limited"
)

// UnitKind identifies what a provider bills by.
type UnitKind string

const (
	UnitTokens     UnitKind = "tokens"
	UnitCharacters UnitKind = "characters"
	UnitCredits    UnitKind = "credits"
)

// ServiceCall is one row in the append-only AI usage ledger.
type ServiceCall struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	Operation      string     `json:"operation"`
	Model          string     `json:"model,omitempty"`
	ProjectID      string     `json:"project_id,omitempty"`
	InputUnits     int64      `json:"input_units"`
	OutputUnits    int64      `json:"output_units"`
	UnitKind       UnitKind   `json:"unit_kind"`
	CostMicrocents int64      `json:"cost_microcents"`
	Status         CallStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
}

// UsageRow is one aggregated line of a usage summary.
type UsageRow struct {
	Provider       string `json:"provider"`
	Operation      string `json:"operation"`
	Calls          int64  `json:"calls"`
	Failed         int64  `json:"failed"`
	RateLimited    int64  `json:"rate_limited"`
	InputUnits     int64  `json:"input_units"`
	OutputUnits    int64  `json:"output_units"`
	CostMicrocents int64  `json:"cost_microcents"`
}

// UsageSummary is the response for a usage query.
type UsageSummary struct {
	Since               time.Time  `json:"since"`
	Rows                []UsageRow `json:"rows"`
	TotalCostMicrocents int64      `json:"total_cost_microcents"`
}

// SearchMatch is a lore entry scored against a query embedding.
type SearchMatch struct {
	LoreEntry
	Score float32 `json:"score"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	EmbeddingModel string `json:"embedding_model"`
	VectorIndex    string `json:"vector_index"`
	ProjectCount   int64  `json:"project_count"`
	QuestCount     int64  `json:"quest_count"`
	LoreCount      int64  `json:"lore_count"`
	NPCCount       int64  `json:"npc_count"`
}

// MarshalJSON ensures nil slices in Quest marshal as [] not null.
func (q Quest) MarshalJSON() ([]byte, error) {
	if q.PrerequisiteIDs == nil {
		q.PrerequisiteIDs = []string{}
	}
	type Alias Quest
	return json.Marshal(Alias(q))
}

// MarshalJSON ensures nil slices in LoreEntry marshal as [] not null.
func (l LoreEntry) MarshalJSON() ([]byte, error) {
	if l.Tags == nil {
		l.Tags = []string{}
	}
	type Alias LoreEntry
	return json.Marshal(Alias(l))
}

// MarshalJSON ensures nil slices in BulkLoreResult marshal as [] not null.
func (r BulkLoreResult) MarshalJSON() ([]byte, error) {
	if r.IDs == nil {
		r.IDs = []string{}
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	type Alias BulkLoreResult
	return json.Marshal(Alias(r))
}

// MarshalJSON ensures a nil entries map in Manifest marshals as {} not null.
func (m Manifest) MarshalJSON() ([]byte, error) {
	if m.Entries == nil {
		m.Entries = map[string]ManifestEntry{}
	}
	type Alias Manifest
	return json.Marshal(Alias(m))
}

// MarshalJSON flattens the entry fields and the score into one object.
// Without this the embedded LoreEntry marshaler would be promoted and
// the score silently dropped.
func (m SearchMatch) MarshalJSON() ([]byte, error) {
	entry, err := json.Marshal(m.LoreEntry)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(entry, &obj); err != nil {
		return nil, err
	}
	obj["score"] = m.Score
	return json.Marshal(obj)
}

// MarshalJSON ensures nil rows in UsageSummary marshal as [] not null.
func (u UsageSummary) MarshalJSON() ([]byte, error) {
	if u.Rows == nil {
		u.Rows = []UsageRow{}
	}
	type Alias UsageSummary
	return json.Marshal(Alias(u))
}
