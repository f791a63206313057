package store

import (
	"context"
	"time"

	"github.com/hyperengineering/fableforge/internal/types"
)

// Counts holds entity counts for the health endpoint.
type Counts struct {
	Projects int64
	Quests   int64
	Lore     int64
	NPCs     int64
}

// Store defines the interface contract for all persistence operations.
type Store interface {
	// Projects
	CreateProject(ctx context.Context, p types.NewProject) (*types.Project, error)
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]types.Project, error)
	UpdateProject(ctx context.Context, id string, p types.NewProject) (*types.Project, error)
	DeleteProject(ctx context.Context, id string) error

	// Quests
	CreateQuest(ctx context.Context, q types.NewQuest) (*types.Quest, error)
	GetQuest(ctx context.Context, id string) (*types.Quest, error)
	ListQuests(ctx context.Context, projectID string) ([]types.Quest, error)
	UpdateQuest(ctx context.Context, id string, q types.NewQuest) (*types.Quest, error)
	DeleteQuest(ctx context.Context, id string) error

	// Lore
	CreateLore(ctx context.Context, l types.NewLoreEntry) (*types.LoreEntry, error)
	CreateLoreBatch(ctx context.Context, entries []types.NewLoreEntry) ([]string, error)
	GetLore(ctx context.Context, id string) (*types.LoreEntry, error)
	ListLore(ctx context.Context, projectID string) ([]types.LoreEntry, error)
	UpdateLore(ctx context.Context, id string, l types.NewLoreEntry) (*types.LoreEntry, error)
	DeleteLore(ctx context.Context, id string) error
	GetPendingLoreEmbeddings(ctx context.Context, limit int) ([]types.LoreEntry, error)
	UpdateLoreEmbedding(ctx context.Context, id string, embedding []float32) error
	MarkLoreEmbeddingFailed(ctx context.Context, id string) error
	ListEmbeddedLore(ctx context.Context, projectID string) ([]types.LoreEntry, error)

	// NPCs
	CreateNPC(ctx context.Context, n types.NewNPC) (*types.NPC, error)
	GetNPC(ctx context.Context, id string) (*types.NPC, error)
	ListNPCs(ctx context.Context, projectID string) ([]types.NPC, error)
	UpdateNPC(ctx context.Context, id string, n types.NewNPC) (*types.NPC, error)
	DeleteNPC(ctx context.Context, id string) error
	SetNPCAssets(ctx context.Context, id string, modelAssetID, voiceAssetID *string) error

	// Manifests
	CreateManifest(ctx context.Context, m types.NewManifest) (*types.Manifest, error)
	GetManifest(ctx context.Context, id string) (*types.Manifest, error)
	GetManifestByVersion(ctx context.Context, projectID string, version int64) (*types.Manifest, error)
	ListManifests(ctx context.Context, projectID string) ([]types.Manifest, error)

	// Voice assets
	CreateVoiceAsset(ctx context.Context, a types.VoiceAsset) (*types.VoiceAsset, error)
	GetVoiceAsset(ctx context.Context, id string) (*types.VoiceAsset, error)
	ListVoiceAssets(ctx context.Context, projectID string) ([]types.VoiceAsset, error)
	DeleteVoiceAsset(ctx context.Context, id string) error

	// AI usage ledger (append-only)
	RecordServiceCall(ctx context.Context, call types.ServiceCall) (*types.ServiceCall, error)
	ListServiceCallsSince(ctx context.Context, since time.Time) ([]types.ServiceCall, error)
	UsageSummary(ctx context.Context, since time.Time) (*types.UsageSummary, error)
	MonthlySpend(ctx context.Context, monthStart time.Time) (int64, error)

	GetCounts(ctx context.Context) (*Counts, error)
	Close() error
}
