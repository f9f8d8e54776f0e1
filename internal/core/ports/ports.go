package ports

import (
	"context"

	"implementor/internal/engine/autoload"
	"implementor/internal/engine/hierarchy"
	"implementor/internal/engine/source"
)

// SnapshotStore persists the active autoload table between runs.
type SnapshotStore interface {
	Save(ctx context.Context, st StoredTable) error
	Load(ctx context.Context) (StoredTable, bool, error)
	Close() error
}

// StoredTable is a persisted table with the fingerprint of the settings and
// manifests it was built from.
type StoredTable struct {
	Table       *autoload.Table
	Fingerprint string
}

// OutstandingRequest identifies the unit whose missing methods are wanted.
// Path is informational when Text is set; otherwise the file is read.
type OutstandingRequest struct {
	Path string
	Text string
}

// OutstandingResult is the resolved hierarchy of one unit.
type OutstandingResult struct {
	RequestID    string                   `json:"request_id"`
	Identifier   string                   `json:"identifier"`
	Entries      []hierarchy.Entry        `json:"entries"`
	Declarations []source.MethodSignature `json:"declarations"`
	Unresolved   []UnresolvedAncestor     `json:"unresolved,omitempty"`
	Cycles       []string                 `json:"cycles,omitempty"`
}

// UnresolvedAncestor is an ancestor skipped because no file backs it.
type UnresolvedAncestor struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// RefreshResult summarizes a rebuilt autoload table.
type RefreshResult struct {
	Source   string   `json:"source"`
	Roots    int      `json:"roots"`
	Classmap int      `json:"classmap"`
	Packages int      `json:"packages"`
	Warnings []string `json:"warnings,omitempty"`
}

// ImplementService is the driving port used by the CLI adapters.
type ImplementService interface {
	Outstanding(ctx context.Context, req OutstandingRequest) (OutstandingResult, error)
	RefreshAutoloads(ctx context.Context) (RefreshResult, error)
}
