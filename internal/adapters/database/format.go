package database

import (
	"time"

	"go.trai.ch/depot/internal/core/domain"
)

// FormatVersion is the version of the index file layout.
const FormatVersion = 1

// indexFile is the on-disk shape of the database.
type indexFile struct {
	Database indexBody `json:"database"`
}

type indexBody struct {
	Version  int                    `json:"version"`
	Installs map[string]recordEntry `json:"installs"`
}

// recordEntry stores one record. Dependencies of the spec node refer to other
// entries by hash, so every referenced node has an entry of its own.
type recordEntry struct {
	Spec             domain.SpecNode `json:"spec"`
	Path             string          `json:"path"`
	Explicit         bool            `json:"explicit"`
	Installed        bool            `json:"installed"`
	InstallationTime time.Time       `json:"installation_time"`
	RefCount         int             `json:"ref_count"`
	ContentHash      string          `json:"content_hash,omitzero"`
}
