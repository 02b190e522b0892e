package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DedupHash records the BLAKE3 hash of one cleaned review and whether the
// review was written. Cross-batch lookups only consider kept rows, so
// (hash, kept) is indexed together.
type DedupHash struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BatchID          uuid.UUID `gorm:"type:uuid;not null;index:idx_dedup_hashes_batch_row,priority:1" json:"batch_id"`
	OriginalRowIndex int       `gorm:"not null;index:idx_dedup_hashes_batch_row,priority:2" json:"original_row_index"`
	Hash             string    `gorm:"type:varchar(64);not null;index:idx_dedup_hashes_hash_kept,priority:1" json:"hash"`
	Kept             bool      `gorm:"not null;index:idx_dedup_hashes_hash_kept,priority:2" json:"kept"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`

	Batch *Batch `gorm:"foreignKey:BatchID" json:"-"`
}

func (DedupHash) TableName() string {
	return "dedup_hashes"
}

// BeforeCreate assigns an ID when the caller left it empty
func (d *DedupHash) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

