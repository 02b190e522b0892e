package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Batch statuses
const (
	BatchStatusUploaded      = "uploaded"
	BatchStatusCleaning      = "cleaning"
	BatchStatusDeduplicating = "deduplicating"
	BatchStatusCompleted     = "completed"
	BatchStatusFailed        = "failed"
)

// Batch records one run of the refinery over an input file
type Batch struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OriginalFilename string     `gorm:"type:varchar(500);not null" json:"original_filename"`
	FilePath         string     `gorm:"type:text" json:"file_path"`
	OutputPath       string     `gorm:"type:text" json:"output_path"`
	FileHash         string     `gorm:"type:varchar(64);index;not null" json:"file_hash"`
	RefineryVersion  string     `gorm:"type:varchar(20);not null;default:'v1'" json:"refinery_version"`
	TextColumn       string     `gorm:"type:varchar(255)" json:"text_column"`
	Status           string     `gorm:"type:varchar(50);not null;default:'uploaded'" json:"status"`
	TotalRecords     int        `gorm:"default:0" json:"total_records"`
	ProcessedRecords int        `gorm:"default:0" json:"processed_records"`
	DuplicateRecords int        `gorm:"default:0" json:"duplicate_records"`
	CacheHits        int        `gorm:"default:0" json:"cache_hits"`
	ErrorMessage     string     `gorm:"type:text" json:"error_message,omitempty"`
	Config           JSONB      `gorm:"type:jsonb" json:"config"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`

	// Relations
	DedupHashes []DedupHash `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"dedup_hashes,omitempty"`
}

// TableName specifies the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// BeforeCreate GORM hook - called before creating a record
func (b *Batch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the batch has finished, successfully or not
func (b *Batch) IsTerminal() bool {
	return b.Status == BatchStatusCompleted || b.Status == BatchStatusFailed
}

// ValidStatuses returns list of valid batch statuses
func ValidStatuses() []string {
	return []string{
		BatchStatusUploaded,
		BatchStatusCleaning,
		BatchStatusDeduplicating,
		BatchStatusCompleted,
		BatchStatusFailed,
	}
}

// IsValidStatus checks if a status is valid
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// BatchProgress is a status transition with the counters known at that point
type BatchProgress struct {
	Status           string
	TotalRecords     int
	ProcessedRecords int
	DuplicateRecords int
	CacheHits        int
	OutputPath       string
	ErrorMessage     string
}
