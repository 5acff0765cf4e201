// internal/models/photo.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryAll       Category = "all"
	CategoryCourtship Category = "courtship"
	CategoryFeathers  Category = "feathers"
	CategoryNatural   Category = "natural"
	CategoryCloseup   Category = "closeup"
	CategoryDisplay   Category = "display"
	CategoryBehavior  Category = "behavior"
	CategoryHabitat   Category = "habitat"
)

// Categories is the set offered by the admin dashboard. The first entry is
// the default for new uploads.
var Categories = []Category{
	CategoryCourtship,
	CategoryFeathers,
	CategoryNatural,
	CategoryCloseup,
	CategoryDisplay,
	CategoryBehavior,
	CategoryHabitat,
}

// GalleryCategories is the filter bar of the public gallery.
var GalleryCategories = []Category{
	CategoryAll,
	CategoryCourtship,
	CategoryFeathers,
	CategoryNatural,
	CategoryCloseup,
	CategoryDisplay,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type FrameSize string

const (
	FrameSmall  FrameSize = "small"
	FrameMedium FrameSize = "medium"
	FrameLarge  FrameSize = "large"
	FrameWide   FrameSize = "wide"
)

var FrameSizes = []FrameSize{FrameSmall, FrameMedium, FrameLarge, FrameWide}

func (f FrameSize) Valid() bool {
	switch f {
	case FrameSmall, FrameMedium, FrameLarge, FrameWide:
		return true
	}
	return false
}

// PhotoDocument is one document of the "photos" collection.
type PhotoDocument struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Category    Category  `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	FrameSize   FrameSize `json:"frameSize" db:"frame_size"`
	Watermarked bool      `json:"watermarked" db:"watermarked"`
	FileName    string    `json:"fileName" db:"file_name"`
	DownloadURL string    `json:"downloadURL" db:"download_url"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// PhotoUpdate is a partial edit. Nil fields are left untouched.
type PhotoUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Category    *Category  `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
	FrameSize   *FrameSize `json:"frameSize,omitempty"`
	Watermarked *bool      `json:"watermarked,omitempty"`
}

func (u PhotoUpdate) IsEmpty() bool {
	return u.Title == nil && u.Category == nil && u.Description == nil &&
		u.FrameSize == nil && u.Watermarked == nil
}

func (u PhotoUpdate) ApplyDocument(doc *PhotoDocument) {
	if u.Title != nil {
		doc.Title = *u.Title
	}
	if u.Category != nil {
		doc.Category = *u.Category
	}
	if u.Description != nil {
		doc.Description = *u.Description
	}
	if u.FrameSize != nil {
		doc.FrameSize = *u.FrameSize
	}
	if u.Watermarked != nil {
		doc.Watermarked = *u.Watermarked
	}
}

func (u PhotoUpdate) ApplyRecord(rec *PhotoRecord) {
	if u.Title != nil {
		rec.Title = *u.Title
	}
	if u.Category != nil {
		rec.Category = *u.Category
	}
	if u.Description != nil {
		rec.Description = *u.Description
	}
	if u.FrameSize != nil {
		rec.FrameSize = *u.FrameSize
	}
	if u.Watermarked != nil {
		rec.Watermarked = *u.Watermarked
	}
}

// TempIDPrefix marks identifiers of records that have not been persisted yet.
const TempIDPrefix = "temp-"

func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// PhotoRecord is the locally held view of one photo.
type PhotoRecord struct {
	ID          string
	Title       string
	Category    Category
	Description string
	FrameSize   FrameSize
	Watermarked bool
	// Preview is the best known representation: a blob: reference right
	// after selection, the remote URL once persisted, a data: URI after
	// watermarking.
	Preview   string
	RemoteURL string
	FileName  string
	// CreatedAt is zero for pending records.
	CreatedAt time.Time
}

func (r PhotoRecord) Pending() bool {
	return IsTempID(r.ID)
}

// RecordFromDocument materializes a durable record from a stored document.
func RecordFromDocument(doc PhotoDocument) PhotoRecord {
	return PhotoRecord{
		ID:          doc.ID,
		Title:       doc.Title,
		Category:    doc.Category,
		Description: doc.Description,
		FrameSize:   doc.FrameSize,
		Watermarked: doc.Watermarked,
		Preview:     doc.DownloadURL,
		RemoteURL:   doc.DownloadURL,
		FileName:    doc.FileName,
		CreatedAt:   doc.CreatedAt,
	}
}
