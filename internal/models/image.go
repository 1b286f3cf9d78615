package models

// Image is an opaque reference to an asset held by the external media store.
// The backend never inspects it beyond persistence and release.
type Image struct {
	PublicID string `gorm:"column:public_id" json:"public_id,omitempty"`
	URL      string `gorm:"column:url" json:"url,omitempty"`
}

// IsZero reports whether no media reference is attached.
func (i Image) IsZero() bool {
	return i.PublicID == "" && i.URL == ""
}
