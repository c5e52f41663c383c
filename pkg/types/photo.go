package types

import (
	"encoding/json"
	"time"
)

// Photo represents one media item listed by Synology Photos
type Photo struct {
	ID           int64           `json:"id"`
	Filename     string          `json:"filename"`
	Filesize     int64           `json:"filesize"`
	Time         int64           `json:"time"`
	FolderID     int64           `json:"folder_id"`
	OwnerUserID  int64           `json:"owner_user_id"`
	Type         string          `json:"type"`
	IndexedTime  int64           `json:"indexed_time"`
	Additional   PhotoAdditional `json:"additional"`
	ThumbnailURL string          `json:"thumbnailUrl,omitempty"`
}

// PhotoAdditional holds the optional metadata requested with the listing
type PhotoAdditional struct {
	Thumbnail    *Thumbnail      `json:"thumbnail,omitempty"`
	Resolution   *Resolution     `json:"resolution,omitempty"`
	Orientation  *int            `json:"orientation,omitempty"`
	VideoConvert json.RawMessage `json:"video_convert,omitempty"`
	VideoMeta    json.RawMessage `json:"video_meta,omitempty"`
}

// Thumbnail describes the thumbnail cache entry of a photo
type Thumbnail struct {
	CacheKey string `json:"cache_key"`
	M        string `json:"m"`
	Preview  string `json:"preview"`
	SM       string `json:"sm"`
	UnitID   int64  `json:"unit_id"`
	XL       string `json:"xl"`
}

// Resolution is the pixel size of a photo
type Resolution struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// HasTakenTime reports whether the photo carries a capture timestamp
func (p *Photo) HasTakenTime() bool {
	return p.Time != 0
}

// TakenAt returns the capture time in loc
func (p *Photo) TakenAt(loc *time.Location) time.Time {
	return time.Unix(p.Time, 0).In(loc)
}

// PhotoGroup is one year's worth of matching photos
type PhotoGroup struct {
	Title  string  `json:"title"`
	Photos []Photo `json:"photos"`
}
