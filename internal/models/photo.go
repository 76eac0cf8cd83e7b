package models

// Photo is a static catalog entry in an album. Index is the zero-based
// position in the album ordering. ObjectKey/ThumbKey are set when the asset
// lives in S3; URL/ThumbnailURL hold direct links otherwise.
type Photo struct {
	ID           string  `json:"id"`
	AlbumID      string  `json:"album_id"`
	URL          string  `json:"url"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Title        string  `json:"title"`
	Index        int     `json:"index"`
	ObjectKey    *string `json:"-"`
	ThumbKey     *string `json:"-"`
}
