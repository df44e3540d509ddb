package domain

import "gorm.io/gorm"

// Article is a news item attached to one or more symbols, ingested from
// the news stream.
type Article struct {
	gorm.Model
	// External article identifier from the upstream feed.
	ExternalID string `gorm:"column:external_id;type:varchar(64);uniqueIndex;not null" json:"id"`
	Headline   string `gorm:"column:headline;type:varchar(512);not null" json:"headline"`
	Summary    string `gorm:"column:summary;type:text" json:"summary"`
	Author     string `gorm:"column:author;type:varchar(128)" json:"author"`
	URL        string `gorm:"column:url;type:varchar(512)" json:"url"`
	// Comma-separated symbols the article mentions.
	Symbols string `gorm:"column:symbols;type:varchar(256);index" json:"symbols"`
	Source  string `gorm:"column:source;type:varchar(50)" json:"source"`
	// Publication time in epoch milliseconds.
	PublishedAt int64 `gorm:"column:published_at;type:bigint;not null" json:"published_at"`
}
