package models

import "time"

// Post is a single publication. PubDate is set once on insert.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	PubDate  time.Time `gorm:"not null;index:idx_posts_pub_date,sort:desc;autoCreateTime" json:"pub_date"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id,omitempty"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is the storage key of the attachment, empty when none.
	Image    string `gorm:"size:255" json:"-"`
	ImageURL string `gorm:"-" json:"image_url,omitempty"`
	// CommentsCount is not persisted; filled on detail reads
	CommentsCount int64 `gorm:"-" json:"comments_count"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// Preview returns the first n characters of the text.
func (p Post) Preview(n int) string {
	r := []rune(p.Text)
	if len(r) <= n {
		return p.Text
	}
	return string(r[:n])
}
