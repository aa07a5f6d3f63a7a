package models

import "time"

// Article is owned by exactly one author. Slug is assigned once at creation.
type Article struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"-" gorm:"type:varchar(36);not null;index"`
	Author    User      `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Excerpt   string    `json:"excerpt" gorm:"type:varchar(255);not null;default:''"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Slug      string    `json:"slug" gorm:"uniqueIndex;type:varchar(60);not null"`
	SourceURL *string   `json:"source_url" gorm:"type:varchar(200)"`
	ImageMain *string   `json:"image_main" gorm:"type:varchar(100)"`
	IsPublic  bool      `json:"is_public" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Tags       []Tag      `json:"tags" gorm:"many2many:article_tags"`
	Categories []Category `json:"categories" gorm:"many2many:article_categories"`
}

// ArticleTag is the explicit join row between articles and tags.
type ArticleTag struct {
	ArticleID string `gorm:"primaryKey;type:varchar(36)"`
	TagID     string `gorm:"primaryKey;type:varchar(36);index"`
}

// ArticleCategory is the explicit join row between articles and categories.
type ArticleCategory struct {
	ArticleID  string `gorm:"primaryKey;type:varchar(36)"`
	CategoryID string `gorm:"primaryKey;type:varchar(36);index"`
}
