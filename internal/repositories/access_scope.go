package repositories

import (
	"cms/internal/models"

	"gorm.io/gorm"
)

// AccessScope is the read-visibility rule for articles derived from the caller.
type AccessScope struct {
	UserID  string
	IsStaff bool
}

// ScopeFor builds the access scope of an authenticated user.
func ScopeFor(user *models.User) AccessScope {
	return AccessScope{UserID: user.ID, IsStaff: user.IsStaff}
}

// Visible is a GORM scope: staff see every article, everyone else sees
// public articles plus their own.
func (s AccessScope) Visible(db *gorm.DB) *gorm.DB {
	if s.IsStaff {
		return db
	}
	return db.Where("articles.is_public = ? OR articles.author_id = ?", true, s.UserID)
}

// CanEdit reports whether the caller may modify or delete the article.
func (s AccessScope) CanEdit(article *models.Article) bool {
	return s.IsStaff || (s.UserID != "" && article.AuthorID == s.UserID)
}
