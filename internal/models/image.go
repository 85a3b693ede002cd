package models

import (
	"slices"
	"strings"
	"time"
)

// minTagLength is exclusive: only tokens longer than this become tags.
const minTagLength = 3

// UserRef is an image owner as rendered to clients.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type Image struct {
	ID         string    `json:"id"`
	Prompt     string    `json:"prompt"`
	ImageURL   string    `json:"imageUrl"`
	CreatedBy  UserRef   `json:"createdBy"`
	Likes      []string  `json:"likes"`
	Public     bool      `json:"public"`
	Tags       []string  `json:"tags"`
	IsFallback bool      `json:"isFallback"`
	CreatedAt  time.Time `json:"createdAt"`
}

// VisibleTo reports whether id may read the image. A nil identity is anonymous.
func (img Image) VisibleTo(id *Identity) bool {
	if img.Public {
		return true
	}
	return id != nil && (id.ID == img.CreatedBy.ID || id.IsAdmin())
}

// DeletableBy reports whether id may remove the image.
func (img Image) DeletableBy(id Identity) bool {
	return id.ID == img.CreatedBy.ID || id.IsAdmin()
}

// HasLike reports whether userID is in likes.
func HasLike(likes []string, userID string) bool {
	return slices.Contains(likes, userID)
}

// DeriveTags splits prompt on whitespace and keeps tokens longer than three
// characters, in prompt order.
func DeriveTags(prompt string) []string {
	tags := []string{}
	for _, tok := range strings.Fields(prompt) {
		if len([]rune(tok)) > minTagLength {
			tags = append(tags, tok)
		}
	}
	return tags
}
