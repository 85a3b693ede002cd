package models

import "time"

const (
	AuditImageCreated   = "image.created"
	AuditImageLiked     = "image.liked"
	AuditImageUnliked   = "image.unliked"
	AuditImageDeleted   = "image.deleted"
	AuditUserRegistered = "user.registered"
)

type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	ActorID    *string        `json:"actor_id,omitempty"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
