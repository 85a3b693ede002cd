package postgres

import (
	repo "github.com/baharkarakas/imagegen-backend/internal/repository"
)

type Repositories struct {
	Users     repo.Users
	Images    repo.Images
	AuditLogs repo.AuditLogs
}

func NewRepositories(db DBInterface) Repositories {
	return Repositories{
		Users:     NewUsers(db),
		Images:    NewImages(db),
		AuditLogs: NewAuditLogs(db),
	}
}
