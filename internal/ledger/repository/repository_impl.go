package repository

import (
	"github.com/galette-community/plugin-stripe/internal/ledger/domain"
	"github.com/galette-community/plugin-stripe/pkg/repository"
	"gorm.io/gorm"
)

type repo struct {
	repository.Repository[domain.Entry]
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{
		Repository: repository.ProvideStore[domain.Entry](db, domain.Entry{}.TableName()),
	}
}
