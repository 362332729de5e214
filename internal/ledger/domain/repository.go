package domain

import (
	"github.com/galette-community/plugin-stripe/pkg/repository"
)

// Repository is the stripe_history table store.
type Repository interface {
	repository.Repository[Entry]
}
