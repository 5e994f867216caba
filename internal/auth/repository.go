package auth

import (
	"errors"
	"log"

	"quizgate/internal/apperr"
	"quizgate/internal/models"

	"gorm.io/gorm"
)

// UserStore is what the auth service needs from persistence.
type UserStore interface {
	GetUserByUsername(username string) (*models.User, error)
	UsernameTaken(username string) (bool, error)
	CreateUser(user *models.User) error
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	result := r.db.Where("username = ?", username).First(&user)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("user %q not found", username)
	}
	if result.Error != nil {
		log.Printf("Error finding user %q: %v", username, result.Error)
		return nil, result.Error
	}
	return &user, nil
}

func (r *Repository) UsernameTaken(username string) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}
