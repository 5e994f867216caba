package auth

import (
	"errors"
	"time"

	"quizgate/internal/apperr"
	"quizgate/internal/models"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

var errInvalidToken = errors.New("invalid token")

type Service struct {
	repo      UserStore
	jwtSecret []byte
}

func NewService(repo UserStore, jwtSecret string) *Service {
	return &Service{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
	}
}

// Login answers unknown users and wrong passwords alike.
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.repo.GetUserByUsername(username)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return "", apperr.Unauthorized("invalid credentials")
	}
	if err != nil {
		return "", apperr.Unexpected(err, "load user %q", username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", apperr.Unauthorized("invalid credentials")
	}

	token, err := IssueToken(user, s.jwtSecret, tokenTTL)
	if err != nil {
		return "", apperr.Unexpected(err, "sign token for user %d", user.ID)
	}
	return token, nil
}

// Register creates teacher and student accounts. Admins are provisioned out of band.
func (s *Service) Register(user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	if user.Role != models.RoleStudent && user.Role != models.RoleTeacher {
		return apperr.Validation("role must be teacher or student")
	}

	taken, err := s.repo.UsernameTaken(user.Username)
	if err != nil {
		return apperr.Unexpected(err, "check username %q", user.Username)
	}
	if taken {
		return apperr.InvalidState("username %q is already taken", user.Username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Unexpected(err, "hash password")
	}

	user.Password = string(hashedPassword)
	if err := s.repo.CreateUser(user); err != nil {
		return apperr.Unexpected(err, "create user %q", user.Username)
	}
	return nil
}

func IssueToken(user *models.User, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(secret)
}
