package repository

import (
	"maximus/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type AuthRepository interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
}

type authRepository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewAuthRepository(db *sqlx.DB, log *zap.Logger) AuthRepository {
	return &authRepository{db: db, log: log}
}

func (r *authRepository) CreateUser(user *models.User) error {
	query := `INSERT INTO users (username, password_hash, role) VALUES ($1, $2, $3) RETURNING id, created_at`
	return r.db.QueryRowx(query, user.Username, user.PasswordHash, user.Role).Scan(&user.ID, &user.CreatedAt)
}

func (r *authRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	err := r.db.Get(&user, query, username)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
