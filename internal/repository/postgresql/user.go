package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"gitlab.com/teranga/resolution/internal/db"
	"gitlab.com/teranga/resolution/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type UserRepo struct {
	db db.DB
}

func NewUserRepo(db db.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) CreateUser(ctx context.Context, id, username, password, role string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		"INSERT INTO users (id, username, password, role) VALUES ($1, $2, $3, $4)",
		id, username, string(hashedPassword), role)
	return err
}

// Authenticate verifies the basic-auth credentials and returns the principal.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (*repository.User, error) {
	var user repository.User
	err := r.db.Get(ctx, &user,
		"SELECT id, username, password, role FROM users WHERE username = $1", username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, repository.ErrObjectNotFound
	}
	user.Password = ""
	return &user, nil
}
