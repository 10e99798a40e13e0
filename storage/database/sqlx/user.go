package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kbindza/kalenda/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

const insertUser = `
INSERT INTO kalenda_user (id, email, name, role, is_verified, verification_token, verification_otp, verification_token_expire, created_at, updated_at)
VALUES (:id, :email, :name, :role, :is_verified, :verification_token, :verification_otp, :verification_token_expire, :created_at, :updated_at)`

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertUser, usr); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM kalenda_user WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user by id")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM kalenda_user WHERE email = $1`, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user by email")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByVerificationToken(ctx context.Context, hash string) (user.User, error) {
	if hash == "" {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM kalenda_user WHERE verification_token = $1`, hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user by verification token")
	}
	return usr, nil
}

func (repo *userRepository) GetUserByOTP(ctx context.Context, email, hash string) (user.User, error) {
	if hash == "" {
		return user.User{}, user.ErrNotFound
	}
	var usr user.User
	err := repo.db.GetContext(ctx, &usr, `SELECT * FROM kalenda_user WHERE email = $1 AND verification_otp = $2`, email, hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user by OTP")
	}
	return usr, nil
}

const updateUser = `
UPDATE kalenda_user
SET email = :email, name = :name, role = :role, is_verified = :is_verified,
    verification_token = :verification_token, verification_otp = :verification_otp,
    verification_token_expire = :verification_token_expire, updated_at = :updated_at
WHERE id = :id`

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, updateUser, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
