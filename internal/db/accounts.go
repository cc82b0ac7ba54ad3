package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/NileshSanyal/supermart-backend/internal/model"
)

const accountColumns = `id, email, password_hash, is_admin, google_id, google_name, created_at, updated_at`

func (db *Postgres) CreateAccount(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (id, email, password_hash, is_admin, google_id, google_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	googleID, googleName := googleColumns(account.Google)
	err := db.Pool.QueryRow(ctx, query,
		account.ID,
		account.Email,
		account.PasswordHash,
		account.IsAdmin,
		googleID,
		googleName,
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	return translate(err)
}

func (db *Postgres) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(db.Pool.QueryRow(ctx, query, id))
}

func (db *Postgres) ListAccounts(ctx context.Context, offset, limit int) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC OFFSET $1 LIMIT $2`
	rows, err := db.Pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []model.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *account)
	}
	return list, rows.Err()
}

func (db *Postgres) UpdatePasswordHash(ctx context.Context, email, passwordHash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE email = $1
	`
	tag, err := db.Pool.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *Postgres) SetGoogleProfile(ctx context.Context, id string, profile model.GoogleProfile) error {
	query := `
		UPDATE accounts
		SET google_id = $2, google_name = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := db.Pool.Exec(ctx, query, id, profile.GoogleID, profile.UserName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		account    model.Account
		googleID   *string
		googleName *string
	)
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&account.IsAdmin,
		&googleID,
		&googleName,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	if googleID != nil {
		account.Google = &model.GoogleProfile{GoogleID: *googleID}
		if googleName != nil {
			account.Google.UserName = *googleName
		}
	}
	return &account, nil
}

func googleColumns(profile *model.GoogleProfile) (*string, *string) {
	if profile == nil || profile.GoogleID == "" {
		return nil, nil
	}
	name := profile.UserName
	return &profile.GoogleID, &name
}
