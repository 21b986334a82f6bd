package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"

	"github.com/mattn/go-sqlite3"
	"github.com/pocketbase/dbx"
)

func (d *DB) AddUser(ctx context.Context, user types.User) (int64, error) {
	res, err := d.db.Insert("users", dbx.Params{
		"username": user.Username,
		"password": user.PasswordHash,
		"email":    user.Email,
	}).WithContext(ctx).Execute()
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return 0, store.ErrDuplicateUser
		}
		return 0, fmt.Errorf("failed to add user: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) GetUser(ctx context.Context, username string) (types.User, error) {
	return d.findUser(ctx, dbx.HashExp{"username": username})
}

func (d *DB) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	return d.findUser(ctx, dbx.HashExp{"id": id})
}

func (d *DB) findUser(ctx context.Context, where dbx.Expression) (types.User, error) {
	var user types.User
	err := d.db.Select("id", "username", "password", "email").
		From("users").
		Where(where).
		WithContext(ctx).
		One(&user)
	if errors.Is(err, sql.ErrNoRows) {
		return types.User{}, store.ErrNotFound
	}
	if err != nil {
		return types.User{}, fmt.Errorf("failed to fetch user: %w", err)
	}
	return user, nil
}
