package supabase

import (
	"context"
	"fmt"

	"calendai/ai-calendar/store"
	"calendai/ai-calendar/types"
)

type userRow struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

func (r userRow) toUser() types.User {
	return types.User{ID: r.ID, Username: r.Username, PasswordHash: r.Password, Email: r.Email}
}

func (s *Store) AddUser(ctx context.Context, user types.User) (int64, error) {
	row := userRow{Username: user.Username, Password: user.PasswordHash, Email: user.Email}

	resp, _, err := s.client.From("users").Insert(row, false, "", "representation", "").Execute()
	if isUniqueViolation(err) {
		return 0, store.ErrDuplicateUser
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add user: %w", err)
	}

	var created []userRow
	if err := decodeRows(resp, &created); err != nil {
		return 0, err
	}
	if len(created) == 0 {
		return 0, fmt.Errorf("failed to add user: no row returned")
	}
	return created[0].ID, nil
}

func (s *Store) GetUser(ctx context.Context, username string) (types.User, error) {
	return s.findUser("username", username)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (types.User, error) {
	return s.findUser("id", itoa(id))
}

func (s *Store) findUser(column, value string) (types.User, error) {
	resp, _, err := s.client.From("users").
		Select("id, username, password, email", "", false).
		Eq(column, value).
		Limit(1, "").
		Execute()
	if err != nil {
		return types.User{}, fmt.Errorf("failed to fetch user: %w", err)
	}

	var rows []userRow
	if err := decodeRows(resp, &rows); err != nil {
		return types.User{}, err
	}
	if len(rows) == 0 {
		return types.User{}, store.ErrNotFound
	}
	return rows[0].toUser(), nil
}
