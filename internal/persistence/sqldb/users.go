package sqldb

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/workforce/internal/persistence"
)

const userColumns = `u.id, u.name, u.username, u.password_hash, u.role_id, r.name, u.created_at`

const userSelect = `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id`

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user persistence.User) error {
	if user.ID == "" || user.PasswordHash == "" {
		return fmt.Errorf("sqldb: user id and password hash are required")
	}
	_, err := s.exec(ctx,
		`INSERT INTO users (id, name, username, password_hash, role_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, normalizeUsername(user.Username), user.PasswordHash, user.RoleID, formatTime(user.CreatedAt),
	)
	return err
}

// UpdateUser writes name, username and role. The password hash changes
// only when a new one is supplied.
func (s *Store) UpdateUser(ctx context.Context, user persistence.User) error {
	if user.PasswordHash == "" {
		return s.execAffecting(ctx,
			`UPDATE users SET name = ?, username = ?, role_id = ? WHERE id = ?`,
			user.Name, normalizeUsername(user.Username), user.RoleID, user.ID,
		)
	}
	return s.execAffecting(ctx,
		`UPDATE users SET name = ?, username = ?, role_id = ?, password_hash = ? WHERE id = ?`,
		user.Name, normalizeUsername(user.Username), user.RoleID, user.PasswordHash, user.ID,
	)
}

func (s *Store) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return s.scanUser(s.queryRow(ctx, userSelect+` WHERE u.id = ?`, id))
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (persistence.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return s.scanUser(s.queryRow(ctx, userSelect+` WHERE u.username = ?`, username))
}

// ListUsers returns users ordered by creation time. A non-positive limit
// returns every user.
func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]persistence.User, error) {
	clause, args := pageClause(offset, limit)
	rows, err := s.query(ctx, userSelect+` ORDER BY u.created_at, u.id`+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, s.mapper.MapError(rows.Err())
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, s.mapper.MapError(err)
	}
	return n, nil
}

// DeleteUser removes a user; sessions, shifts and requests cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.execAffecting(ctx, `DELETE FROM users WHERE id = ?`, id)
}

func (s *Store) scanUser(row rowScanner) (persistence.User, error) {
	var (
		user      persistence.User
		createdAt string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.RoleID, &user.RoleName, &createdAt); err != nil {
		return persistence.User{}, s.mapper.MapError(err)
	}
	var err error
	if user.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.User{}, err
	}
	return user, nil
}

func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}
