package sqldb

import (
	"context"

	"github.com/example/workforce/internal/persistence"
)

func (s *Store) CreateRole(ctx context.Context, role persistence.Role) error {
	_, err := s.exec(ctx, `INSERT INTO roles (id, name) VALUES (?, ?)`, role.ID, role.Name)
	return err
}

func (s *Store) GetRole(ctx context.Context, id string) (persistence.Role, error) {
	var role persistence.Role
	err := s.queryRow(ctx, `SELECT id, name FROM roles WHERE id = ?`, id).Scan(&role.ID, &role.Name)
	return role, s.mapper.MapError(err)
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (persistence.Role, error) {
	var role persistence.Role
	err := s.queryRow(ctx, `SELECT id, name FROM roles WHERE name = ?`, name).Scan(&role.ID, &role.Name)
	return role, s.mapper.MapError(err)
}

func (s *Store) ListRoles(ctx context.Context) ([]persistence.Role, error) {
	pairs, err := s.listNamed(ctx, `SELECT id, name FROM roles ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	roles := make([]persistence.Role, len(pairs))
	for i, p := range pairs {
		roles[i] = persistence.Role{ID: p[0], Name: p[1]}
	}
	return roles, nil
}

func (s *Store) CreateRequestType(ctx context.Context, rt persistence.RequestType) error {
	_, err := s.exec(ctx, `INSERT INTO request_types (id, name) VALUES (?, ?)`, rt.ID, rt.Name)
	return err
}

func (s *Store) GetRequestType(ctx context.Context, id string) (persistence.RequestType, error) {
	var rt persistence.RequestType
	err := s.queryRow(ctx, `SELECT id, name FROM request_types WHERE id = ?`, id).Scan(&rt.ID, &rt.Name)
	return rt, s.mapper.MapError(err)
}

func (s *Store) GetRequestTypeByName(ctx context.Context, name string) (persistence.RequestType, error) {
	var rt persistence.RequestType
	err := s.queryRow(ctx, `SELECT id, name FROM request_types WHERE name = ?`, name).Scan(&rt.ID, &rt.Name)
	return rt, s.mapper.MapError(err)
}

func (s *Store) ListRequestTypes(ctx context.Context) ([]persistence.RequestType, error) {
	pairs, err := s.listNamed(ctx, `SELECT id, name FROM request_types ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	types := make([]persistence.RequestType, len(pairs))
	for i, p := range pairs {
		types[i] = persistence.RequestType{ID: p[0], Name: p[1]}
	}
	return types, nil
}

// listNamed reads (id, name) rows.
func (s *Store) listNamed(ctx context.Context, query string) ([][2]string, error) {
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var p [2]string
		if err := rows.Scan(&p[0], &p[1]); err != nil {
			return nil, s.mapper.MapError(err)
		}
		out = append(out, p)
	}
	return out, s.mapper.MapError(rows.Err())
}
