package sqldb

import (
	"context"

	"github.com/example/workforce/internal/persistence"
)

func (s *Store) CreateDevice(ctx context.Context, device persistence.CheckinDevice) error {
	_, err := s.exec(ctx,
		`INSERT INTO checkin_devices (id, name, device_code, created_at) VALUES (?, ?, ?, ?)`,
		device.ID, device.Name, device.DeviceCode, formatTime(device.CreatedAt),
	)
	return err
}

func (s *Store) GetDeviceByCode(ctx context.Context, code string) (persistence.CheckinDevice, error) {
	if code == "" {
		return persistence.CheckinDevice{}, persistence.ErrNotFound
	}
	return s.scanDevice(s.queryRow(ctx, `SELECT id, name, device_code, created_at FROM checkin_devices WHERE device_code = ?`, code))
}

func (s *Store) ListDevices(ctx context.Context) ([]persistence.CheckinDevice, error) {
	rows, err := s.query(ctx, `SELECT id, name, device_code, created_at FROM checkin_devices ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []persistence.CheckinDevice
	for rows.Next() {
		device, err := s.scanDevice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, device)
	}
	return out, s.mapper.MapError(rows.Err())
}

func (s *Store) DeleteDevice(ctx context.Context, id string) error {
	return s.execAffecting(ctx, `DELETE FROM checkin_devices WHERE id = ?`, id)
}

func (s *Store) scanDevice(row rowScanner) (persistence.CheckinDevice, error) {
	var (
		device    persistence.CheckinDevice
		createdAt string
	)
	if err := row.Scan(&device.ID, &device.Name, &device.DeviceCode, &createdAt); err != nil {
		return persistence.CheckinDevice{}, s.mapper.MapError(err)
	}
	var err error
	device.CreatedAt, err = parseTime("created_at", createdAt)
	return device, err
}
