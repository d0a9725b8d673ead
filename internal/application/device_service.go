package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DeviceRepository stores registered check-in displays.
type DeviceRepository interface {
	CreateDevice(ctx context.Context, device CheckinDevice) (CheckinDevice, error)
	GetDeviceByCode(ctx context.Context, deviceCode string) (CheckinDevice, error)
	ListDevices(ctx context.Context) ([]CheckinDevice, error)
	DeleteDevice(ctx context.Context, id string) error
}

// CodeSource exposes the code devices should display.
type CodeSource interface {
	Current() string
}

// DeviceService serves the rotating check-in code to registered devices.
// Devices authenticate with their static device code, never with a session.
type DeviceService struct {
	devices       DeviceRepository
	codes         CodeSource
	idGenerator   func() string
	codeGenerator func() (string, error)
	now           func() time.Time
	audit         *AuditTrail
	logger        *slog.Logger
}

// NewDeviceService wires device registration and the device code lookup.
func NewDeviceService(devices DeviceRepository, codes CodeSource, idGenerator func() string, now func() time.Time, audit *AuditTrail, logger *slog.Logger) *DeviceService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DeviceService{
		devices:       devices,
		codes:         codes,
		idGenerator:   idGenerator,
		codeGenerator: TokenGenerator(32),
		now:           now,
		audit:         audit,
		logger:        defaultLogger(logger),
	}
}

// CurrentCode returns the live check-in code for a registered device.
func (s *DeviceService) CurrentCode(ctx context.Context, deviceCode string) (string, error) {
	if s == nil || s.devices == nil || s.codes == nil {
		return "", fmt.Errorf("DeviceService is not configured")
	}
	deviceCode = strings.TrimSpace(deviceCode)
	if deviceCode == "" {
		return "", ErrNotFound
	}
	device, err := s.devices.GetDeviceByCode(ctx, deviceCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			serviceLogger(ctx, s.logger, "DeviceService", "CurrentCode").WarnContext(ctx, "unknown device code presented")
		}
		return "", err
	}
	serviceLogger(ctx, s.logger, "DeviceService", "CurrentCode", "device_id", device.ID).DebugContext(ctx, "code served")
	return s.codes.Current(), nil
}

// Register adds a device. When deviceCode is empty a random one is generated.
func (s *DeviceService) Register(ctx context.Context, principal Principal, name, deviceCode string) (device CheckinDevice, err error) {
	logger := serviceLogger(ctx, s.logger, "DeviceService", "Register", "principal_id", principal.UserID)
	defer func() { logOutcome(ctx, logger, err, "device registration", "device_id", device.ID) }()

	if !Allow(&principal, ActionAdminister, "") {
		err = ErrForbidden
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		err = &ValidationError{FieldErrors: map[string]string{"name": "name is required"}}
		return
	}
	deviceCode = strings.TrimSpace(deviceCode)
	if deviceCode == "" {
		if deviceCode, err = s.codeGenerator(); err != nil {
			return
		}
	}

	device, err = s.devices.CreateDevice(ctx, CheckinDevice{
		ID:         s.idGenerator(),
		Name:       name,
		DeviceCode: deviceCode,
		CreatedAt:  s.now().UTC(),
	})
	if errors.Is(err, ErrConflict) {
		err = ErrAlreadyExists
		return
	}
	if err == nil {
		s.audit.Record(ctx, principal.UserID, "Device with id %q, was registered", device.ID)
	}
	return
}

// List returns the registered devices. Managers only.
func (s *DeviceService) List(ctx context.Context, principal Principal) ([]CheckinDevice, error) {
	if !Allow(&principal, ActionAdminister, "") {
		return nil, ErrForbidden
	}
	return s.devices.ListDevices(ctx)
}

// Delete removes a device so its code no longer resolves. Managers only.
func (s *DeviceService) Delete(ctx context.Context, principal Principal, id string) error {
	if !Allow(&principal, ActionAdminister, "") {
		return ErrForbidden
	}
	if err := s.devices.DeleteDevice(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, principal.UserID, "Device with id %q, was deleted", id)
	return nil
}
