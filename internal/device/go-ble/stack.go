package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/gattpanel/internal/device"
	"github.com/srg/gattpanel/internal/groutine"
)

// DefaultConnectTimeout bounds a single dial when no timeout is configured.
const DefaultConnectTimeout = 30 * time.Second

// gattClient is the part of ble.Client the stack relies on.
type gattClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	CancelConnection() error
}

// dialFunc opens a GATT client connection to the peripheral at address.
type dialFunc func(ctx context.Context, address string) (gattClient, error)

// Stack is a device.Stack backed by go-ble. Services are reported as bare
// identifiers, the way CoreBluetooth exposes them.
type Stack struct {
	clients        *hashmap.Map[string, gattClient]
	dial           dialFunc
	connectTimeout time.Duration
	logger         *logrus.Logger

	initOnce sync.Once
	initErr  error
}

// Option configures a Stack.
type Option func(*Stack)

// WithConnectTimeout sets the dial timeout. Zero keeps the default.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Stack) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithLogger sets the stack logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Stack) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStack creates a go-ble stack. The host device is created lazily on first connect.
func NewStack(opts ...Option) *Stack {
	s := &Stack{
		clients:        hashmap.New[string, gattClient](),
		connectTimeout: DefaultConnectTimeout,
		logger:         logrus.New(),
	}
	s.dial = s.dialDevice
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shape reports that go-ble services are plain identifiers.
func (s *Stack) Shape() device.ServiceShape {
	return device.ShapeIdentifiers
}

func (s *Stack) initDevice() error {
	s.initOnce.Do(func() {
		dev, err := DeviceFactory()
		if err != nil {
			s.initErr = fmt.Errorf("failed to create BLE device: %w", err)
			return
		}
		ble.SetDefaultDevice(dev)
	})
	return s.initErr
}

func (s *Stack) dialDevice(ctx context.Context, address string) (gattClient, error) {
	if err := s.initDevice(); err != nil {
		return nil, err
	}
	client, err := ble.Dial(ctx, ble.NewAddr(address))
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Connect dials the peripheral and keeps the client for later calls.
func (s *Stack) Connect(ctx context.Context, id string) error {
	if _, ok := s.clients.Get(id); ok {
		s.logger.WithField("address", id).Warn("Connection attempt while already connected")
		return device.ErrAlreadyConnected
	}

	s.logger.WithFields(logrus.Fields{
		"address": id,
		"timeout": s.connectTimeout,
	}).Info("Connecting to BLE device...")

	connCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	client, err := s.dial(connCtx, id)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"address": id,
			"error":   err,
		}).Error("Failed to dial BLE device")
		return fmt.Errorf("failed to connect to device with address %q: %w", id, NormalizeError(err))
	}

	if !s.clients.Insert(id, client) {
		// A concurrent Connect won the race; keep its client.
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			s.logger.WithField("error", cancelErr).Warn("Failed to cancel duplicate connection")
		}
		return device.ErrAlreadyConnected
	}

	s.logger.WithField("address", id).Info("BLE device connected")
	return nil
}

// RetrieveServices discovers the GATT profile of a connected peripheral.
// go-ble discovery does not take a context, so cancellation abandons the
// pending discovery instead of interrupting it.
func (s *Stack) RetrieveServices(ctx context.Context, id string) (*device.ServiceInfo, error) {
	client, ok := s.clients.Get(id)
	if !ok {
		return nil, device.ErrNotConnected
	}

	s.logger.WithField("address", id).Debug("Discovering services and characteristics...")

	profile, err := groutine.Await(ctx, "goble-discover-profile", func(ctx context.Context) (*ble.Profile, error) {
		s.logger.WithFields(logrus.Fields{
			"address":   id,
			"goroutine": groutine.Name(ctx),
		}).Debug("Profile discovery started")
		return client.DiscoverProfile(true)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		s.logger.WithFields(logrus.Fields{
			"address": id,
			"error":   err,
		}).Error("Failed to discover profile")
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	info := ServiceInfoFromProfile(profile)
	s.logger.WithFields(logrus.Fields{
		"address":         id,
		"services":        len(info.ServiceIDs),
		"characteristics": len(info.Characteristics),
	}).Debug("Profile discovered successfully")
	return info, nil
}

// Disconnect cancels the connection. Unknown ids are ignored.
func (s *Stack) Disconnect(_ context.Context, id string) error {
	client, ok := s.clients.Get(id)
	if !ok {
		s.logger.WithField("address", id).Debug("Disconnect called but already disconnected")
		return nil
	}
	s.clients.Del(id)

	s.logger.WithField("address", id).Info("Disconnecting BLE device...")
	if err := client.CancelConnection(); err != nil {
		s.logger.WithFields(logrus.Fields{
			"address": id,
			"error":   err,
		}).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}

	s.logger.WithField("address", id).Info("BLE device disconnected successfully")
	return nil
}

// ServiceInfoFromProfile flattens a go-ble profile into identifier-shaped service info.
func ServiceInfoFromProfile(profile *ble.Profile) *device.ServiceInfo {
	info := &device.ServiceInfo{
		Shape:           device.ShapeIdentifiers,
		ServiceIDs:      []string{},
		Characteristics: []device.CharacteristicRef{},
	}
	if profile == nil {
		return info
	}

	for _, svc := range profile.Services {
		if svc == nil {
			continue
		}
		svcUUID := device.NormalizeUUID(svc.UUID.String())
		info.ServiceIDs = append(info.ServiceIDs, svcUUID)

		for _, char := range svc.Characteristics {
			if char == nil {
				continue
			}
			ref := device.CharacteristicRef{
				Service:    svcUUID,
				UUID:       device.NormalizeUUID(char.UUID.String()),
				Properties: PropertyNames(char.Property),
				Handle:     char.ValueHandle,
			}
			for _, d := range char.Descriptors {
				if d == nil {
					continue
				}
				ref.Descriptors = append(ref.Descriptors, device.NormalizeUUID(d.UUID.String()))
			}
			info.Characteristics = append(info.Characteristics, ref)
		}
	}
	return info
}
