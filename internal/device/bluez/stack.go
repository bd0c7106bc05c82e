// Package bluez implements device.Stack on top of BlueZ over the D-Bus system bus.
//
// BlueZ reports every GATT service as an object with its own attributes, so
// this stack produces device.ShapeStructured service info.
package bluez

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	"github.com/srg/gattpanel/internal/device"
)

const (
	DefaultAdapter      = "hci0"
	DefaultPollInterval = 100 * time.Millisecond
)

// Stack is a device.Stack backed by BlueZ.
type Stack struct {
	bus          Bus
	adapter      string
	pollInterval time.Duration
	logger       *logrus.Logger
}

// Option configures a Stack.
type Option func(*Stack)

// WithAdapter selects the host adapter (for example "hci1").
func WithAdapter(adapter string) Option {
	return func(s *Stack) {
		if adapter != "" {
			s.adapter = adapter
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

// WithPollInterval sets how often RetrieveServices re-checks ServicesResolved.
func WithPollInterval(d time.Duration) Option {
	return func(s *Stack) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewStack creates a BlueZ stack over the given bus.
func NewStack(bus Bus, opts ...Option) *Stack {
	s := &Stack{
		bus:          bus,
		adapter:      DefaultAdapter,
		pollInterval: DefaultPollInterval,
		logger:       logrus.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSystemStack connects to the D-Bus system bus and creates a stack on it.
func NewSystemStack(opts ...Option) (*Stack, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	return NewStack(NewBus(conn), opts...), nil
}

// Shape reports that BlueZ services are structured objects.
func (s *Stack) Shape() device.ServiceShape {
	return device.ShapeStructured
}

// DevicePath returns the BlueZ object path of a peripheral address on the given adapter.
func DevicePath(adapter, address string) dbus.ObjectPath {
	addr := strings.ToUpper(strings.ReplaceAll(address, ":", "_"))
	return dbus.ObjectPath("/org/bluez/" + adapter + "/dev_" + addr)
}

// Connect calls Device1.Connect on the peripheral.
func (s *Stack) Connect(ctx context.Context, id string) error {
	path := DevicePath(s.adapter, id)
	s.logger.WithFields(logrus.Fields{
		"address": id,
		"path":    path,
	}).Info("Connecting to BLE device...")

	if err := s.bus.CallDevice(ctx, path, "Connect"); err != nil {
		s.logger.WithFields(logrus.Fields{
			"address": id,
			"error":   err,
		}).Error("Device1.Connect failed")
		return fmt.Errorf("failed to connect to device with address %q: %w", id, device.NormalizeError(err))
	}

	s.logger.WithField("address", id).Info("BLE device connected")
	return nil
}

// RetrieveServices waits until BlueZ has resolved the peripheral's services and
// returns them ordered by object path, which follows the attribute handle order.
func (s *Stack) RetrieveServices(ctx context.Context, id string) (*device.ServiceInfo, error) {
	path := DevicePath(s.adapter, id)
	log := s.logger.WithFields(logrus.Fields{
		"address": id,
		"path":    path,
	})

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		objects, err := s.bus.ManagedObjects(ctx)
		if err != nil {
			log.WithField("error", err).Error("GetManagedObjects failed")
			return nil, fmt.Errorf("failed to list managed objects: %w", device.NormalizeError(err))
		}

		props, ok := objects[path][ifaceDevice]
		if !ok {
			return nil, &device.NotFoundError{Resource: "device", IDs: []string{id}}
		}
		if connected, _ := props["Connected"].Value().(bool); !connected {
			return nil, device.ErrNotConnected
		}
		if resolved, _ := props["ServicesResolved"].Value().(bool); resolved {
			info := ServiceInfoFromObjects(path, objects)
			log.WithFields(logrus.Fields{
				"services":        len(info.Services),
				"characteristics": len(info.Characteristics),
			}).Debug("Services resolved")
			return info, nil
		}

		log.Debug("Waiting for ServicesResolved...")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Disconnect calls Device1.Disconnect. A peripheral that is already
// disconnected or unknown to BlueZ is not an error.
func (s *Stack) Disconnect(ctx context.Context, id string) error {
	path := DevicePath(s.adapter, id)
	s.logger.WithField("address", id).Info("Disconnecting BLE device...")

	err := device.NormalizeError(s.bus.CallDevice(ctx, path, "Disconnect"))
	switch {
	case err == nil:
		s.logger.WithField("address", id).Info("BLE device disconnected successfully")
		return nil
	case device.IsConnectionState(err, device.NotConnected),
		strings.Contains(err.Error(), "org.freedesktop.DBus.Error.UnknownObject"):
		s.logger.WithField("address", id).Debug("Disconnect called but already disconnected")
		return nil
	default:
		s.logger.WithFields(logrus.Fields{
			"address": id,
			"error":   err,
		}).Warn("BLE device disconnected with errors")
		return err
	}
}

// ServiceInfoFromObjects collects the GATT objects below devicePath.
func ServiceInfoFromObjects(devicePath dbus.ObjectPath, objects ManagedObjects) *device.ServiceInfo {
	info := &device.ServiceInfo{
		Shape:           device.ShapeStructured,
		Services:        []*device.ServiceRecord{},
		Characteristics: []device.CharacteristicRef{},
	}

	prefix := string(devicePath) + "/"
	var servicePaths, charPaths []dbus.ObjectPath
	descriptors := make(map[dbus.ObjectPath][]dbus.ObjectPath)

	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), prefix) {
			continue
		}
		if _, ok := ifaces[ifaceService]; ok {
			servicePaths = append(servicePaths, path)
		}
		if _, ok := ifaces[ifaceCharacteristic]; ok {
			charPaths = append(charPaths, path)
		}
		if props, ok := ifaces[ifaceDescriptor]; ok {
			owner, _ := props["Characteristic"].Value().(dbus.ObjectPath)
			descriptors[owner] = append(descriptors[owner], path)
		}
	}
	sortPaths(servicePaths)
	sortPaths(charPaths)

	serviceUUIDs := make(map[dbus.ObjectPath]string, len(servicePaths))
	for _, path := range servicePaths {
		props := objects[path][ifaceService]
		uuid := device.NormalizeUUID(stringProp(props, "UUID"))
		serviceUUIDs[path] = uuid

		rec := device.NewServiceRecord(uuid)
		if primary, ok := props["Primary"].Value().(bool); ok {
			rec.Set("primary", primary)
		}
		if handle, ok := props["Handle"].Value().(uint16); ok {
			rec.Set("handle", handle)
		}
		rec.Set("path", string(path))
		info.Services = append(info.Services, rec)
	}

	for _, path := range charPaths {
		props := objects[path][ifaceCharacteristic]
		owner, _ := props["Service"].Value().(dbus.ObjectPath)

		ref := device.CharacteristicRef{
			Service: serviceUUIDs[owner],
			UUID:    device.NormalizeUUID(stringProp(props, "UUID")),
			Path:    string(path),
		}
		if flags, ok := props["Flags"].Value().([]string); ok && len(flags) > 0 {
			ref.Properties = append([]string(nil), flags...)
		}
		if handle, ok := props["Handle"].Value().(uint16); ok {
			ref.Handle = handle
		}

		descPaths := descriptors[path]
		sortPaths(descPaths)
		for _, dp := range descPaths {
			ref.Descriptors = append(ref.Descriptors, device.NormalizeUUID(stringProp(objects[dp][ifaceDescriptor], "UUID")))
		}
		info.Characteristics = append(info.Characteristics, ref)
	}

	return info
}

func stringProp(props map[string]dbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
}

func sortPaths(paths []dbus.ObjectPath) {
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
}
