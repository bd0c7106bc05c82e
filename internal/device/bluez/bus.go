package bluez

import (
	"context"

	"github.com/godbus/dbus/v5"
)

const (
	busName = "org.bluez"

	ifaceDevice         = "org.bluez.Device1"
	ifaceService        = "org.bluez.GattService1"
	ifaceCharacteristic = "org.bluez.GattCharacteristic1"
	ifaceDescriptor     = "org.bluez.GattDescriptor1"

	methodGetManagedObjects = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"
)

// ManagedObjects is the GetManagedObjects reply: object path -> interface -> property -> value.
type ManagedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// Bus is the part of the system bus the stack talks to.
type Bus interface {
	ManagedObjects(ctx context.Context) (ManagedObjects, error)
	CallDevice(ctx context.Context, path dbus.ObjectPath, method string) error
}

type systemBus struct {
	conn *dbus.Conn
}

// NewBus wraps a D-Bus connection.
func NewBus(conn *dbus.Conn) Bus {
	return &systemBus{conn: conn}
}

func (b *systemBus) ManagedObjects(ctx context.Context) (ManagedObjects, error) {
	objects := make(map[dbus.ObjectPath]map[string]map[string]dbus.Variant)
	obj := b.conn.Object(busName, "/")
	if err := obj.CallWithContext(ctx, methodGetManagedObjects, 0).Store(&objects); err != nil {
		return nil, err
	}
	return ManagedObjects(objects), nil
}

func (b *systemBus) CallDevice(ctx context.Context, path dbus.ObjectPath, method string) error {
	obj := b.conn.Object(busName, path)
	return obj.CallWithContext(ctx, ifaceDevice+"."+method, 0).Err
}
