package ui

import (
	"strings"

	"github.com/srg/gattpanel/internal/bledb"
	"github.com/srg/gattpanel/internal/device"
)

// CharacteristicView renders one characteristic row of the service tree:
// identifier, known SIG name, properties and descriptors.
type CharacteristicView struct {
	Ref device.CharacteristicRef
}

func (v CharacteristicView) Render(th Theme) string {
	var b strings.Builder
	b.WriteString(v.Ref.UUID)
	if name := bledb.LookupCharacteristic(v.Ref.UUID); name != "" {
		b.WriteString(" ")
		b.WriteString(th.Known.Render(name))
	}
	if len(v.Ref.Properties) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(v.Ref.Properties, ", "))
		b.WriteString("]")
	}
	if len(v.Ref.Descriptors) > 0 {
		descs := make([]string, 0, len(v.Ref.Descriptors))
		for _, d := range v.Ref.Descriptors {
			if name := bledb.LookupDescriptor(d); name != "" {
				d += " " + name
			}
			descs = append(descs, d)
		}
		b.WriteString(th.Label.Render(" descriptors: " + strings.Join(descs, "; ")))
	}
	return b.String()
}
