package panel

import (
	"fmt"

	"github.com/srg/gattpanel/internal/device"
)

const characteristicsKey = "characteristics"

// NormalizedService is one entry of the uniform service list shown by the panel.
// Attributes holds the service object as reported by the stack (at least its uuid).
type NormalizedService struct {
	UUID            string
	Attributes      *device.ServiceRecord
	Characteristics []device.CharacteristicRef
}

func (s NormalizedService) record() *device.ServiceRecord {
	var rec *device.ServiceRecord
	if s.Attributes != nil {
		rec = s.Attributes.Clone()
	} else {
		rec = device.NewServiceRecord(s.UUID)
	}
	chars := s.Characteristics
	if chars == nil {
		chars = []device.CharacteristicRef{}
	}
	rec.Set(characteristicsKey, chars)
	return rec
}

// MarshalJSON emits the service object extended with its characteristics.
func (s NormalizedService) MarshalJSON() ([]byte, error) {
	return s.record().MarshalJSON()
}

func (s NormalizedService) MarshalYAML() (interface{}, error) {
	return s.record().MarshalYAML()
}

// Normalize reshapes service info into a uniform list, attaching to each
// service the characteristics whose owning service matches its identifier.
// shape is the variant the caller's stack produces; it must match info.Shape.
// The input is not modified.
func Normalize(info *device.ServiceInfo, shape device.ServiceShape) ([]NormalizedService, error) {
	if info == nil {
		return nil, nil
	}

	switch shape {
	case device.ShapeIdentifiers, device.ShapeStructured:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownShape, shape)
	}
	if info.Shape != shape {
		return nil, fmt.Errorf("%w: got %s, expected %s", ErrShapeMismatch, info.Shape, shape)
	}

	if shape == device.ShapeIdentifiers {
		result := make([]NormalizedService, 0, len(info.ServiceIDs))
		for _, id := range info.ServiceIDs {
			result = append(result, NormalizedService{
				UUID:            id,
				Attributes:      device.NewServiceRecord(id),
				Characteristics: characteristicsOf(info.Characteristics, id),
			})
		}
		return result, nil
	}

	result := make([]NormalizedService, 0, len(info.Services))
	for _, rec := range info.Services {
		if rec == nil {
			continue
		}
		id := rec.UUID()
		result = append(result, NormalizedService{
			UUID:            id,
			Attributes:      rec.Clone(),
			Characteristics: characteristicsOf(info.Characteristics, id),
		})
	}
	return result, nil
}

// characteristicsOf keeps the characteristics owned by service, in input order.
func characteristicsOf(chars []device.CharacteristicRef, service string) []device.CharacteristicRef {
	out := []device.CharacteristicRef{}
	for _, c := range chars {
		if c.Service == service {
			out = append(out, c)
		}
	}
	return out
}
