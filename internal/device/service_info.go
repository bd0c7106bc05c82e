package device

import (
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ServiceShape tags which variant of ServiceInfo a stack produces.
// CoreBluetooth-style stacks report services as bare identifiers; BlueZ-style
// stacks report objects carrying the identifier plus extra attributes.
type ServiceShape int

const (
	ShapeUnknown ServiceShape = iota
	ShapeIdentifiers
	ShapeStructured
)

func (s ServiceShape) String() string {
	switch s {
	case ShapeIdentifiers:
		return "identifiers"
	case ShapeStructured:
		return "structured"
	default:
		return "unknown"
	}
}

// UUIDKey is the attribute holding a structured service's identifier.
const UUIDKey = "uuid"

// CharacteristicRef is a discovered characteristic together with its owning service.
type CharacteristicRef struct {
	Service     string   `json:"service" yaml:"service"`
	UUID        string   `json:"uuid" yaml:"uuid"`
	Properties  []string `json:"properties,omitempty" yaml:"properties,omitempty"`
	Descriptors []string `json:"descriptors,omitempty" yaml:"descriptors,omitempty"`
	Handle      uint16   `json:"handle,omitempty" yaml:"handle,omitempty"`
	Path        string   `json:"path,omitempty" yaml:"path,omitempty"`
}

// ServiceRecord is a structured service entry: an ordered set of attributes that
// always includes UUIDKey.
type ServiceRecord struct {
	fields *orderedmap.OrderedMap[string, any]
}

// Attr is a single ServiceRecord attribute, used by NewServiceRecord.
type Attr struct {
	Key   string
	Value any
}

// NewServiceRecord creates a record whose first attribute is the service uuid.
func NewServiceRecord(uuid string, attrs ...Attr) *ServiceRecord {
	r := &ServiceRecord{fields: orderedmap.New[string, any]()}
	r.fields.Set(UUIDKey, uuid)
	for _, a := range attrs {
		r.fields.Set(a.Key, a.Value)
	}
	return r
}

// UUID returns the service identifier, or "" when the attribute is missing or not a string.
func (r *ServiceRecord) UUID() string {
	if r == nil || r.fields == nil {
		return ""
	}
	v, _ := r.fields.Get(UUIDKey)
	s, _ := v.(string)
	return s
}

// Get returns the attribute stored under key.
func (r *ServiceRecord) Get(key string) (any, bool) {
	if r == nil || r.fields == nil {
		return nil, false
	}
	return r.fields.Get(key)
}

// Set stores an attribute, appending it if the key is new.
func (r *ServiceRecord) Set(key string, value any) {
	if r.fields == nil {
		r.fields = orderedmap.New[string, any]()
	}
	r.fields.Set(key, value)
}

// Keys returns the attribute names in insertion order.
func (r *ServiceRecord) Keys() []string {
	if r == nil || r.fields == nil {
		return nil
	}
	keys := make([]string, 0, r.fields.Len())
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Clone returns a shallow copy; attribute values are shared.
func (r *ServiceRecord) Clone() *ServiceRecord {
	c := &ServiceRecord{fields: orderedmap.New[string, any]()}
	if r == nil || r.fields == nil {
		return c
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		c.fields.Set(pair.Key, pair.Value)
	}
	return c
}

func (r *ServiceRecord) MarshalJSON() ([]byte, error) {
	if r == nil || r.fields == nil {
		return []byte("null"), nil
	}
	return r.fields.MarshalJSON()
}

func (r *ServiceRecord) UnmarshalJSON(data []byte) error {
	fields := orderedmap.New[string, any]()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	v, ok := fields.Get(UUIDKey)
	if _, isString := v.(string); !ok || !isString {
		return fmt.Errorf("service record has no %q string attribute", UUIDKey)
	}
	r.fields = fields
	return nil
}

func (r *ServiceRecord) MarshalYAML() (interface{}, error) {
	if r == nil || r.fields == nil {
		return nil, nil
	}
	return r.fields.MarshalYAML()
}

// ServiceInfo is the raw result of service discovery.
// Exactly one of ServiceIDs (ShapeIdentifiers) or Services (ShapeStructured) is populated.
type ServiceInfo struct {
	Shape           ServiceShape
	ServiceIDs      []string
	Services        []*ServiceRecord
	Characteristics []CharacteristicRef
}

// rawServiceInfo is the wire form: services are strings or objects depending on the shape.
type rawServiceInfo struct {
	Services        any                 `json:"services" yaml:"services"`
	Characteristics []CharacteristicRef `json:"characteristics" yaml:"characteristics"`
}

func (s *ServiceInfo) raw() rawServiceInfo {
	out := rawServiceInfo{Characteristics: s.Characteristics}
	if out.Characteristics == nil {
		out.Characteristics = []CharacteristicRef{}
	}
	switch s.Shape {
	case ShapeIdentifiers:
		ids := s.ServiceIDs
		if ids == nil {
			ids = []string{}
		}
		out.Services = ids
	case ShapeStructured:
		recs := s.Services
		if recs == nil {
			recs = []*ServiceRecord{}
		}
		out.Services = recs
	default:
		out.Services = []any{}
	}
	return out
}

// MarshalJSON emits {"services": [...], "characteristics": [...]} without the shape tag.
func (s *ServiceInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw())
}

func (s *ServiceInfo) MarshalYAML() (interface{}, error) {
	return s.raw(), nil
}

// ServiceCount returns the number of services regardless of shape.
func (s *ServiceInfo) ServiceCount() int {
	if s == nil {
		return 0
	}
	if s.Shape == ShapeStructured {
		return len(s.Services)
	}
	return len(s.ServiceIDs)
}

// ParseServiceInfo decodes the wire form for the given shape.
func ParseServiceInfo(shape ServiceShape, data []byte) (*ServiceInfo, error) {
	var wire struct {
		Services        json.RawMessage     `json:"services"`
		Characteristics []CharacteristicRef `json:"characteristics"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode service info: %w", err)
	}

	info := &ServiceInfo{Shape: shape, Characteristics: wire.Characteristics}
	if len(wire.Services) == 0 {
		return info, nil
	}

	switch shape {
	case ShapeIdentifiers:
		if err := json.Unmarshal(wire.Services, &info.ServiceIDs); err != nil {
			return nil, fmt.Errorf("failed to decode %s services: %w", shape, err)
		}
	case ShapeStructured:
		if err := json.Unmarshal(wire.Services, &info.Services); err != nil {
			return nil, fmt.Errorf("failed to decode %s services: %w", shape, err)
		}
	default:
		return nil, fmt.Errorf("cannot decode services of %s shape", shape)
	}
	return info, nil
}
