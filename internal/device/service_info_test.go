package device

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestServiceShape_String(t *testing.T) {
	assert.Equal(t, "identifiers", ShapeIdentifiers.String())
	assert.Equal(t, "structured", ShapeStructured.String())
	assert.Equal(t, "unknown", ShapeUnknown.String())
	assert.Equal(t, "unknown", ServiceShape(42).String())
}

func TestServiceRecord(t *testing.T) {
	rec := NewServiceRecord("180f", Attr{Key: "primary", Value: true}, Attr{Key: "path", Value: "/p"})

	assert.Equal(t, "180f", rec.UUID())
	assert.Equal(t, []string{"uuid", "primary", "path"}, rec.Keys())

	v, ok := rec.Get("primary")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	rec.Set("primary", false)
	assert.Equal(t, []string{"uuid", "primary", "path"}, rec.Keys(), "updating keeps the position")

	clone := rec.Clone()
	clone.Set("extra", 1)
	assert.Equal(t, []string{"uuid", "primary", "path"}, rec.Keys(), "clone is independent")
	assert.Equal(t, []string{"uuid", "primary", "path", "extra"}, clone.Keys())

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"uuid":"180f","primary":false,"path":"/p"}`, string(data))
}

func TestServiceRecord_Nil(t *testing.T) {
	var rec *ServiceRecord
	assert.Empty(t, rec.UUID())
	assert.Nil(t, rec.Keys())
	_, ok := rec.Get("uuid")
	assert.False(t, ok)
	assert.Equal(t, []string{}, rec.Clone().Keys())

	data, err := rec.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))
}

func TestServiceRecord_UnmarshalJSON(t *testing.T) {
	var rec ServiceRecord
	require.NoError(t, json.Unmarshal([]byte(`{"primary": true, "uuid": "180d"}`), &rec))
	assert.Equal(t, "180d", rec.UUID())
	assert.Equal(t, []string{"primary", "uuid"}, rec.Keys(), "wire order is preserved")

	assert.Error(t, json.Unmarshal([]byte(`{"primary": true}`), &rec))
	assert.Error(t, json.Unmarshal([]byte(`{"uuid": 12}`), &rec))
}

func TestServiceInfo_MarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		info     *ServiceInfo
		expected string
	}{
		{
			name:     "identifiers",
			info:     &ServiceInfo{Shape: ShapeIdentifiers, ServiceIDs: []string{"s1"}, Characteristics: []CharacteristicRef{{Service: "s1", UUID: "c1"}}},
			expected: `{"services":["s1"],"characteristics":[{"service":"s1","uuid":"c1"}]}`,
		},
		{
			name:     "structured",
			info:     &ServiceInfo{Shape: ShapeStructured, Services: []*ServiceRecord{NewServiceRecord("s1")}},
			expected: `{"services":[{"uuid":"s1"}],"characteristics":[]}`,
		},
		{
			name:     "empty lists are arrays",
			info:     &ServiceInfo{Shape: ShapeIdentifiers},
			expected: `{"services":[],"characteristics":[]}`,
		},
		{
			name:     "optional characteristic fields",
			info:     &ServiceInfo{Shape: ShapeIdentifiers, Characteristics: []CharacteristicRef{{Service: "s", UUID: "c", Properties: []string{"read"}, Handle: 3}}},
			expected: `{"services":[],"characteristics":[{"service":"s","uuid":"c","properties":["read"],"handle":3}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.info)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(data))
		})
	}
}

func TestServiceInfo_MarshalYAML(t *testing.T) {
	info := &ServiceInfo{
		Shape:           ShapeStructured,
		Services:        []*ServiceRecord{NewServiceRecord("180f", Attr{Key: "primary", Value: true})},
		Characteristics: []CharacteristicRef{{Service: "180f", UUID: "2a19"}},
	}

	out, err := yaml.Marshal(info)
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "services:")
	assert.Contains(t, text, "uuid: 180f")
	assert.Contains(t, text, "primary: true")
	assert.Contains(t, text, "service: 180f")
}

func TestServiceInfo_ServiceCount(t *testing.T) {
	var nilInfo *ServiceInfo
	assert.Zero(t, nilInfo.ServiceCount())
	assert.Equal(t, 2, (&ServiceInfo{Shape: ShapeIdentifiers, ServiceIDs: []string{"a", "b"}}).ServiceCount())
	assert.Equal(t, 1, (&ServiceInfo{Shape: ShapeStructured, Services: []*ServiceRecord{NewServiceRecord("a")}}).ServiceCount())
}

func TestParseServiceInfo(t *testing.T) {
	t.Run("identifiers", func(t *testing.T) {
		info, err := ParseServiceInfo(ShapeIdentifiers, []byte(`{"services": ["s1", "s2"]}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"s1", "s2"}, info.ServiceIDs)
		assert.Nil(t, info.Characteristics)
	})

	t.Run("structured", func(t *testing.T) {
		info, err := ParseServiceInfo(ShapeStructured, []byte(`{
			"services": [{"uuid": "s1", "primary": true}],
			"characteristics": [{"service": "s1", "uuid": "c1"}]
		}`))
		require.NoError(t, err)
		require.Len(t, info.Services, 1)
		assert.Equal(t, "s1", info.Services[0].UUID())
		assert.Equal(t, []CharacteristicRef{{Service: "s1", UUID: "c1"}}, info.Characteristics)
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := ParseServiceInfo(ShapeIdentifiers, []byte(`{"services": [{"uuid": "s1"}]}`))
		assert.ErrorContains(t, err, "failed to decode identifiers services")
	})

	t.Run("unknown shape", func(t *testing.T) {
		_, err := ParseServiceInfo(ShapeUnknown, []byte(`{"services": []}`))
		assert.Error(t, err)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseServiceInfo(ShapeIdentifiers, []byte(`{`))
		assert.ErrorContains(t, err, "failed to decode service info")
	})
}
