package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storenet/internal/domain"
)

func TestJSONParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		version int
		wantErr error
	}{
		{"missing version is legacy", `{"name":"a","devices":[]}`, 1, nil},
		{"current", `{"version":3,"devices":[]}`, CurrentVersion, nil},
		{"from the future", `{"version":9,"devices":[]}`, 0, ErrUnsupportedVersion},
		{"negative", `{"version":-1,"devices":[]}`, 0, ErrUnsupportedVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := NewJSONCodec().Parse(strings.NewReader(tt.doc))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.version, doc.Version)
		})
	}
}

func TestJSONParseRejectsTrailingData(t *testing.T) {
	_, err := NewJSONCodec().Parse(strings.NewReader(`{"version":3} {"version":3}`))
	assert.Error(t, err)

	_, err = NewJSONCodec().Parse(strings.NewReader(`{"version":`))
	assert.Error(t, err)
}

func TestFromTopologySnapshotsDevices(t *testing.T) {
	topo := domain.NewTopology("shop")
	router, err := topo.AddDevice(domain.DeviceTypeRouter)
	require.NoError(t, err)
	outlet, err := topo.AddDevice(domain.DeviceTypePowerOutlet)
	require.NoError(t, err)
	require.NoError(t, topo.Connect(outlet.Port("outlet1").ID, router.Port("power").ID))
	router.Position = &domain.Position{X: 10, Y: 20, Pinned: true}

	doc := FromTopology(topo)
	assert.Equal(t, CurrentVersion, doc.Version)
	assert.Equal(t, "shop", doc.Name)
	require.Len(t, doc.Devices, 2)

	rec := doc.Device(router.ID)
	require.NotNil(t, rec)
	assert.Equal(t, outlet.Port("outlet1").ID, rec.Port("power").ConnectedTo)
	assert.Equal(t, 20.0, rec.Position.Y)
	assert.Nil(t, doc.Device("missing"))
	assert.Nil(t, rec.Port("missing"))
}

func TestJSONRoundTrip(t *testing.T) {
	topo := domain.NewTopology("shop")
	_, err := topo.AddDevice(domain.DeviceTypeAccessPoint)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewJSONCodec().Export(FromTopology(topo), &buf))

	doc, err := NewJSONCodec().Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, "shop", doc.Name)
	require.Len(t, doc.Devices, 1)
	assert.Equal(t, domain.DeviceTypeAccessPoint, doc.Devices[0].Type)
}

func TestYAMLParse(t *testing.T) {
	const src = `
name: kiosk
devices:
  - type: power_outlet
  - id: edge
    type: router
    position: {x: 4, y: 2}
    connections:
      power: power_outlet-1:outlet1
  - type: router
`
	doc, err := NewYAMLCodec().Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, doc.Version)

	edge := doc.Device("edge")
	require.NotNil(t, edge)
	assert.Equal(t, "Router", edge.Label)
	assert.Equal(t, "power_outlet-1:outlet1", edge.Port("power").ConnectedTo)
	assert.Equal(t, "edge:power", doc.Device("power_outlet-1").Port("outlet1").ConnectedTo)
	require.NotNil(t, edge.Position)
	assert.Equal(t, 4.0, edge.Position.X)

	assert.NotNil(t, doc.Device("router-1"), "generated ids count per type")
}

func TestYAMLParseRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"duplicate id", "devices:\n  - {id: a, type: router}\n  - {id: a, type: router}\n"},
		{"port already cabled", "devices:\n  - type: power_outlet\n  - type: router\n    connections: {power: power_outlet-1:outlet1}\n  - type: switch_8\n    connections: {power: power_outlet-1:outlet1}\n"},
		{"self loop", "devices:\n  - type: router\n    connections: {lan1: router-1:lan2}\n"},
		{"not yaml", "devices: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewYAMLCodec().Parse(strings.NewReader(tt.src))
			assert.Error(t, err)
		})
	}
}
