package domain

import (
	"errors"
	"testing"
)

// newTestTopology creates a topology with the given device types added in order
func newTestTopology(t *testing.T, types ...DeviceType) (*Topology, []*Device) {
	t.Helper()
	topo := NewTopology("test")
	devices := make([]*Device, 0, len(types))
	for _, dt := range types {
		d, err := topo.AddDevice(dt)
		if err != nil {
			t.Fatalf("failed to add %s: %v", dt, err)
		}
		devices = append(devices, d)
	}
	return topo, devices
}

// assertSymmetric fails the test if any cable is one-sided
func assertSymmetric(t *testing.T, topo *Topology) {
	t.Helper()
	for _, d := range topo.Devices() {
		for _, p := range d.Ports {
			if p.ConnectedTo == "" {
				continue
			}
			partner := topo.Port(p.ConnectedTo)
			if partner == nil {
				t.Fatalf("port %s points at missing port %s", p.ID, p.ConnectedTo)
			}
			if partner.ConnectedTo != p.ID {
				t.Fatalf("port %s -> %s but %s -> %q", p.ID, partner.ID, partner.ID, partner.ConnectedTo)
			}
		}
	}
}

func TestAddDevice(t *testing.T) {
	t.Run("creates ports from definition", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeRouter)
		router := devs[0]

		def := Lookup(DeviceTypeRouter)
		if len(router.Ports) != len(def.Ports) {
			t.Fatalf("expected %d ports, got %d", len(def.Ports), len(router.Ports))
		}
		for i, p := range router.Ports {
			if p.Name != def.Ports[i].Name || p.Role != def.Ports[i].Role {
				t.Errorf("port %d: expected %s/%s, got %s/%s", i, def.Ports[i].Name, def.Ports[i].Role, p.Name, p.Role)
			}
			if p.LinkStatus != LinkStatusDown {
				t.Errorf("expected new port %s to be down, got %s", p.ID, p.LinkStatus)
			}
			if topo.Port(p.ID) != p {
				t.Errorf("expected port %s to be indexed", p.ID)
			}
		}
	})

	t.Run("internal power devices start online", func(t *testing.T) {
		_, devs := newTestTopology(t, DeviceTypeISPModem, DeviceTypePowerOutlet, DeviceTypeTabletPOS)
		for _, d := range devs {
			if d.Status != DeviceStatusOnline {
				t.Errorf("expected %s online, got %s", d.ID, d.Status)
			}
		}
	})

	t.Run("outlet and poe devices start offline", func(t *testing.T) {
		_, devs := newTestTopology(t, DeviceTypeRouter, DeviceTypeAccessPoint)
		for _, d := range devs {
			if d.Status != DeviceStatusOffline {
				t.Errorf("expected %s offline, got %s", d.ID, d.Status)
			}
		}
	})

	t.Run("allocates unique ids per type", func(t *testing.T) {
		_, devs := newTestTopology(t, DeviceTypeSwitch8, DeviceTypeSwitch8, DeviceTypeRouter)
		if devs[0].ID != "switch_8-1" || devs[1].ID != "switch_8-2" || devs[2].ID != "router-1" {
			t.Errorf("unexpected ids: %s %s %s", devs[0].ID, devs[1].ID, devs[2].ID)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		topo := NewTopology("test")
		_, err := topo.AddDevice("toaster")
		if !errors.Is(err, ErrUnknownDeviceType) {
			t.Errorf("expected ErrUnknownDeviceType, got %v", err)
		}
		if topo.Len() != 0 {
			t.Errorf("expected no devices, got %d", topo.Len())
		}
	})

	t.Run("hosting devices get an empty hosting config", func(t *testing.T) {
		_, devs := newTestTopology(t, DeviceTypeAccessPoint, DeviceTypeSwitch8)
		if devs[0].WifiHosting == nil {
			t.Error("expected access point to have hosting config")
		}
		if devs[1].WifiHosting != nil {
			t.Error("expected switch to have no hosting config")
		}
	})
}

func TestConnect(t *testing.T) {
	t.Run("pairs ports symmetrically", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeISPModem, DeviceTypeRouter)
		modem, router := devs[0], devs[1]

		if err := topo.Connect(modem.Port("lan").ID, router.Port("wan").ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if modem.Port("lan").ConnectedTo != router.Port("wan").ID {
			t.Errorf("expected modem lan connected to router wan")
		}
		assertSymmetric(t, topo)
	})

	t.Run("rejects missing port without mutation", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeISPModem)
		lan := devs[0].Port("lan")

		err := topo.Connect(lan.ID, "router-9:wan")
		if !errors.Is(err, ErrPortNotFound) {
			t.Fatalf("expected ErrPortNotFound, got %v", err)
		}
		if lan.ConnectedTo != "" {
			t.Errorf("expected lan to remain unconnected")
		}
	})

	t.Run("rejects power to data in both directions", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypePowerOutlet, DeviceTypeRouter, DeviceTypeSwitch8)
		outlet, router, sw := devs[0], devs[1], devs[2]

		// pre-existing cables must survive a rejected connect
		if err := topo.Connect(router.Port("lan1").ID, sw.Port("port1").ID); err != nil {
			t.Fatalf("setup: %v", err)
		}

		cases := [][2]string{
			{outlet.Port("outlet1").ID, router.Port("lan1").ID},
			{router.Port("lan1").ID, outlet.Port("outlet1").ID},
			{router.Port("power").ID, sw.Port("port1").ID},
		}
		for _, c := range cases {
			err := topo.Connect(c[0], c[1])
			if !errors.Is(err, ErrPowerDataMismatch) {
				t.Errorf("connect %s-%s: expected ErrPowerDataMismatch, got %v", c[0], c[1], err)
			}
		}
		if router.Port("lan1").ConnectedTo != sw.Port("port1").ID {
			t.Errorf("expected existing cable to be untouched")
		}
		if outlet.Port("outlet1").ConnectedTo != "" || router.Port("power").ConnectedTo != "" {
			t.Errorf("expected power ports to remain unconnected")
		}
	})

	t.Run("rejects same device", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeSwitch8)
		sw := devs[0]
		err := topo.Connect(sw.Port("port1").ID, sw.Port("port2").ID)
		if !errors.Is(err, ErrSelfLoop) {
			t.Errorf("expected ErrSelfLoop, got %v", err)
		}
	})

	t.Run("replaces existing cables on both ends", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeSwitch8, DeviceTypeSwitch8, DeviceTypePOSTerminal)
		a, b, pos := devs[0], devs[1], devs[2]

		if err := topo.Connect(a.Port("port1").ID, b.Port("port1").ID); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := topo.Connect(a.Port("port1").ID, pos.Port("eth").ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if b.Port("port1").ConnectedTo != "" {
			t.Errorf("expected old partner to be cleared, got %s", b.Port("port1").ConnectedTo)
		}
		if a.Port("port1").ConnectedTo != pos.Port("eth").ID {
			t.Errorf("expected new cable")
		}
		assertSymmetric(t, topo)
	})

	t.Run("power to power is allowed", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypePowerOutlet, DeviceTypeRouter)
		if err := topo.Connect(devs[0].Port("outlet1").ID, devs[1].Port("power").ID); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("clears both ends and marks them down", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeRouter, DeviceTypeReceiptPrinter)
		lan, eth := devs[0].Port("lan1"), devs[1].Port("eth")
		if err := topo.Connect(lan.ID, eth.ID); err != nil {
			t.Fatalf("setup: %v", err)
		}
		lan.LinkStatus = LinkStatusUp
		eth.LinkStatus = LinkStatusUp

		if err := topo.Disconnect(eth.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lan.ConnectedTo != "" || eth.ConnectedTo != "" {
			t.Error("expected both ends to be cleared")
		}
		if lan.LinkStatus != LinkStatusDown || eth.LinkStatus != LinkStatusDown {
			t.Error("expected both ends to be down")
		}
	})

	t.Run("unconnected port is a no-op", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeRouter)
		if err := topo.Disconnect(devs[0].Port("wan").ID); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("unknown port is an error", func(t *testing.T) {
		topo := NewTopology("test")
		if err := topo.Disconnect("nope:eth"); !errors.Is(err, ErrPortNotFound) {
			t.Errorf("expected ErrPortNotFound, got %v", err)
		}
	})
}

func TestRemoveDevice(t *testing.T) {
	t.Run("clears far ends of every cable", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeISPModem, DeviceTypeRouter, DeviceTypeSwitch8, DeviceTypePowerOutlet)
		modem, router, sw, outlet := devs[0], devs[1], devs[2], devs[3]
		mustConnect(t, topo, modem.Port("lan").ID, router.Port("wan").ID)
		mustConnect(t, topo, router.Port("lan1").ID, sw.Port("port1").ID)
		mustConnect(t, topo, outlet.Port("outlet1").ID, router.Port("power").ID)

		if err := topo.RemoveDevice(router.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if topo.Device(router.ID) != nil {
			t.Error("expected router to be gone")
		}
		if topo.Port(router.Port("wan").ID) != nil {
			t.Error("expected router ports to be unindexed")
		}
		for _, p := range []*Port{modem.Port("lan"), sw.Port("port1"), outlet.Port("outlet1")} {
			if p.ConnectedTo != "" {
				t.Errorf("expected %s to be cleared, got %s", p.ID, p.ConnectedTo)
			}
		}
		assertSymmetric(t, topo)
		if topo.Len() != 3 {
			t.Errorf("expected 3 devices, got %d", topo.Len())
		}
	})

	t.Run("missing device is an error", func(t *testing.T) {
		topo := NewTopology("test")
		if err := topo.RemoveDevice("router-1"); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("expected ErrDeviceNotFound, got %v", err)
		}
	})

	t.Run("ids are not reused", func(t *testing.T) {
		topo, devs := newTestTopology(t, DeviceTypeSwitch8)
		if err := topo.RemoveDevice(devs[0].ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d, err := topo.AddDevice(DeviceTypeSwitch8)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.ID == devs[0].ID {
			t.Errorf("expected a fresh id, got %s again", d.ID)
		}
	})
}

func TestSetStatus(t *testing.T) {
	topo, devs := newTestTopology(t, DeviceTypeRouter)

	if err := topo.SetStatus(devs[0].ID, DeviceStatusError); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if devs[0].Status != DeviceStatusError {
		t.Errorf("expected error status, got %s", devs[0].Status)
	}
	if err := topo.SetStatus(devs[0].ID, "sleeping"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if err := topo.SetStatus("ghost", DeviceStatusOnline); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestPartnerDangling(t *testing.T) {
	topo, devs := newTestTopology(t, DeviceTypeRouter)
	wan := devs[0].Port("wan")
	wan.ConnectedTo = "isp_modem-7:lan"

	if topo.Partner(wan) != nil {
		t.Error("expected dangling reference to resolve to nil")
	}
}

func TestClone(t *testing.T) {
	topo, devs := newTestTopology(t, DeviceTypeRouter, DeviceTypeSwitch8)
	mustConnect(t, topo, devs[0].Port("lan1").ID, devs[1].Port("port1").ID)

	clone := topo.Clone()
	if err := clone.Disconnect(devs[1].Port("port1").ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if devs[0].Port("lan1").ConnectedTo == "" {
		t.Error("expected original to be unaffected by clone mutation")
	}
	if clone.Len() != topo.Len() {
		t.Errorf("expected %d devices in clone, got %d", topo.Len(), clone.Len())
	}

	// ids allocated after cloning continue from the same counter
	d, err := clone.AddDevice(DeviceTypeRouter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ID != "router-2" {
		t.Errorf("expected router-2, got %s", d.ID)
	}
}

func TestSplitPortID(t *testing.T) {
	tests := []struct {
		input      string
		wantDevice string
		wantPort   string
	}{
		{"router-1:wan", "router-1", "wan"},
		{"router-1", "router-1", ""},
		{"a:b:c", "a:b", "c"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			dev, port := SplitPortID(tt.input)
			if dev != tt.wantDevice || port != tt.wantPort {
				t.Errorf("expected (%s, %s), got (%s, %s)", tt.wantDevice, tt.wantPort, dev, port)
			}
		})
	}
}

func mustConnect(t *testing.T, topo *Topology, a, b string) {
	t.Helper()
	if err := topo.Connect(a, b); err != nil {
		t.Fatalf("connect %s-%s: %v", a, b, err)
	}
}
