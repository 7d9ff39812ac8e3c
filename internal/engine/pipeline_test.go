package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storenet/internal/domain"
)

type fixture struct {
	t    *testing.T
	topo *domain.Topology
}

func newFixture(t *testing.T) *fixture {
	return &fixture{t: t, topo: domain.NewTopology("test")}
}

func (f *fixture) add(dt domain.DeviceType) *domain.Device {
	f.t.Helper()
	d, err := f.topo.AddDevice(dt)
	require.NoError(f.t, err)
	return d
}

func (f *fixture) connect(a *domain.Device, portA string, b *domain.Device, portB string) {
	f.t.Helper()
	require.NotNil(f.t, a.Port(portA), "missing port %s on %s", portA, a.ID)
	require.NotNil(f.t, b.Port(portB), "missing port %s on %s", portB, b.ID)
	require.NoError(f.t, f.topo.Connect(a.Port(portA).ID, b.Port(portB).ID))
}

func (f *fixture) run() Result {
	return Run(f.topo, Options{})
}

// printerChain builds modem -> router -> printer with router and printer on
// the same outlet
func printerChain(t *testing.T) (*fixture, map[string]*domain.Device) {
	f := newFixture(t)
	modem := f.add(domain.DeviceTypeISPModem)
	outlet := f.add(domain.DeviceTypePowerOutlet)
	router := f.add(domain.DeviceTypeRouter)
	printer := f.add(domain.DeviceTypeReceiptPrinter)

	f.connect(modem, "lan", router, "wan")
	f.connect(router, "lan1", printer, "eth")
	f.connect(outlet, "outlet1", router, "power")
	f.connect(outlet, "outlet2", printer, "power")

	return f, map[string]*domain.Device{
		"modem": modem, "outlet": outlet, "router": router, "printer": printer,
	}
}

func TestPipelinePrinterOnline(t *testing.T) {
	f, d := printerChain(t)
	f.run()

	assert.Equal(t, domain.DeviceStatusOnline, d["router"].Status)
	assert.Equal(t, domain.DeviceStatusOnline, d["printer"].Status)
	assert.Equal(t, domain.LinkStatusUp, d["printer"].Port("eth").LinkStatus)
	assert.Equal(t, domain.ConnectionStateOnline, d["printer"].ConnectionState)
	assert.Equal(t, domain.ConnectionStateOnline, d["router"].ConnectionState)
	assert.Equal(t, domain.ConnectionStateOnline, d["modem"].ConnectionState)
}

func TestPipelineDisconnectPrinter(t *testing.T) {
	f, d := printerChain(t)
	f.run()

	require.NoError(t, f.topo.Disconnect(d["printer"].Port("eth").ID))
	f.run()

	assert.Equal(t, domain.LinkStatusDown, d["printer"].Port("eth").LinkStatus)
	assert.Equal(t, domain.ConnectionStateDisconnected, d["printer"].ConnectionState)
	assert.Equal(t, domain.DeviceStatusOnline, d["printer"].Status, "power is separate from data")
}

func TestPipelineIdempotent(t *testing.T) {
	f, d := printerChain(t)
	sw := f.add(domain.DeviceTypeSwitch8)
	injector := f.add(domain.DeviceTypePoEInjector)
	ap := f.add(domain.DeviceTypeAccessPoint)
	f.connect(d["router"], "lan2", sw, "port1")
	f.connect(d["outlet"], "outlet3", sw, "power")
	f.connect(sw, "port2", injector, "lan_in")
	f.connect(d["outlet"], "outlet4", injector, "power")
	f.connect(injector, "poe_out", ap, "eth")

	first := f.run()
	snapshot := f.topo.Clone()
	second := f.run()

	assert.Equal(t, first.Findings, second.Findings)
	for _, dev := range f.topo.Devices() {
		before := snapshot.Device(dev.ID)
		assert.Equal(t, before.Status, dev.Status, dev.ID)
		assert.Equal(t, before.ConnectionState, dev.ConnectionState, dev.ID)
		for _, p := range dev.Ports {
			assert.Equal(t, snapshot.Port(p.ID).LinkStatus, p.LinkStatus, p.ID)
		}
	}
	assert.Equal(t, 1, second.Power.Passes, "stable graph settles in one pass")
}

func TestPowerMonotonicity(t *testing.T) {
	f := newFixture(t)
	outlet := f.add(domain.DeviceTypePowerOutlet)
	strip := f.add(domain.DeviceTypePowerStrip)
	injector := f.add(domain.DeviceTypePoEInjector)
	ap := f.add(domain.DeviceTypeAccessPoint)
	router := f.add(domain.DeviceTypeRouter)

	f.connect(outlet, "outlet1", strip, "power")
	f.connect(strip, "socket1", injector, "power")
	f.connect(strip, "socket2", router, "power")
	f.connect(injector, "poe_out", ap, "eth")
	f.connect(router, "lan1", injector, "lan_in")

	res := f.run()
	require.False(t, res.Power.CapHit)
	for _, d := range []*domain.Device{strip, injector, ap, router} {
		require.Equal(t, domain.DeviceStatusOnline, d.Status, d.ID)
	}

	require.NoError(t, f.topo.Disconnect(strip.Port("power").ID))
	res = f.run()

	assert.False(t, res.Power.CapHit)
	for _, d := range []*domain.Device{strip, injector, ap, router} {
		assert.Equal(t, domain.DeviceStatusOffline, d.Status, d.ID)
	}
	assert.Equal(t, domain.DeviceStatusOnline, outlet.Status)
}

func TestPowerPassCap(t *testing.T) {
	f := newFixture(t)
	// added in reverse chain order so each pass only lights one hop
	strip3 := f.add(domain.DeviceTypePowerStrip)
	strip2 := f.add(domain.DeviceTypePowerStrip)
	strip1 := f.add(domain.DeviceTypePowerStrip)
	outlet := f.add(domain.DeviceTypePowerOutlet)

	f.connect(strip2, "socket1", strip3, "power")
	f.connect(strip1, "socket1", strip2, "power")
	f.connect(outlet, "outlet1", strip1, "power")

	res := PropagatePower(f.topo, 1)
	assert.True(t, res.CapHit)
	assert.Equal(t, 1, res.Passes)

	res = PropagatePower(f.topo, DefaultMaxPowerPasses)
	assert.False(t, res.CapHit)
	assert.Equal(t, domain.DeviceStatusOnline, strip3.Status)
}

func TestPowerOverrides(t *testing.T) {
	t.Run("booting survives while powered", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		router := f.add(domain.DeviceTypeRouter)
		f.connect(outlet, "outlet1", router, "power")
		require.NoError(t, f.topo.SetStatus(router.ID, domain.DeviceStatusBooting))

		f.run()
		assert.Equal(t, domain.DeviceStatusBooting, router.Status)
	})

	t.Run("error survives while powered", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		router := f.add(domain.DeviceTypeRouter)
		f.connect(outlet, "outlet1", router, "power")
		require.NoError(t, f.topo.SetStatus(router.ID, domain.DeviceStatusError))

		f.run()
		assert.Equal(t, domain.DeviceStatusError, router.Status)
	})

	t.Run("unpowered error device goes offline", func(t *testing.T) {
		f := newFixture(t)
		router := f.add(domain.DeviceTypeRouter)
		require.NoError(t, f.topo.SetStatus(router.ID, domain.DeviceStatusError))

		f.run()
		assert.Equal(t, domain.DeviceStatusOffline, router.Status)
	})

	t.Run("unpowered booting device goes offline", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		router := f.add(domain.DeviceTypeRouter)
		f.connect(outlet, "outlet1", router, "power")
		require.NoError(t, f.topo.SetStatus(router.ID, domain.DeviceStatusBooting))
		require.NoError(t, f.topo.Disconnect(domain.PortID(router.ID, "power")))

		f.run()
		assert.Equal(t, domain.DeviceStatusOffline, router.Status)
	})

	t.Run("mobile device stays off", func(t *testing.T) {
		f := newFixture(t)
		tablet := f.add(domain.DeviceTypeTabletPOS)
		require.NoError(t, f.topo.SetStatus(tablet.ID, domain.DeviceStatusOffline))

		f.run()
		assert.Equal(t, domain.DeviceStatusOffline, tablet.Status)
	})

	t.Run("booting upstream supplies no poe", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		injector := f.add(domain.DeviceTypePoEInjector)
		ap := f.add(domain.DeviceTypeAccessPoint)
		f.connect(outlet, "outlet1", injector, "power")
		f.connect(injector, "poe_out", ap, "eth")
		require.NoError(t, f.topo.SetStatus(injector.ID, domain.DeviceStatusBooting))

		f.run()
		assert.Equal(t, domain.DeviceStatusOffline, ap.Status)
	})
}

func TestAPOnNonPoESwitchStaysOffline(t *testing.T) {
	f := newFixture(t)
	outlet := f.add(domain.DeviceTypePowerOutlet)
	sw := f.add(domain.DeviceTypeSwitch8)
	ap := f.add(domain.DeviceTypeAccessPoint)
	f.connect(outlet, "outlet1", sw, "power")
	f.connect(sw, "port1", ap, "eth")

	f.run()
	assert.Equal(t, domain.DeviceStatusOnline, sw.Status)
	assert.Equal(t, domain.DeviceStatusOffline, ap.Status)
}

func TestAPOnPoESwitch(t *testing.T) {
	f := newFixture(t)
	outlet := f.add(domain.DeviceTypePowerOutlet)
	sw := f.add(domain.DeviceTypePoESwitch8)
	ap := f.add(domain.DeviceTypeAccessPoint)
	f.connect(outlet, "outlet1", sw, "power")
	f.connect(sw, "port1", ap, "eth")

	f.run()
	assert.Equal(t, domain.DeviceStatusOnline, ap.Status)
	assert.Equal(t, domain.LinkStatusUp, ap.Port("eth").LinkStatus)
}

func TestInjectorPassThrough(t *testing.T) {
	build := func(t *testing.T) (*fixture, *domain.Device, *domain.Device, *domain.Device) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		router := f.add(domain.DeviceTypeRouter)
		injector := f.add(domain.DeviceTypePoEInjector)
		ap := f.add(domain.DeviceTypeAccessPoint)
		f.connect(outlet, "outlet1", router, "power")
		f.connect(outlet, "outlet2", injector, "power")
		f.connect(injector, "poe_out", ap, "eth")
		return f, router, injector, ap
	}

	t.Run("poe out down without lan in", func(t *testing.T) {
		f, _, injector, ap := build(t)
		f.run()

		assert.Equal(t, domain.DeviceStatusOnline, ap.Status, "power does not depend on lan in")
		assert.Equal(t, domain.LinkStatusDown, injector.Port("poe_out").LinkStatus)
		assert.Equal(t, domain.ConnectionStateDisconnected, ap.ConnectionState)
	})

	t.Run("poe out up with live lan in", func(t *testing.T) {
		f, router, injector, ap := build(t)
		f.connect(router, "lan1", injector, "lan_in")
		f.run()

		assert.Equal(t, domain.LinkStatusUp, injector.Port("poe_out").LinkStatus)
		assert.Equal(t, domain.ConnectionStateAssociatedNoInternet, ap.ConnectionState)
	})

	t.Run("poe out down when upstream is off", func(t *testing.T) {
		f, router, injector, _ := build(t)
		f.connect(router, "lan1", injector, "lan_in")
		require.NoError(t, f.topo.Disconnect(router.Port("power").ID))
		f.run()

		assert.Equal(t, domain.DeviceStatusOffline, router.Status)
		assert.Equal(t, domain.LinkStatusDown, injector.Port("poe_out").LinkStatus)
	})
}

func TestInjectorChainCycleGuard(t *testing.T) {
	f := newFixture(t)
	outlet := f.add(domain.DeviceTypePowerOutlet)
	a := f.add(domain.DeviceTypePoEInjector)
	b := f.add(domain.DeviceTypePoEInjector)
	f.connect(outlet, "outlet1", a, "power")
	f.connect(outlet, "outlet2", b, "power")
	// each injector's output feeds the other's input
	f.connect(a, "poe_out", b, "lan_in")
	f.connect(b, "poe_out", a, "lan_in")

	assert.NotPanics(t, func() { f.run() })
	assert.Equal(t, domain.LinkStatusDown, a.Port("poe_out").LinkStatus)
	assert.Equal(t, domain.LinkStatusDown, b.Port("poe_out").LinkStatus)
}

func TestConnectionStates(t *testing.T) {
	t.Run("switch without router has no ip", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		sw := f.add(domain.DeviceTypeSwitch8)
		pos := f.add(domain.DeviceTypePOSTerminal)
		f.connect(outlet, "outlet1", sw, "power")
		f.connect(outlet, "outlet2", pos, "power")
		f.connect(sw, "port1", pos, "eth")

		f.run()
		assert.Equal(t, domain.ConnectionStateAssociatedNoIP, pos.ConnectionState)
	})

	t.Run("router without modem has no internet", func(t *testing.T) {
		f := newFixture(t)
		outlet := f.add(domain.DeviceTypePowerOutlet)
		router := f.add(domain.DeviceTypeRouter)
		pos := f.add(domain.DeviceTypePOSTerminal)
		f.connect(outlet, "outlet1", router, "power")
		f.connect(outlet, "outlet2", pos, "power")
		f.connect(router, "lan1", pos, "eth")

		f.run()
		assert.Equal(t, domain.ConnectionStateAssociatedNoInternet, pos.ConnectionState)
	})

	t.Run("offline device is disconnected", func(t *testing.T) {
		f, d := printerChain(t)
		require.NoError(t, f.topo.Disconnect(d["printer"].Port("power").ID))
		f.run()

		assert.Equal(t, domain.DeviceStatusOffline, d["printer"].Status)
		assert.Equal(t, domain.ConnectionStateDisconnected, d["printer"].ConnectionState)
	})

	t.Run("dangling reference degrades to no connection", func(t *testing.T) {
		f, d := printerChain(t)
		d["printer"].Port("eth").ConnectedTo = "ghost-1:eth"
		d["router"].Port("lan1").ConnectedTo = ""

		assert.NotPanics(t, func() { f.run() })
		assert.Equal(t, domain.LinkStatusDown, d["printer"].Port("eth").LinkStatus)
		assert.Equal(t, domain.ConnectionStateDisconnected, d["printer"].ConnectionState)
	})
}

func TestWirelessFallback(t *testing.T) {
	build := func(t *testing.T) (*fixture, *domain.Device, *domain.Device) {
		f, d := printerChain(t)
		wifi := f.add(domain.DeviceTypeWifiRouter)
		f.connect(d["outlet"], "outlet3", wifi, "power")
		f.connect(d["router"], "lan2", wifi, "wan")
		tablet := f.add(domain.DeviceTypeTabletPOS)
		return f, wifi, tablet
	}

	tests := []struct {
		name   string
		wire   func(tablet, host *domain.Device)
		expect domain.ConnectionState
	}{
		{
			name:   "no config",
			wire:   func(tablet, host *domain.Device) {},
			expect: domain.ConnectionStateDisconnected,
		},
		{
			name: "auth failed",
			wire: func(tablet, host *domain.Device) {
				tablet.Wireless = &domain.WirelessConfig{SSID: "store", AuthState: domain.AuthStateAuthFailed}
			},
			expect: domain.ConnectionStateAuthFailed,
		},
		{
			name: "associating",
			wire: func(tablet, host *domain.Device) {
				tablet.Wireless = &domain.WirelessConfig{SSID: "store", AuthState: domain.AuthStateAssociating}
			},
			expect: domain.ConnectionStateAssociatingWifi,
		},
		{
			name: "associated inherits host state",
			wire: func(tablet, host *domain.Device) {
				tablet.Wireless = &domain.WirelessConfig{SSID: "store", AuthState: domain.AuthStateAssociated, AssociatedAPID: host.ID}
			},
			expect: domain.ConnectionStateOnline,
		},
		{
			name: "associated to missing host",
			wire: func(tablet, host *domain.Device) {
				tablet.Wireless = &domain.WirelessConfig{SSID: "store", AuthState: domain.AuthStateAssociated, AssociatedAPID: "access_point-9"}
			},
			expect: domain.ConnectionStateDisconnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, host, tablet := build(t)
			tt.wire(tablet, host)
			f.run()
			assert.Equal(t, tt.expect, tablet.ConnectionState)
		})
	}
}

func TestWiredBeatsWireless(t *testing.T) {
	f, d := printerChain(t)
	laptop := f.add(domain.DeviceTypeLaptop)
	f.connect(d["router"], "lan2", laptop, "eth")
	laptop.Wireless = &domain.WirelessConfig{SSID: "store", AuthState: domain.AuthStateAuthFailed}

	f.run()
	assert.Equal(t, domain.ConnectionStateOnline, laptop.ConnectionState)
}
