package domain

import "errors"

// Structural rejections. Operations returning these leave the topology unchanged.
var (
	ErrPortNotFound        = errors.New("port not found")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrUnknownDeviceType   = errors.New("unknown device type")
	ErrPowerDataMismatch   = errors.New("power port cannot connect to data port")
	ErrSelfLoop            = errors.New("cannot connect a device to itself")
	ErrInvalidStatus       = errors.New("invalid device status")
	ErrWirelessUnsupported = errors.New("device does not support wifi")
	ErrHostingUnsupported  = errors.New("device cannot host wifi networks")
)
