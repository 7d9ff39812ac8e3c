package domain

// ConnectionState is a device's logical reachability toward the internet gateway
type ConnectionState string

const (
	ConnectionStateDisconnected         ConnectionState = "disconnected"
	ConnectionStateAssociatingWifi      ConnectionState = "associating_wifi"
	ConnectionStateAuthFailed           ConnectionState = "auth_failed"
	ConnectionStateAssociatedNoIP       ConnectionState = "associated_no_ip"
	ConnectionStateAssociatedNoInternet ConnectionState = "associated_no_internet"
	ConnectionStateOnline               ConnectionState = "online"
)

// HasRouterPath reports whether the state implies a working path to a router
func (s ConnectionState) HasRouterPath() bool {
	return s == ConnectionStateOnline || s == ConnectionStateAssociatedNoInternet
}
