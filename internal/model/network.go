package model

// Network is a named deployment target.
type Network string

const (
	NetworkDevnet  Network = "devnet"
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// Networks lists the known networks in display order.
var Networks = []Network{NetworkDevnet, NetworkTestnet, NetworkMainnet}

// String returns the string representation of the network.
func (n Network) String() string {
	return string(n)
}

// IsValid checks whether the network is a known value.
func (n Network) IsValid() bool {
	switch n {
	case NetworkDevnet, NetworkTestnet, NetworkMainnet:
		return true
	}
	return false
}
