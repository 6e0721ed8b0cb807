// Package network resolves the deployment network from a request and maps
// it to the counter package identifier configured for that network.
package network

import (
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/alfredjeanlab/suicounter/internal/model"
)

// QueryParam is the query parameter that selects the network.
const QueryParam = "network"

// Package identifiers. Overridable at build time with
// -ldflags "-X github.com/alfredjeanlab/suicounter/internal/network.DevnetPackageID=0x...".
var (
	DevnetPackageID  = "0x5f2d6e3c0b8f4a9e1d7c2b6a3f8e0d4c9b1a7e5f2c8d3b6a0e9f4c1d7b2a8e6f"
	TestnetPackageID = "0x8c1e4b7a2d9f6e3c0a5b8d1f4e7c2a9b6d3f0e8c5a2b9d6f3e0c7a4b1d8e5f2c"
	MainnetPackageID = "0x1b7d4a0e3c6f9b2d5a8e1c4f7b0d3a6e9c2f5b8d1a4e7c0f3b6d9a2e5c8f1b4d"
)

// PackageIDs maps each network to its counter package identifier.
type PackageIDs struct {
	Devnet  string `toml:"devnet"`
	Testnet string `toml:"testnet"`
	Mainnet string `toml:"mainnet"`
}

// Defaults returns the build-time package identifiers.
func Defaults() PackageIDs {
	return PackageIDs{
		Devnet:  DevnetPackageID,
		Testnet: TestnetPackageID,
		Mainnet: MainnetPackageID,
	}
}

// For returns the package identifier for n. Unknown networks map to the
// devnet identifier.
func (p PackageIDs) For(n model.Network) string {
	switch n {
	case model.NetworkTestnet:
		return p.Testnet
	case model.NetworkMainnet:
		return p.Mainnet
	}
	return p.Devnet
}

// Resolve reads the network query parameter. Unset or unrecognized values
// resolve to devnet.
func Resolve(query url.Values) model.Network {
	n := model.Network(query.Get(QueryParam))
	if n.IsValid() {
		return n
	}
	return model.NetworkDevnet
}

// networksFile is the on-disk shape of a networks override file:
//
//	[packages]
//	devnet  = "0x..."
//	testnet = "0x..."
//	mainnet = "0x..."
type networksFile struct {
	Packages PackageIDs `toml:"packages"`
}

// LoadFile reads package identifiers from a TOML file. Keys missing from the
// file keep their build-time defaults. An empty path returns the defaults.
func LoadFile(path string) (PackageIDs, error) {
	ids := Defaults()
	if path == "" {
		return ids, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ids, fmt.Errorf("reading networks file: %w", err)
	}
	var f networksFile
	if _, err := toml.Decode(string(data), &f); err != nil {
		return ids, fmt.Errorf("parsing networks file %s: %w", path, err)
	}
	if f.Packages.Devnet != "" {
		ids.Devnet = f.Packages.Devnet
	}
	if f.Packages.Testnet != "" {
		ids.Testnet = f.Packages.Testnet
	}
	if f.Packages.Mainnet != "" {
		ids.Mainnet = f.Packages.Mainnet
	}
	return ids, nil
}
