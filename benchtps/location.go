package benchtps

import "net"

// LocationDecorator labels a sampled node's address with a human-readable
// location, for display alongside its TPS. This is left to the caller
// entirely (spec.md §9's node_ip Open Question): the load driver core
// never depends on any specific geolocation source.
type LocationDecorator func(ip net.IP) string

// NoLocation is the default LocationDecorator: it labels nothing.
func NoLocation(net.IP) string { return "" }
