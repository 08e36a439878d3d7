// Package discovery provides mDNS-based discovery of OctoPrint hosts.
//
// OctoPrint advertises itself on the local network with the "_octoprint._tcp"
// service type. The TXT record carries the URL path prefix, the OctoPrint
// version, the API version and, on a Raspberry Pi, the hardware model.
//
// # Usage Example
//
//	hosts, err := discovery.ScanForHosts(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, host := range hosts {
//	    fmt.Printf("Found: %s at %s\n", host.Name, host.BaseURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Hosts must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// Discovery only finds OctoPrint itself; whether the LED status plugin is
// installed is checked afterwards through the host API.
package discovery
