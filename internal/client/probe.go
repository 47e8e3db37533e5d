package client

import (
	"context"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

// ProbeResult is one STUN server's answer to a binding request. Results feed
// a diagnostics display only; candidate selection never consults them.
type ProbeResult struct {
	Server     string
	Reachable  bool
	PublicAddr string
	RTT        time.Duration
	Err        error
}

// ProbeSTUN opportunistically checks NAT reachability against each server.
// Servers are given as "stun:host:port" or bare "host:port".
func ProbeSTUN(ctx context.Context, servers []string) []ProbeResult {
	results := make([]ProbeResult, 0, len(servers))

	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}

		results = append(results, probeOne(server))
	}

	return results
}

func probeOne(server string) ProbeResult {
	result := ProbeResult{Server: server}
	addr := strings.TrimPrefix(server, "stun:")

	start := time.Now()

	c, err := stun.Dial("udp4", addr)
	if err != nil {
		result.Err = err
		return result
	}
	defer c.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	err = c.Do(message, func(res stun.Event) {
		if res.Error != nil {
			result.Err = res.Error
			return
		}

		var xorAddr stun.XORMappedAddress
		if err := xorAddr.GetFrom(res.Message); err != nil {
			result.Err = err
			return
		}

		result.Reachable = true
		result.PublicAddr = xorAddr.String()
		result.RTT = time.Since(start)
	})
	if err != nil && result.Err == nil {
		result.Err = err
	}

	return result
}
