package discovery

import (
	"fmt"
	"os"
	"strconv"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
)

const serviceType = "_codepad._tcp"

// Advertiser announces the server on the local network over mDNS so
// desktop clients can find it without configuration.
type Advertiser struct {
	server *zeroconf.Server
	logger zerolog.Logger
}

// Advertise registers the mDNS service. Call Shutdown to withdraw it.
func Advertise(port string, logger zerolog.Logger) (*Advertiser, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", port, err)
	}

	host, _ := os.Hostname()
	if host == "" {
		host = "codepad"
	}

	server, err := zeroconf.Register(
		fmt.Sprintf("codepad-%s", host),
		serviceType,
		"local.",
		p,
		[]string{"txtv=0", "proto=1"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("mDNS register: %w", err)
	}

	logger.Info().
		Str("service", serviceType).
		Int("port", p).
		Msg("mDNS service registered")

	return &Advertiser{server: server, logger: logger}, nil
}

// Shutdown withdraws the mDNS announcement.
func (a *Advertiser) Shutdown() {
	if a == nil || a.server == nil {
		return
	}
	a.server.Shutdown()
	a.logger.Info().Msg("mDNS service withdrawn")
}
