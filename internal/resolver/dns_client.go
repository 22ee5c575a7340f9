package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	mdns "github.com/miekg/dns"
)

// ClientConfig contains configuration for the DNS client.
type ClientConfig struct {
	// Nameservers is a list of DNS servers to query (e.g., "8.8.8.8:53").
	// If empty, system resolvers from /etc/resolv.conf are used,
	// falling back to public DNS (8.8.8.8, 1.1.1.1).
	Nameservers []string

	// Timeout is the timeout for individual DNS queries. Default is 3 seconds.
	Timeout time.Duration

	// Retries is the number of extra passes over the nameserver list after
	// a transport failure or SERVFAIL. Default is 1.
	Retries int
}

// DNSClient looks up MX records with github.com/miekg/dns.
type DNSClient struct {
	config ClientConfig
	udp    *mdns.Client
	tcp    *mdns.Client
}

// NewDNSClient creates a client, filling in defaults for zero fields.
func NewDNSClient(config ClientConfig) *DNSClient {
	if config.Timeout == 0 {
		config.Timeout = 3 * time.Second
	}
	if config.Retries == 0 {
		config.Retries = 1
	}
	if len(config.Nameservers) == 0 {
		config.Nameservers = systemNameservers("/etc/resolv.conf")
	}
	config.Nameservers = append([]string(nil), config.Nameservers...)
	for i, s := range config.Nameservers {
		if _, _, err := net.SplitHostPort(s); err != nil {
			config.Nameservers[i] = net.JoinHostPort(s, "53")
		}
	}

	return &DNSClient{
		config: config,
		udp:    &mdns.Client{Net: "udp", Timeout: config.Timeout},
		tcp:    &mdns.Client{Net: "tcp", Timeout: config.Timeout},
	}
}

// systemNameservers reads nameservers from a resolv.conf file.
func systemNameservers(path string) []string {
	cc, err := mdns.ClientConfigFromFile(path)
	if err != nil || len(cc.Servers) == 0 {
		return []string{"8.8.8.8:53", "1.1.1.1:53"}
	}
	servers := make([]string, 0, len(cc.Servers))
	for _, s := range cc.Servers {
		servers = append(servers, net.JoinHostPort(s, cc.Port))
	}
	return servers
}

// Config returns the effective configuration.
func (c *DNSClient) Config() ClientConfig { return c.config }

// LookupMX returns the MX records for domain in answer order.
func (c *DNSClient) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	resp, err := c.query(ctx, domain, mdns.TypeMX)
	if err != nil {
		return nil, err
	}

	var records []*net.MX
	for _, rr := range resp.Answer {
		if mx, ok := rr.(*mdns.MX); ok {
			records = append(records, &net.MX{Host: mx.Mx, Pref: mx.Preference})
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

func (c *DNSClient) query(ctx context.Context, name string, qtype uint16) (*mdns.Msg, error) {
	m := new(mdns.Msg)
	m.SetQuestion(mdns.Fqdn(strings.TrimSpace(name)), qtype)
	m.RecursionDesired = true

	var lastErr error
	for i := 0; i <= c.config.Retries; i++ {
		for _, server := range c.config.Nameservers {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			resp, _, err := c.udp.ExchangeContext(ctx, m, server)
			if err == nil && resp.Truncated {
				resp, _, err = c.tcp.ExchangeContext(ctx, m, server)
			}
			if err != nil {
				lastErr = fmt.Errorf("dns query %s: %w", server, err)
				continue
			}

			switch resp.Rcode {
			case mdns.RcodeSuccess:
				return resp, nil
			case mdns.RcodeNameError:
				return nil, ErrNotFound
			case mdns.RcodeServerFailure:
				lastErr = ErrServFail
			case mdns.RcodeRefused:
				lastErr = ErrRefused
			default:
				lastErr = fmt.Errorf("dns: unexpected rcode %s", mdns.RcodeToString[resp.Rcode])
			}
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrServFail
}
