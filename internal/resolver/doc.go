// Package resolver answers the question "does this domain accept mail?"
// by looking up MX records.
//
// DNSClient talks to nameservers directly through github.com/miekg/dns.
// Resolver wraps any MXLookuper with a bounded LRU cache of boolean
// answers, and coalesces concurrent misses for the same domain into one
// upstream query. It also exposes the uncached, preference-ordered record
// list so the mailbox probe can pick the primary exchanger.
package resolver
