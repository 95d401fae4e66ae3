// Package resolver turns a domain name and port into candidate TCP endpoints.
//
// Three implementations share the [Resolver] interface: [System] uses the
// operating system resolver, [DNS] queries a fixed DNS server directly with
// github.com/miekg/dns, and [Cache] wraps either with a TTL cache and
// collapses concurrent lookups for the same name.
package resolver
