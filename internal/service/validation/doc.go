// Package validation implements the email validation pipeline.
//
// An address goes through syntax → MX resolution → optional mailbox probe →
// disposable/role classification → risk scoring. Per-address problems never
// fail a request: they become false/unknown signals that raise the score.
// The only error this package returns is for request shape (a bulk batch
// over the caller's cap).
//
// The service depends on small interfaces for DNS and SMTP so that it can
// be tested without network access.
package validation
