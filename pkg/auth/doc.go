// Package auth implements the OAuth 2.0 device authorization grant
// (RFC 8628) for a public client that cannot open a browser, with durable
// token caching and local expiry validation. Each entry point performs at
// most one poll against the authorization server; callers are expected to
// invoke it again later, and persisted state lets the manager resume where
// the previous invocation left off.
package auth
