// Package store provides durable key-value storage for cached credentials,
// with file, OS keychain, and in-memory backends. Each store instance is
// scoped to a single identity; records in different stores never interact.
package store
