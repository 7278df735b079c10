// Package storage persists classified accounts and the last scan date of each
// platform.
//
// A save replaces every stored account of its platform with the new batch and
// stamps the platform's last scan date. Accounts of other platforms are left
// untouched. Dates that cannot be decoded are read back as absent.
//
// Backends:
//   - json: one aggregate document in a file, written atomically
//   - memory: the same aggregate held in process
//   - redis: the aggregate under a single key
//   - sqlite, postgres: an accounts table and a scans table
//
// Calls are serialized per store only. Two processes saving the same platform
// concurrently race and the last writer wins.
package storage
