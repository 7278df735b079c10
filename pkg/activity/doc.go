// Package activity classifies accounts by the age of their last post and
// converts between timestamps and the relative phrases platforms display
// ("3 days ago", "3日前").
//
// All functions take the reference time explicitly so results are stable
// within a scan and deterministic in tests.
package activity
