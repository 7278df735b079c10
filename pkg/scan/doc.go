// Package scan runs follower scans.
//
// An Orchestrator owns at most one session per platform. A scan validates the
// location it was started from, collects the following list up to the end of
// the requested window, collects followers where the platform has them, and
// reconciles the window. Every step reports progress through a
// messages.Publisher; progress counters never move backwards within a scan.
//
// A stopped scan still completes: its progress ends in the completed state
// and the accounts found so far are published as a partial batch. Sessions
// record whether a scan completed, stopped or failed.
package scan
