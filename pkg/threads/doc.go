// Package threads scans the following list of a Threads account.
//
// Candidates are read from rendered pages of the list. Threads exposes
// neither a follower list nor a follow-back marker, so every candidate is
// treated as not following back. Full mode reads the newest post time from
// each candidate's public profile page.
package threads
