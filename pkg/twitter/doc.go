// Package twitter scans the Following list of an X (Twitter) account.
//
// X has no follower endpoint usable without the official API, so followers are
// never collected. Instead each rendered user cell carries a "Follows you"
// badge which decides whether the account follows back. Post dates are not
// available either, so only the fast mode classification applies.
package twitter
