// Package checkpoint remembers where the last scan batch of each platform
// ended so `followscan scan --resume` can continue with the next window of
// the following list.
//
// Checkpoints live under the per-user data directory:
//   - Linux: ~/.local/share/followscan/checkpoints/
//   - macOS: ~/Library/Application Support/followscan/checkpoints/
//   - Windows: %APPDATA%/followscan/checkpoints/
//
// Files are replaced atomically and carry a version for future migrations.
package checkpoint
