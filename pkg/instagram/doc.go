// Package instagram is the Instagram driver. It pages through the following
// and followers lists with the web GraphQL endpoint and reads the newest
// timeline post of each account for full scans.
//
//	d := instagram.NewDriver(instagram.Options{Client: client, Delay: 2 * time.Second})
//	username, err := d.ValidateLocation("https://www.instagram.com/me/")
//
// Requests need a logged-in session: install the session cookies on the
// upstream client before creating the driver.
package instagram
