package auth

import (
	"fmt"
	"io"
	"strings"

	"followscan/pkg/models"
)

var cookieHosts = map[models.Platform]string{
	models.PlatformInstagram: "https://www.instagram.com",
	models.PlatformTwitter:   "https://x.com",
	models.PlatformThreads:   "https://www.threads.net",
}

// ShowCookieGuide prints step-by-step instructions for copying the session
// cookies of platform out of a logged-in browser
func ShowCookieGuide(w io.Writer, platform models.Platform) {
	host := cookieHosts[platform]
	rule := strings.Repeat("=", 72)

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s COOKIE GUIDE\n", strings.ToUpper(string(platform)))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "1. Open %s in your browser and log in.\n", host)
	fmt.Fprintln(w, "2. Open Developer Tools (F12, or Cmd+Option+I on macOS).")
	fmt.Fprintln(w, "3. Application (Chrome) or Storage (Firefox) tab > Cookies >", host)
	fmt.Fprintln(w, "4. Copy the value of each of these cookies:")
	for _, name := range RequiredCookies(platform) {
		fmt.Fprintf(w, "     - %s\n", name)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Copy only the value, without quotes or semicolons. Cookies expire,")
	fmt.Fprintln(w, "so run `followscan auth login` again when scans start failing with auth errors.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "These cookies give full access to your account. Never share them.")
	fmt.Fprintln(w, rule)
}

// ShowQuickGuide prints a one-line reminder of the cookies platform needs
func ShowQuickGuide(w io.Writer, platform models.Platform) {
	fmt.Fprintf(w, "Need %s cookies from %s: %s (type 'help' for details)\n",
		platform, cookieHosts[platform], strings.Join(RequiredCookies(platform), ", "))
}
