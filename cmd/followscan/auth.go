package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"followscan/pkg/auth"
	"followscan/pkg/models"
	"followscan/pkg/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authPlatform string

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage platform sessions",
	Long: `Manage the browser session cookies followscan sends to each platform.

Sessions are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables, e.g. FOLLOWSCAN_INSTAGRAM_SESSIONID (read only)

Never share your cookies or config files!`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store the session cookies of an account",
	Long: `Store the session cookies of a logged-in browser.

You will be prompted for the cookies the platform needs:
  instagram  sessionid, csrftoken
  twitter    auth_token, ct0
  threads    sessionid

The most recently stored account of a platform is used by scans, and its
profile is scanned when no location is configured.`,
	Example: `  # Interactive login
  followscan auth login --platform instagram

  # Login with username
  followscan auth login myname -p x`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove stored sessions",
	Long: `Remove stored sessions of a platform.

If no username is given, you choose from the stored accounts.`,
	Example: `  followscan auth logout -p threads
  followscan auth logout myname -p instagram`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	Long:  `List stored sessions with their cookie values masked.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(listCmd)

	authCmd.PersistentFlags().StringVarP(&authPlatform, "platform", "p", "", "platform (instagram, twitter, threads)")
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	platformName := authPlatform
	if platformName == "" {
		platformName = prompt(reader, fmt.Sprintf("Platform (%s): ", platformNames()))
	}
	p, err := models.ParsePlatform(platformName)
	if err != nil {
		return err
	}

	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	auth.ShowCookieGuide(os.Stdout, p)
	if answer := prompt(reader, "Ready to enter your cookies? (Y/n): "); strings.EqualFold(answer, "n") {
		fmt.Println("\nRun 'followscan auth login' when you're ready.")
		return nil
	}
	fmt.Println()

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		username = prompt(reader, fmt.Sprintf("%s username: ", p))
	}
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return fmt.Errorf("username is required")
	}

	if existing, _ := manager.Retrieve(p, username); existing != nil {
		answer := prompt(reader, fmt.Sprintf("\nAccount '%s' already exists. Update its cookies? (y/N): ", username))
		if !strings.HasPrefix(strings.ToLower(answer), "y") {
			return nil
		}
	}

	fmt.Println("\nEnter your cookie values (they are hidden as you type):")
	cred := &auth.Credential{
		Platform:     p,
		Username:     username,
		Cookies:      make(map[string]string),
		LastModified: time.Now(),
	}
	for _, name := range auth.RequiredCookies(p) {
		for {
			fmt.Printf("%s cookie value: ", name)
			value, err := readSecret(reader)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			value = strings.Trim(value, "\"; ")
			if value == "help" {
				auth.ShowCookieGuide(os.Stdout, p)
				continue
			}
			if len(value) < 8 {
				fmt.Printf("That doesn't look like a %s value.\n", name)
				auth.ShowQuickGuide(os.Stdout, p)
				continue
			}
			cred.Cookies[name] = value
			break
		}
	}

	cred.UserAgent = prompt(reader, "\nUser Agent (press Enter to use default): ")

	if err := cred.Validate(); err != nil {
		return err
	}

	fmt.Println("\nSummary:")
	fmt.Printf("   Platform: %s\n", p)
	fmt.Printf("   Username: %s\n", username)
	printCookies(auth.Sanitize(cred), "   ")

	if err := manager.Store(cred); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	ui.PrintSuccess(fmt.Sprintf("Session saved: %s on %s", username, p))

	fmt.Println("\nStart a scan of your own profile:")
	fmt.Printf("   $ followscan scan --platform %s\n", p)
	fmt.Println("\nNever share your cookies or config files!")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if len(args) > 0 {
		p, err := models.ParsePlatform(authPlatform)
		if err != nil {
			return fmt.Errorf("choose the account's platform with --platform: %w", err)
		}
		if err := manager.Delete(p, args[0]); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Session removed: %s on %s", args[0], p))
		return nil
	}

	creds, err := listCredentials(manager)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored sessions", "nothing to remove")
		return nil
	}

	fmt.Println("Select the session to remove:")
	for i, cred := range creds {
		fmt.Printf("  %d. %s (%s)\n", i+1, cred.Username, cred.Platform)
	}
	fmt.Printf("  %d. Remove all listed sessions\n", len(creds)+1)
	fmt.Printf("  0. Cancel\n\n")

	reader := bufio.NewReader(os.Stdin)
	var choice int
	fmt.Sscanf(prompt(reader, "Choice: "), "%d", &choice)

	switch {
	case choice == 0:
		return nil
	case choice == len(creds)+1:
		if prompt(reader, "Remove ALL listed sessions? This cannot be undone! (yes/N): ") != "yes" {
			return nil
		}
		for _, cred := range creds {
			if err := manager.Delete(cred.Platform, cred.Username); err != nil {
				return err
			}
		}
		ui.PrintSuccess("All listed sessions removed")
	case choice > 0 && choice <= len(creds):
		cred := creds[choice-1]
		if err := manager.Delete(cred.Platform, cred.Username); err != nil {
			return err
		}
		ui.PrintSuccess(fmt.Sprintf("Session removed: %s on %s", cred.Username, cred.Platform))
	default:
		return fmt.Errorf("invalid choice")
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	creds, err := listCredentials(manager)
	if err != nil {
		return err
	}
	if len(creds) == 0 {
		ui.PrintInfo("No stored sessions", "Use 'followscan auth login' to add one")
		return nil
	}

	fmt.Println(ui.Cyan("Stored sessions"))
	fmt.Println()
	seen := make(map[models.Platform]bool)
	for i, cred := range creds {
		marker := ""
		if !seen[cred.Platform] {
			seen[cred.Platform] = true
			marker = ui.Green(" (used by scans)")
		}
		sanitized := auth.Sanitize(cred)
		fmt.Printf("%d. %s on %s%s\n", i+1, sanitized.Username, sanitized.Platform, marker)
		printCookies(sanitized, "   ")
		if sanitized.UserAgent != "" {
			fmt.Printf("   User Agent: %s\n", sanitized.UserAgent)
		}
		fmt.Printf("   Last Modified: %s\n\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// listCredentials lists stored sessions, narrowed to --platform when set
func listCredentials(manager *auth.Manager) ([]*auth.Credential, error) {
	creds, err := manager.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if authPlatform == "" {
		return creds, nil
	}
	p, err := models.ParsePlatform(authPlatform)
	if err != nil {
		return nil, err
	}
	out := creds[:0]
	for _, cred := range creds {
		if cred.Platform == p {
			out = append(out, cred)
		}
	}
	return out, nil
}

func printCookies(cred *auth.Credential, indent string) {
	names := make([]string, 0, len(cred.Cookies))
	for name := range cred.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s%s: %s\n", indent, name, cred.Cookies[name])
	}
}

func prompt(reader *bufio.Reader, label string) string {
	fmt.Print(label)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// readSecret reads a value without echo when stdin is a terminal
func readSecret(reader *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		secret, err := term.ReadPassword(fd)
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(secret)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
