package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"followscan/pkg/activity"
	"followscan/pkg/export"
	"followscan/pkg/messages"
	"followscan/pkg/models"
	"followscan/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	listPlatform string
	listFilter   string
	listLocale   string
	clearForce   bool
	exportFormat string
	exportOutput string
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"ls"},
	Short:   "List stored scan results",
	Long: `List the accounts found by previous scans.

Filters:
  all                 every stored account
  inactive            no post for more than a year
  not_following_back  accounts that do not follow you
  both                inactive and not following back`,
	Example: `  followscan accounts
  followscan accounts --platform instagram --filter inactive
  followscan accounts --filter both --locale ja`,
	Args: cobra.NoArgs,
	RunE: runAccounts,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete stored scan results",
	Long:  `Delete the stored results of one platform, or of every platform when --platform is not given.`,
	Example: `  followscan clear --platform threads
  followscan clear --force`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored scan results as JSON or CSV",
	Long: `Export stored accounts to a file, or to stdout when --output is not given.
The format is taken from --format, else from the output file extension.`,
	Example: `  followscan export --output accounts.csv
  followscan export --platform twitter --filter not_following_back --format json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(exportCmd)

	for _, cmd := range []*cobra.Command{accountsCmd, clearCmd, exportCmd} {
		cmd.Flags().StringVarP(&listPlatform, "platform", "p", "", "platform (instagram, twitter, threads); all when empty")
	}
	for _, cmd := range []*cobra.Command{accountsCmd, exportCmd} {
		cmd.Flags().StringVarP(&listFilter, "filter", "f", "all", "all, inactive, not_following_back or both")
		cmd.Flags().StringVar(&listLocale, "locale", "", "date language: en or ja")
	}
	clearCmd.Flags().BoolVar(&clearForce, "force", false, "do not ask for confirmation")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json or csv")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (stdout when empty)")
}

// optionalPlatform parses --platform, where empty means every platform
func optionalPlatform(name string) (models.Platform, error) {
	if name == "" {
		return "", nil
	}
	return models.ParsePlatform(name)
}

// fetchAccounts reads stored accounts through the message boundary
func fetchAccounts(ctx context.Context, a *app, p models.Platform) ([]models.Account, error) {
	resp := a.hub.Handle(ctx, messages.GetAccounts{Platform: p})
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	return resp.Accounts, nil
}

func runAccounts(cmd *cobra.Command, args []string) error {
	p, err := optionalPlatform(listPlatform)
	if err != nil {
		return err
	}
	filter, err := models.ParseFilterType(listFilter)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(map[string]interface{}{"locale": listLocale})
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := fetchAccounts(ctx, a, p)
	if err != nil {
		return err
	}
	selected := models.Filter(accounts, filter)
	if len(selected) == 0 {
		ui.PrintInfo("No accounts", "run 'followscan scan' first, or try another --filter")
		return nil
	}

	ui.PrintAccounts(os.Stdout, selected, activity.ParseLocale(cfg.Output.Locale), time.Now())
	printLastScans(ctx, a, p)
	return nil
}

func printLastScans(ctx context.Context, a *app, only models.Platform) {
	for _, p := range models.Platforms() {
		if only != "" && p != only {
			continue
		}
		last, err := a.store.LastScanDate(ctx, p)
		if err != nil || last == nil {
			continue
		}
		fmt.Printf("%s last scanned %s\n", p, last.Local().Format("2006-01-02 15:04"))
	}
}

func runClear(cmd *cobra.Command, args []string) error {
	p, err := optionalPlatform(listPlatform)
	if err != nil {
		return err
	}

	target := "every platform"
	if p != "" {
		target = string(p)
	}
	if !clearForce {
		fmt.Printf("Delete stored results of %s? (y/N): ", target)
		input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	cfg, err := loadConfig(nil)
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if resp := a.hub.Handle(ctx, messages.ClearData{Platform: p}); resp.Error != "" {
		return errors.New(resp.Error)
	}
	ui.PrintSuccess("Cleared stored results of " + target)
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	p, err := optionalPlatform(listPlatform)
	if err != nil {
		return err
	}
	filter, err := models.ParseFilterType(listFilter)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(exportFormat, exportOutput)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(map[string]interface{}{"locale": listLocale})
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	accounts, err := fetchAccounts(ctx, a, p)
	if err != nil {
		return err
	}

	opts := export.Options{
		Format: format,
		Filter: filter,
		Locale: activity.ParseLocale(cfg.Output.Locale),
		Now:    time.Now(),
	}
	if exportOutput == "" {
		_, err := export.Write(os.Stdout, accounts, opts)
		return err
	}

	n, err := export.WriteFile(exportOutput, accounts, opts)
	if err != nil {
		return err
	}
	ui.PrintSuccess(fmt.Sprintf("Exported %d accounts to %s", n, exportOutput))
	return nil
}
