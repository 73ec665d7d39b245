package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"komigrate/internal/remote"
	"komigrate/internal/report"
	"komigrate/internal/rewrite"
)

var (
	rmURL           string
	rmUser          string
	rmIndexMap      string
	rmSourcetypeMap string
	rmAuditDir      string
	rmExecute       bool
)

// remoteCmd rewrites knowledge objects behind the management interface
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Rewrite identifier references in live knowledge objects",
	Long: `Lists saved searches, event types, macros and dashboards through the
management interface, rewrites renamed identifier references in their
definitions, writes an audit CSV of every pending change, and applies the
updates in rate-limited batches. Macros are audited only and must be
updated in the UI.

Without --execute the audit is written but nothing is posted back.`,
	RunE: runRemote,
}

func init() {
	remoteCmd.Flags().StringVar(&rmURL, "url", "", "management interface base URL (defaults to the configured one)")
	remoteCmd.Flags().StringVar(&rmUser, "user", "admin", "management interface user")
	remoteCmd.Flags().StringVar(&rmIndexMap, "index-map", "", "CSV mapping old index names to replacements")
	remoteCmd.Flags().StringVar(&rmSourcetypeMap, "sourcetype-map", "", "CSV mapping old sourcetype names to replacements")
	remoteCmd.Flags().StringVar(&rmAuditDir, "audit-dir", ".", "directory to write the audit CSV in")
	remoteCmd.Flags().BoolVar(&rmExecute, "execute", false, "post updates instead of auditing only")
}

func runRemote(cmd *cobra.Command, args []string) error {
	maps, err := loadRefMaps(rmIndexMap, rmSourcetypeMap)
	if err != nil {
		return err
	}

	rcfg := cfg.Remote
	if rmURL != "" {
		rcfg.BaseURL = rmURL
	}
	password, err := readPassword(rmUser)
	if err != nil {
		return err
	}

	review := report.NewReview()
	engine := rewrite.NewEngine(maps, review, logger)
	client := remote.NewClient(rcfg, rmUser, password, logger)
	driver := remote.NewDriver(client, engine, rcfg, !rmExecute, logger)

	if err := driver.Run(cmd.Context(), rmAuditDir); err != nil {
		return err
	}
	if !review.Empty() {
		return review.Flush(cfg.Reports.ReviewLog)
	}
	return nil
}

// readPassword reads the password without echoing when stdin is a
// terminal, falling back to a plain line read when it is piped.
func readPassword(user string) (string, error) {
	fmt.Printf("Password for %s: ", user)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
