package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"mwa-review/src/contracts"
	"mwa-review/src/sanitize"
	"mwa-review/src/tui"
)

var (
	listSearch        string
	listAgency        string
	listStatus        string
	listMinConfidence float64
	listPage          int
	listPageSize      int
	listJSON          bool
)

// listCmd prints one server-side page of contacts
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts matching a query",
	Long: `Query the contact source once and print one page of results as a table (or JSON).

Filtering happens on the server; the dashboard is the place for interactive review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q := contracts.ListQuery{
			Search:   listSearch,
			Page:     listPage,
			PageSize: listPageSize,
		}
		if listAgency != "" {
			q.AgencyType = contracts.AgencyType(listAgency)
			if !q.AgencyType.Valid() {
				return fmt.Errorf("unknown agency type %q", listAgency)
			}
		}
		if listStatus != "" {
			q.Status = contracts.ApprovalStatus(listStatus)
			if !q.Status.Valid() {
				return fmt.Errorf("unknown status %q (pending, approved, rejected)", listStatus)
			}
		}
		if cmd.Flags().Changed("min-confidence") {
			if listMinConfidence < 0 || listMinConfidence > 1 {
				return fmt.Errorf("--min-confidence must be between 0 and 1")
			}
			q.MinConfidence = contracts.Float(listMinConfidence)
		}

		contactAPI, err := newContactAPI(appConfig, consoleLogger())
		if err != nil {
			return err
		}
		defer contactAPI.Close()

		ctx, cancel := signalContext()
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, shortTimeout)
		defer cancelTimeout()

		res, err := contactAPI.ListContacts(ctx, q)
		if err != nil {
			return err
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}

		if len(res.Contacts) == 0 {
			fmt.Println("No contacts match.")
			return nil
		}
		fmt.Println(renderContactTable(res.Contacts, time.Now()))
		fmt.Printf("Showing %d of %d contacts (page %d)\n", len(res.Contacts), res.Total, max(1, listPage))
		return nil
	},
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableStatusStyle = map[contracts.ApprovalStatus]lipgloss.Style{
		contracts.StatusPending:  tableCellStyle.Foreground(lipgloss.Color("214")),
		contracts.StatusApproved: tableCellStyle.Foreground(lipgloss.Color("42")),
		contracts.StatusRejected: tableCellStyle.Foreground(lipgloss.Color("196")),
	}
)

const statusColumn = 6

func renderContactTable(contacts []contracts.Contact, now time.Time) string {
	rows := make([][]string, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, []string{
			string(c.ID),
			sanitize.Line(c.DisplayName()),
			sanitize.Line(c.Company),
			string(c.AgencyType),
			tui.FormatScore(c.ConfidenceScore),
			tui.FormatScore(c.QualityScore),
			string(c.Status),
			tui.FormatAge(c.CreatedAt, now),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "Name", "Company", "Agency", "Conf", "Qual", "Status", "Age").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == statusColumn && row >= 0 && row < len(contacts) {
				if st, ok := tableStatusStyle[contacts[row].Status]; ok {
					return st
				}
			}
			return tableCellStyle
		})
	return t.Render()
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Search name, email and company")
	listCmd.Flags().StringVar(&listAgency, "agency", "", "Filter by agency type")
	listCmd.Flags().StringVar(&listStatus, "status", "", "Filter by status (pending, approved, rejected)")
	listCmd.Flags().Float64Var(&listMinConfidence, "min-confidence", 0, "Minimum confidence score (0-1)")
	listCmd.Flags().IntVar(&listPage, "page", 1, "Page number")
	listCmd.Flags().IntVar(&listPageSize, "page-size", 20, "Contacts per page")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print the raw JSON result")
}
