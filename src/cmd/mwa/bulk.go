package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"mwa-review/src/bulk"
	"mwa-review/src/contracts"
	"mwa-review/src/metrics"
	"mwa-review/src/session"
)

var (
	bulkReason string
	bulkYes    bool
)

// bulkCmd applies one bulk action from the command line
var bulkCmd = &cobra.Command{
	Use:   "bulk <verify|reject|export|delete> <contact-id>...",
	Short: "Apply a bulk action to contacts by id",
	Long: `Load the collection, select the given contacts and run one bulk action on them.

  verify   approve the contacts
  reject   reject the contacts (--reason is recorded with them)
  export   write the contacts to a CSV file in the export directory
  delete   delete the contacts (asks for confirmation unless --yes)

Ids that are not in the collection are skipped.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := contracts.BulkAction(args[0])
		if !action.Valid() {
			return fmt.Errorf("unknown action %q (verify, reject, export, delete)", args[0])
		}
		if action == contracts.BulkDelete && !bulkYes {
			ok, err := confirmDelete(len(args) - 1)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		log := consoleLogger()
		contactAPI, err := newContactAPI(appConfig, log)
		if err != nil {
			return err
		}
		sess, err := session.New(session.Config{
			API:          contactAPI,
			PageSize:     appConfig.PageSize,
			LoadPageSize: appConfig.LoadPageSize,
			ExportDir:    appConfig.ExportDir,
			Logger:       log,
			Metrics:      metrics.New(),
		})
		if err != nil {
			contactAPI.Close()
			return err
		}
		defer sess.Close()

		ctx, cancel := signalContext()
		defer cancel()
		ctx, cancelTimeout := context.WithTimeout(ctx, shortTimeout)
		defer cancelTimeout()

		if res := sess.Load(ctx); res.Err != nil {
			return fmt.Errorf("failed to load contacts: %w", res.Err)
		}

		st := sess.Store()
		for _, raw := range args[1:] {
			id := contracts.ContactID(raw)
			if _, ok := st.Contact(id); !ok {
				log.Warn("skipping unknown contact", "id", id)
				continue
			}
			st.ToggleSelect(id)
		}

		report, err := sess.RunBulk(ctx, action, bulk.Options{Reason: bulkReason})
		if err != nil {
			return err
		}
		fmt.Println(report.Summary())
		for _, f := range report.Failed {
			fmt.Printf("  %s: %s\n", f.ID, f.Reason)
		}
		if report.Err != nil {
			return report.Err
		}
		if len(report.Failed) > 0 {
			return errors.New("some contacts failed")
		}
		return nil
	},
}

func confirmDelete(n int) (bool, error) {
	var ok bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d contacts?", n)).
				Description("Deleted contacts cannot be restored.").
				Affirmative("Delete").
				Negative("Cancel").
				Value(&ok),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}

func init() {
	bulkCmd.Flags().StringVar(&bulkReason, "reason", "", "Rejection reason (reject only)")
	bulkCmd.Flags().BoolVarP(&bulkYes, "yes", "y", false, "Skip the delete confirmation")
}
