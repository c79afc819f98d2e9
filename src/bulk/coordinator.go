// Package bulk runs bulk actions over the current selection and writes the outcome back
// through the collection store.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"mwa-review/src/collection"
	"mwa-review/src/contracts"
	"mwa-review/src/logger"
	"mwa-review/src/metrics"
)

var (
	// ErrInvalidAction is returned for actions the backend does not support.
	ErrInvalidAction = errors.New("invalid bulk action")
	// ErrBusy is returned while another bulk action is in flight.
	ErrBusy = errors.New("a bulk action is already running")
)

// NoResultReason is reported for ids the backend neither confirmed nor rejected.
const NoResultReason = "no result reported"

// API is the slice of the contact backend the coordinator needs.
type API interface {
	BulkAction(ctx context.Context, req contracts.BulkRequest) (*contracts.BulkResult, error)
}

// Options carries per-run parameters.
type Options struct {
	// Reason is sent with reject actions.
	Reason string
}

// Report describes one bulk run.
type Report struct {
	Action contracts.BulkAction
	// Requested is the number of selected ids sent to the backend.
	Requested int
	Succeeded []contracts.ContactID
	Failed    []contracts.BulkFailure
	// ExportPath is set after a successful export.
	ExportPath string
	// Err is set when the whole call failed. It is also recorded on the store.
	Err *collection.OpError
}

// Empty reports whether the run was skipped because nothing was selected.
func (r Report) Empty() bool {
	return r.Requested == 0
}

// Summary is a one-line human description of the run.
func (r Report) Summary() string {
	switch {
	case r.Err != nil:
		return r.Err.Error()
	case r.Empty():
		return fmt.Sprintf("%s: nothing selected", r.Action)
	case r.ExportPath != "":
		return fmt.Sprintf("%s: %d exported to %s, %d failed", r.Action, len(r.Succeeded), r.ExportPath, len(r.Failed))
	default:
		return fmt.Sprintf("%s: %d succeeded, %d failed", r.Action, len(r.Succeeded), len(r.Failed))
	}
}

// Config configures a Coordinator.
type Config struct {
	API      API
	Store    *collection.Store
	Exporter Exporter
	Logger   logger.Logger
	Metrics  *metrics.Metrics
}

// Coordinator executes bulk actions. At most one runs at a time.
type Coordinator struct {
	api      API
	store    *collection.Store
	exporter Exporter
	log      logger.Logger
	metrics  *metrics.Metrics

	running sync.Mutex
}

// NewCoordinator creates a coordinator. A nil Exporter writes CSV files to the working
// directory.
func NewCoordinator(cfg Config) *Coordinator {
	exporter := cfg.Exporter
	if exporter == nil {
		exporter = CSVExporter{Dir: "."}
	}
	return &Coordinator{
		api:      cfg.API,
		store:    cfg.Store,
		exporter: exporter,
		log:      logger.OrSilent(cfg.Logger),
		metrics:  cfg.Metrics,
	}
}

// Run applies action to the current selection. The returned error is only set for an
// invalid action or a concurrent run; backend failures are reported in Report.Err and on
// the store.
func (c *Coordinator) Run(ctx context.Context, action contracts.BulkAction, opts Options) (Report, error) {
	report := Report{Action: action}
	if !action.Valid() {
		return report, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
	if !c.running.TryLock() {
		return report, ErrBusy
	}
	defer c.running.Unlock()

	ids := c.store.Snapshot().SelectedIDs()
	report.Requested = len(ids)
	if len(ids) == 0 {
		c.log.Debug("bulk action skipped, empty selection", "action", action)
		return report, nil
	}

	op := "bulk_" + string(action)
	c.log.Info("running bulk action", "action", action, "count", len(ids))

	res, err := c.api.BulkAction(ctx, contracts.BulkRequest{
		ContactIDs: ids,
		Action:     action,
		Reason:     opts.Reason,
	})
	if err != nil {
		return c.fail(report, op, err), nil
	}

	report.Succeeded, report.Failed = reconcile(ids, res)
	c.metrics.ObserveBulk(string(action), len(report.Succeeded), len(report.Failed))
	c.log.Info("bulk action finished", "action", action,
		"succeeded", len(report.Succeeded), "failed", len(report.Failed))

	if action == contracts.BulkExport {
		if len(report.Succeeded) == 0 {
			return report, nil
		}
		contacts := make([]contracts.Contact, 0, len(report.Succeeded))
		for _, id := range report.Succeeded {
			if contact, ok := c.store.Contact(id); ok {
				contacts = append(contacts, contact)
			}
		}
		path, err := c.exporter.Export(contacts)
		if err != nil {
			return c.fail(report, op, err), nil
		}
		report.ExportPath = path
		return report, nil
	}

	c.store.ApplyBulkResult(action, report.Succeeded, opts.Reason)
	return report, nil
}

func (c *Coordinator) fail(report Report, op string, err error) Report {
	c.log.Error("bulk action failed", "action", report.Action, "error", err)
	c.metrics.IncBulkError(string(report.Action))
	snap := c.store.SetError(op, err)
	report.Err = snap.Err
	return report
}

// reconcile keeps only ids that were requested, in selection order. Ids the backend did not
// mention count as failed.
func reconcile(ids []contracts.ContactID, res *contracts.BulkResult) ([]contracts.ContactID, []contracts.BulkFailure) {
	succeeded := []contracts.ContactID{}
	failed := []contracts.BulkFailure{}
	if res == nil {
		res = &contracts.BulkResult{}
	}

	ok := make(map[contracts.ContactID]struct{}, len(res.Succeeded))
	for _, id := range res.Succeeded {
		ok[id] = struct{}{}
	}
	reasons := make(map[contracts.ContactID]string, len(res.Failed))
	for _, f := range res.Failed {
		reasons[f.ID] = f.Reason
	}

	for _, id := range ids {
		if reason, bad := reasons[id]; bad {
			failed = append(failed, contracts.BulkFailure{ID: id, Reason: reason})
			continue
		}
		if _, good := ok[id]; good {
			succeeded = append(succeeded, id)
			continue
		}
		failed = append(failed, contracts.BulkFailure{ID: id, Reason: NoResultReason})
	}
	return succeeded, failed
}
