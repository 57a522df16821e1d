package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kaimanfr/checkin/internal/models"
)

// Gateway abstracts the backend calls the pipeline needs.
type Gateway interface {
	Register(ctx context.Context) error
	PostInitialAnswers(ctx context.Context, answers map[string]string) (*models.CurrentUser, error)
	PostMetric(ctx context.Context, report *models.DailyMetricsReport) (*models.CurrentUser, error)
}

// FlagStore persists the small key-value state surrounding the flows.
type FlagStore interface {
	InitialValuesFilled() (bool, error)
	SetInitialValuesFilled(v bool) error
}

// ReportCache holds daily reports that could not be delivered, so a later
// launch can retry them.
type ReportCache interface {
	EnqueuePending(report *models.DailyMetricsReport) error
	PendingReports() ([]*models.DailyMetricsReport, error)
	DeletePending(id string) error
}

// SubmissionPipeline turns completed flows into wire payloads and delivers
// them. Token refresh on auth expiry lives in the gateway; the pipeline
// decides what is submitted, when coordinates attach, and what happens to
// undeliverable reports.
type SubmissionPipeline struct {
	gw            Gateway
	flags         FlagStore
	cache         ReportCache
	location      LocationProvider
	locateTimeout time.Duration
	now           func() time.Time
	newID         func() string
	log           *logrus.Entry
}

// NewSubmissionPipeline wires the pipeline's collaborators. location and
// cache may be nil; the pipeline then skips coordinates and offline caching.
func NewSubmissionPipeline(gw Gateway, flags FlagStore, cache ReportCache, location LocationProvider, log *logrus.Entry) *SubmissionPipeline {
	return &SubmissionPipeline{
		gw:            gw,
		flags:         flags,
		cache:         cache,
		location:      location,
		locateTimeout: DefaultLocateTimeout,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:12] },
		log:           log,
	}
}

// InitialProfileDone reports whether the one-time profile was already
// submitted; the initial flow is never re-triggered once this is set.
func (p *SubmissionPipeline) InitialProfileDone() bool {
	done, err := p.flags.InitialValuesFilled()
	if err != nil {
		p.log.WithError(err).Warn("reading initialValuesFilled flag")
		return false
	}
	return done
}

// SubmitInitialProfile serializes a completed initial flow and posts it.
// On success the persistent initialValuesFilled flag is set. On failure the
// answers stay with the caller, who decides between retry and abandon.
func (p *SubmissionPipeline) SubmitInitialProfile(ctx context.Context, flow *FlowController) (*models.CurrentUser, error) {
	if flow.State() != FlowCompleted {
		return nil, NewFlowStateError(fmt.Sprintf("initial flow not completed (state %s)", flow.State()))
	}
	cat := flow.Catalog()
	if flow.Answers().Len() != cat.Len() {
		return nil, NewInternalError(fmt.Sprintf("answer set holds %d answers for %d questions", flow.Answers().Len(), cat.Len()))
	}
	user, err := p.gw.PostInitialAnswers(ctx, flow.Answers().WireMap(cat))
	if err != nil {
		return nil, err
	}
	if err := p.flags.SetInitialValuesFilled(true); err != nil {
		p.log.WithError(err).Warn("persisting initialValuesFilled flag")
	}
	p.log.Info("initial profile submitted")
	return user, nil
}

// BuildDailyReport converts a completed daily flow into a report with a
// fresh id, capture timestamp and no coordinates yet.
func (p *SubmissionPipeline) BuildDailyReport(flow *FlowController) (*models.DailyMetricsReport, error) {
	if flow.State() != FlowCompleted {
		return nil, NewFlowStateError(fmt.Sprintf("daily flow not completed (state %s)", flow.State()))
	}
	cat := flow.Catalog()
	answers := flow.Answers().Ordered(cat)
	if len(answers) != cat.Len() {
		return nil, NewInternalError(fmt.Sprintf("answer set holds %d answers for %d questions", len(answers), cat.Len()))
	}
	entries := make([]models.MetricEntry, 0, len(answers))
	for _, ans := range answers {
		entries = append(entries, models.MetricEntry{Key: ans.QuestionID, Value: ans.Value.Kind == models.AnswerYes})
	}
	return &models.DailyMetricsReport{
		ID:        p.newID(),
		Entries:   entries,
		Timestamp: p.now(),
	}, nil
}

// SubmitDailyReport attaches a best-effort location fix and posts the
// report. Location lookup is bounded; denied or timed-out lookups never
// block submission. An undeliverable report goes to the pending cache.
func (p *SubmissionPipeline) SubmitDailyReport(ctx context.Context, report *models.DailyMetricsReport) (*models.CurrentUser, error) {
	if report.Coordinates == nil {
		report.Coordinates = BestEffortLocate(ctx, p.location, p.locateTimeout, p.log)
	}
	user, err := p.gw.PostMetric(ctx, report)
	if err != nil {
		if p.cache != nil {
			if cerr := p.cache.EnqueuePending(report); cerr != nil {
				p.log.WithError(cerr).Warn("caching undelivered report")
			} else {
				p.log.WithField("report_id", report.ID).Info("report cached for later delivery")
			}
		}
		return nil, err
	}
	p.log.WithField("report_id", report.ID).Info("daily report submitted")
	return user, nil
}

// DrainPending retries every cached report, deleting the ones that go
// through. The first delivery failure stops the drain; remaining reports
// stay queued for the next launch.
func (p *SubmissionPipeline) DrainPending(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	pending, err := p.cache.PendingReports()
	if err != nil {
		return err
	}
	for _, report := range pending {
		if _, err := p.gw.PostMetric(ctx, report); err != nil {
			return err
		}
		if err := p.cache.DeletePending(report.ID); err != nil {
			return err
		}
		p.log.WithField("report_id", report.ID).Info("cached report delivered")
	}
	return nil
}
