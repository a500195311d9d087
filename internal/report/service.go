// Package report turns raw standup text into stored reports.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"updatestracker/internal/domain"
	"updatestracker/internal/storage/sqlite"
)

// ErrNotFound is returned for unknown report ids.
var ErrNotFound = domain.ErrReportNotFound

// ErrInvalidRequest wraps validation failures the caller can fix.
var ErrInvalidRequest = errors.New("invalid report request")

type Extractor interface {
	Extract(ctx context.Context, input domain.RawInput, model string, preferGenerated bool) (domain.ExtractionResult, error)
}

type Store interface {
	InsertReport(ctx context.Context, r domain.Report) (domain.Report, error)
	GetReport(ctx context.Context, id string) (domain.Report, error)
	ListReports(ctx context.Context, limit int) ([]domain.Report, error)
	ListReportsByDateRange(ctx context.Context, from, to time.Time) ([]domain.Report, error)
	UpdateReportSections(ctx context.Context, id string, u sqlite.ReportUpdate) (domain.Report, error)
	DeleteReport(ctx context.Context, id string) error
}

// CommitObserver is told about every persisted report.
type CommitObserver interface {
	ObserveCommit()
}

type Options struct {
	Extractor        Extractor
	Store            Store
	DefaultModel     string
	PreferGenerated  bool
	BatchConcurrency int
	Location         *time.Location
	Logger           *zap.Logger
	Observer         CommitObserver
}

type Service struct {
	extractor       Extractor
	store           Store
	defaultModel    string
	preferGenerated bool
	batchLimit      int
	loc             *time.Location
	logger          *zap.Logger
	observer        CommitObserver
}

func NewService(opts Options) *Service {
	s := &Service{
		extractor:       opts.Extractor,
		store:           opts.Store,
		defaultModel:    opts.DefaultModel,
		preferGenerated: opts.PreferGenerated,
		batchLimit:      opts.BatchConcurrency,
		loc:             opts.Location,
		logger:          opts.Logger,
		observer:        opts.Observer,
	}
	if s.batchLimit < 1 {
		s.batchLimit = 4
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

type PreviewRequest struct {
	RawInputs domain.RawInput `json:"rawInputs"`
	Model     string          `json:"llmModel,omitempty"`
	// RuleBased skips generation for this request.
	RuleBased bool `json:"ruleBased,omitempty"`
}

type CommitRequest struct {
	RawInputs domain.RawInput `json:"rawInputs"`
	Model     string          `json:"llmModel,omitempty"`
	Title     string          `json:"title,omitempty"`
	Date      string          `json:"date,omitempty"`
	Status    string          `json:"status,omitempty"`
	RuleBased bool            `json:"ruleBased,omitempty"`
	// Sections, when set, is an already approved preview and is stored
	// without running extraction again.
	Sections *domain.ParsedSections `json:"parsedSections,omitempty"`
	Method   domain.Method          `json:"method,omitempty"`
}

func (s *Service) Preview(ctx context.Context, req PreviewRequest) (domain.ExtractionResult, error) {
	res, err := s.extractor.Extract(ctx, req.RawInputs, s.model(req.Model), s.preferGenerated && !req.RuleBased)
	if errors.Is(err, domain.ErrInvalidInput) {
		return domain.ExtractionResult{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return res, err
}

// PreviewBatch previews every request with at most batch_concurrency in
// flight. Results keep the input order; the first failure cancels the rest.
func (s *Service) PreviewBatch(ctx context.Context, reqs []PreviewRequest) ([]domain.ExtractionResult, error) {
	results := make([]domain.ExtractionResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchLimit)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := s.Preview(ctx, req)
			if err != nil {
				return fmt.Errorf("input %d: %w", i+1, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) Commit(ctx context.Context, req CommitRequest) (domain.Report, error) {
	if req.RawInputs.Empty() {
		return domain.Report{}, fmt.Errorf("%w: %w", ErrInvalidRequest, domain.ErrInvalidInput)
	}
	date, err := s.reportDate(req.Date)
	if err != nil {
		return domain.Report{}, err
	}
	status := domain.StatusCompleted
	if req.Status != "" {
		status = domain.ReportStatus(req.Status)
		if !status.Valid() {
			return domain.Report{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, req.Status)
		}
	}
	if req.Method != "" && !req.Method.Valid() {
		return domain.Report{}, fmt.Errorf("%w: unknown method %q", ErrInvalidRequest, req.Method)
	}

	r := domain.Report{
		Title:      strings.TrimSpace(req.Title),
		ReportDate: date,
		RawInputs:  req.RawInputs,
		Status:     status,
		Model:      s.model(req.Model),
	}
	if r.Title == "" {
		r.Title = domain.DefaultReportTitle(date)
	}
	if req.Sections != nil {
		r.Sections = domain.NewParsedSections(req.Sections.Completed, req.Sections.InProgress, req.Sections.Support)
		r.Method = req.Method
		if r.Method == "" {
			r.Method = domain.MethodGenerated
		}
	} else {
		res, err := s.Preview(ctx, PreviewRequest{RawInputs: req.RawInputs, Model: req.Model, RuleBased: req.RuleBased})
		if err != nil {
			return domain.Report{}, err
		}
		r.Sections = res.Sections
		r.Method = res.Method
		r.RawGeneratedText = res.RawGeneratedText
		r.FallbackReason = res.FallbackReason
		if res.Model != "" {
			r.Model = res.Model
		}
	}

	stored, err := s.store.InsertReport(ctx, r)
	if err != nil {
		return domain.Report{}, fmt.Errorf("store report: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveCommit()
	}
	s.logger.Info("report committed",
		zap.String("id", stored.ID),
		zap.String("method", string(stored.Method)),
		zap.String("fallback_reason", stored.FallbackReason))
	return stored, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Report, error) {
	return s.store.GetReport(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.Report, error) {
	return s.store.ListReports(ctx, limit)
}

// ListRange returns reports dated between the two calendar days, both
// inclusive, interpreted in the configured timezone.
func (s *Service) ListRange(ctx context.Context, startDate, endDate string) ([]domain.Report, error) {
	if startDate == "" || endDate == "" {
		return nil, fmt.Errorf("%w: startDate and endDate are required", ErrInvalidRequest)
	}
	from, err := time.ParseInLocation(dateLayout, startDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid startDate %q", ErrInvalidRequest, startDate)
	}
	to, err := time.ParseInLocation(dateLayout, endDate, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endDate %q", ErrInvalidRequest, endDate)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: endDate before startDate", ErrInvalidRequest)
	}
	return s.store.ListReportsByDateRange(ctx, from, to.AddDate(0, 0, 1))
}

type UpdateRequest struct {
	Title    *string                `json:"title,omitempty"`
	Status   *string                `json:"status,omitempty"`
	Sections *domain.ParsedSections `json:"parsedSections,omitempty"`
}

func (s *Service) UpdateSections(ctx context.Context, id string, req UpdateRequest) (domain.Report, error) {
	u := sqlite.ReportUpdate{Title: req.Title, Sections: req.Sections}
	if req.Status != nil {
		status := domain.ReportStatus(*req.Status)
		if !status.Valid() {
			return domain.Report{}, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, *req.Status)
		}
		u.Status = &status
	}
	if u.Title == nil && u.Status == nil && u.Sections == nil {
		return domain.Report{}, fmt.Errorf("%w: nothing to update", ErrInvalidRequest)
	}
	return s.store.UpdateReportSections(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteReport(ctx, id)
}

const dateLayout = "2006-01-02"

func (s *Service) reportDate(raw string) (time.Time, error) {
	if raw == "" {
		now := time.Now().In(s.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
	}
	if d, err := time.ParseInLocation(dateLayout, raw, s.loc); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrInvalidRequest, raw)
}

func (s *Service) model(requested string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return s.defaultModel
}
