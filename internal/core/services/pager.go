package services

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/custodia-labs/campusbridge/internal/core/domain"
	"github.com/custodia-labs/campusbridge/internal/core/ports/driving"
)

// Ensure Pager implements the interface.
var _ driving.PageIterator = (*Pager)(nil)

// Pager drives the executor over the pages of one logical request.
//
// Each Next issues at most one call, so a slow consumer delays the next
// call instead of buffering pages. The first Next always issues a call,
// even on a done context, so every sequence yields at least one page.
// The sequence ends after an error page, a page without a next-page
// token, the page limit, a done context or Stop. A Pager is not
// restartable and must not be used from several goroutines.
type Pager struct {
	exec      *Executor
	auth      *domain.Authorization
	method    *domain.ResourceMethod
	desc      domain.RequestDescriptor
	requestID string
	logger    *zap.Logger

	state  domain.PaginationState
	page   *domain.PageResult
	done   bool
	reason domain.StopReason
}

// NewPager creates a pager for a resolved request.
func NewPager(exec *Executor, auth *domain.Authorization, method *domain.ResourceMethod, desc domain.RequestDescriptor, requestID string, logger *zap.Logger) *Pager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pager{
		exec:      exec,
		auth:      auth,
		method:    method,
		desc:      desc,
		requestID: requestID,
		logger:    logger.With(zap.String("request_id", requestID)),
		state:     domain.PaginationState{UnderLimit: true},
	}
}

// Next issues the next call and reports whether a page is available.
func (p *Pager) Next(ctx context.Context) bool {
	if p.done {
		return false
	}
	if p.state.PagesIssued > 0 && ctx.Err() != nil {
		p.finish(domain.StopCancelled)
		return false
	}

	token := p.state.PageToken
	if token != "" {
		p.logger.Debug("making page request", zap.String("page_token", token))
	}

	page := p.exec.Execute(ctx, p.auth, PageRequest{
		Descriptor: p.desc,
		Method:     p.method,
		PageToken:  token,
		Index:      p.state.PagesIssued,
		RequestID:  p.requestID,
	})
	p.page = page
	p.state.PagesIssued++

	if page.Failed() {
		p.logger.Warn("request stopped on error",
			zap.Int("status", page.StatusCode), zap.Error(page.Err))
		p.state.PageToken = ""
		p.finish(domain.StopError)
		return true
	}

	p.state.PageToken = page.NextPageToken()
	p.state.UnderLimit = domain.UnderPageLimit(p.state.PagesIssued, p.desc.PageLimit)

	switch {
	case p.state.PageToken == "":
		p.finish(domain.StopExhausted)
	case !p.state.UnderLimit:
		p.finish(domain.StopPageLimit)
	}
	return true
}

// Page returns the page produced by the last Next.
func (p *Pager) Page() *domain.PageResult {
	return p.page
}

// Done reports whether the sequence has terminated.
func (p *Pager) Done() bool {
	return p.done
}

// State returns the current cursor state.
func (p *Pager) State() domain.PaginationState {
	return p.state
}

// StopReason explains why the sequence terminated.
func (p *Pager) StopReason() domain.StopReason {
	return p.reason
}

// Stop ends the sequence early.
func (p *Pager) Stop() {
	if !p.done {
		p.finish(domain.StopStopped)
	}
}

// All returns the remaining pages as a range-over-func sequence.
// Breaking out of the loop stops the pager.
func (p *Pager) All(ctx context.Context) iter.Seq[*domain.PageResult] {
	return func(yield func(*domain.PageResult) bool) {
		for p.Next(ctx) {
			if !yield(p.page) {
				p.Stop()
				return
			}
		}
	}
}

func (p *Pager) finish(reason domain.StopReason) {
	p.done = true
	p.reason = reason
	p.logger.Debug("page sequence finished",
		zap.String("reason", string(reason)), zap.Int("pages", p.state.PagesIssued))
}
