// Package pipeline runs invocations end to end: resolve the adapter, decode
// the body, execute, classify. Every outcome, including panics, becomes a
// FunctionResponse.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/vaultgate/internal/apperr"
	"github.com/akave-ai/vaultgate/internal/codec"
	"github.com/akave-ai/vaultgate/internal/infrastructure/adapters"
	"github.com/akave-ai/vaultgate/internal/model"
	"github.com/akave-ai/vaultgate/internal/response"
)

// AuditSink stores one record per invocation. Records never contain tokens
// or plaintext values.
type AuditSink interface {
	Record(ctx context.Context, rec *model.InvocationRecord) error
}

// auditTimeout bounds each audit write.
const auditTimeout = 3 * time.Second

type nopSink struct{}

func (nopSink) Record(context.Context, *model.InvocationRecord) error { return nil }

type Option func(*Pipeline)

// WithAudit sets the audit sink.
func WithAudit(sink AuditSink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.audit = sink
		}
	}
}

// WithNewRelic starts one APM transaction per invocation. A nil app disables it.
func WithNewRelic(app *newrelic.Application) Option {
	return func(p *Pipeline) { p.nr = app }
}

// Pipeline is safe for concurrent use; invocations share nothing mutable.
type Pipeline struct {
	registry *adapters.Registry
	logger   zerolog.Logger
	audit    AuditSink
	nr       *newrelic.Application
	now      func() time.Time

	auditTimeout time.Duration
}

func New(registry *adapters.Registry, logger zerolog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: registry,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		audit:    nopSink{},
		now:      time.Now,

		auditTimeout: auditTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Invoke runs one invocation through the named adapter. It never panics and
// always returns a populated envelope.
func (p *Pipeline) Invoke(ctx context.Context, adapterName string, inv model.Invocation) model.FunctionResponse {
	start := p.now()
	requestID := inv.RequestID()
	if requestID == "" {
		requestID = uuid.NewString()
	}

	var txn *newrelic.Transaction
	if p.nr != nil {
		txn = p.nr.StartTransaction("invoke/" + adapterName)
		defer txn.End()
		txn.AddAttribute("adapter", adapterName)
		txn.AddAttribute("request_id", requestID)
		ctx = newrelic.NewContext(ctx, txn)
	}

	call := &adapters.Call{RequestID: requestID, Headers: inv.Headers}
	fr, err := p.run(ctx, adapterName, inv, call)

	rec := &model.InvocationRecord{
		ID:              uuid.New(),
		RequestID:       requestID,
		Adapter:         adapterName,
		StatusCode:      fr.StatusCode,
		ErrorFromClient: fr.ErrorFromClient(),
		TokenCount:      call.TokenCount,
		DurationMs:      p.now().Sub(start).Milliseconds(),
		CreatedAt:       start.UTC(),
	}
	if err != nil {
		rec.ErrorKind = string(apperr.KindOf(err))
		if txn != nil {
			txn.NoticeError(err)
		}
	}
	p.log(rec, err)

	p.record(ctx, rec)
	return fr
}

func (p *Pipeline) record(ctx context.Context, rec *model.InvocationRecord) {
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.auditTimeout)
	defer cancel()
	if err := p.audit.Record(auditCtx, rec); err != nil {
		p.logger.Error().Err(err).Str("request_id", rec.RequestID).Msg("failed to record invocation")
	}
}

func (p *Pipeline) run(ctx context.Context, adapterName string, inv model.Invocation, call *adapters.Call) (fr model.FunctionResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			fr = response.Panic(r)
			err = apperr.Newf(apperr.Internal, "panic: %v", r)
		}
	}()

	adapter, ok := p.registry.Get(adapterName)
	if !ok {
		fr = response.New()
		fr.StatusCode = http.StatusNotFound
		fr.BodyBytes = codec.Quote(fmt.Sprintf("unknown adapter %q", adapterName))
		return fr, apperr.Newf(apperr.BadRequest, "unknown adapter %q", adapterName)
	}

	body, err := inv.Body()
	if err != nil {
		err = apperr.Wrap(apperr.MalformedPayload, err, "decode BodyContent")
		return response.Classify(adapter.Profile(), nil, err), err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		err = apperr.New(apperr.BadRequest, response.BadRequestBody)
		return response.Classify(adapter.Profile(), nil, err), err
	}
	call.Body = body

	upstream, err := adapter.Execute(ctx, call)
	fr = response.Classify(adapter.Profile(), upstream, err)
	if err == nil && upstream != nil && !upstream.OK() {
		err = &apperr.Error{Kind: apperr.UpstreamFailure, Msg: fmt.Sprintf("PSP returned %d", upstream.StatusCode), Status: upstream.StatusCode}
	}
	return fr, err
}

func (p *Pipeline) log(rec *model.InvocationRecord, err error) {
	var ev *zerolog.Event
	switch {
	case err == nil:
		ev = p.logger.Info()
	case rec.ErrorKind == string(apperr.Internal) || rec.ErrorKind == string(apperr.Unknown):
		ev = p.logger.Error().Str("error_kind", rec.ErrorKind).Str("error", apperr.Message(err))
	default:
		ev = p.logger.Warn().Str("error_kind", rec.ErrorKind).Str("error", apperr.Message(err))
	}
	ev.Str("request_id", rec.RequestID).
		Str("adapter", rec.Adapter).
		Int("status", rec.StatusCode).
		Bool("error_from_client", rec.ErrorFromClient).
		Int("tokens", rec.TokenCount).
		Int64("duration_ms", rec.DurationMs).
		Msg("invocation completed")
}
