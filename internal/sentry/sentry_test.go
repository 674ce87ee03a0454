package sentry

import (
	"context"
	"errors"
	"testing"

	"github.com/flexprice/checkout-pricing/internal/config"
	"github.com/flexprice/checkout-pricing/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestDisabledServiceIsNoop(t *testing.T) {
	svc := NewSentryService(config.GetDefaultConfig(), logger.NewNoopLogger())
	ctx := context.Background()

	span, spanCtx := svc.StartRepriceSpan(ctx, "subscription", "subp_1")
	assert.Nil(t, span)
	assert.Equal(t, ctx, spanCtx)
	FinishSpan(span)

	tx, txCtx := svc.StartTransaction(ctx, "quote")
	assert.Nil(t, tx)
	assert.Equal(t, ctx, txCtx)
	SetSpanStatus(tx, errors.New("boom"))
	FinishSpan(tx)

	svc.CaptureException(errors.New("boom"))
	svc.AddBreadcrumb("pricing", "noop", nil)
	assert.True(t, svc.Flush(1))
}
