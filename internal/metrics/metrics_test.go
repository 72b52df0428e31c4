package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/contactkeval/option-mc/internal/errs"
)

func TestObserveSuccess(t *testing.T) {
	runs := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeOK))
	paths := testutil.ToFloat64(pathsTotal)
	events := testutil.ToFloat64(degenerateEventsTotal)

	ObserveSuccess("put", 5.84, 1000, 3, 20*time.Millisecond)

	assert.Equal(t, runs+1, testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, paths+1000, testutil.ToFloat64(pathsTotal))
	assert.Equal(t, events+3, testutil.ToFloat64(degenerateEventsTotal))
	assert.Equal(t, 5.84, testutil.ToFloat64(lastPrice.WithLabelValues("put")))
}

func TestObserveFailure(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeOverflow))
	ObserveFailure(OutcomeOverflow, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeOverflow)))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeOf(nil))
	assert.Equal(t, OutcomeInvalid, OutcomeOf(errs.InvalidArgument("paths")))
	assert.Equal(t, OutcomeOverflow, OutcomeOf(errs.NumericOverflow("sum")))
	assert.Equal(t, OutcomeCancelled, OutcomeOf(errors.Wrap(context.Canceled, "run")))
	assert.Equal(t, OutcomeError, OutcomeOf(errors.New("boom")))
}
