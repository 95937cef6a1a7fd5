package sweeper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BryanViews002/style-yard-emporium-sub000/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockExpirer struct {
	batches [][]*domain.Order
	err     error
	cutoffs []time.Time
	calls   int
}

func (m *MockExpirer) ExpirePending(_ context.Context, cutoff time.Time, _ int) ([]*domain.Order, error) {
	m.cutoffs = append(m.cutoffs, cutoff)
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

type MockCanceller struct {
	cancelled []string
	err       error
}

func (m *MockCanceller) Cancel(_ context.Context, intentID string) error {
	m.cancelled = append(m.cancelled, intentID)
	return m.err
}

func order(intentID string) *domain.Order {
	return &domain.Order{ID: uuid.New(), Status: domain.OrderStatusCancelled, PaymentIntentID: intentID}
}

func TestSweep_CancelsIntents(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	expirer := &MockExpirer{batches: [][]*domain.Order{{order("pi_1"), order(""), order("pi_3")}}}
	canceller := &MockCanceller{}
	s := New(expirer, canceller, 30*time.Minute, time.Minute)
	s.now = func() time.Time { return now }

	n := s.Sweep(context.Background())

	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"pi_1", "pi_3"}, canceller.cancelled)
	require.Len(t, expirer.cutoffs, 1)
	assert.Equal(t, now.Add(-30*time.Minute), expirer.cutoffs[0])
}

func TestSweep_DrainsFullBatches(t *testing.T) {
	full := make([]*domain.Order, batchSize)
	for i := range full {
		full[i] = order("")
	}
	expirer := &MockExpirer{batches: [][]*domain.Order{full, {order("")}}}
	s := New(expirer, &MockCanceller{}, time.Minute, time.Minute)

	n := s.Sweep(context.Background())

	assert.Equal(t, batchSize+1, n)
	assert.Equal(t, 2, expirer.calls)
}

func TestSweep_CancelFailureDoesNotStop(t *testing.T) {
	expirer := &MockExpirer{batches: [][]*domain.Order{{order("pi_1"), order("pi_2")}}}
	canceller := &MockCanceller{err: errors.New("stripe down")}
	s := New(expirer, canceller, time.Minute, time.Minute)

	n := s.Sweep(context.Background())

	assert.Equal(t, 2, n)
	assert.Len(t, canceller.cancelled, 2)
}

func TestSweep_RepositoryError(t *testing.T) {
	expirer := &MockExpirer{err: errors.New("db down")}
	s := New(expirer, &MockCanceller{}, time.Minute, time.Minute)

	assert.Equal(t, 0, s.Sweep(context.Background()))
	assert.Equal(t, 1, expirer.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	expirer := &MockExpirer{}
	s := New(expirer, &MockCanceller{}, time.Minute, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
