package leaselock

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWithLease(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WithArgs("run:abc", pgxmock.AnyArg(), int64(60000)).
		WillReturnRows(pgxmock.NewRows([]string{"lock_key"}).AddRow("run:abc"))
	mock.ExpectExec(regexp.QuoteMeta(releaseSQL)).
		WithArgs("run:abc", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	ran := false
	err = New(mock).WithLease(context.Background(), RunKey("abc"), Options{TTL: time.Minute}, func(ctx context.Context) error {
		ran = true
		assert.NoError(t, ctx.Err())
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_Busy(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WithArgs("run:abc", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err = New(mock).Acquire(context.Background(), RunKey("abc"), Options{})
	assert.ErrorIs(t, err, ErrBusy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquire_PropagatesErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	dbErr := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).WillReturnError(dbErr)

	_, err = New(mock).Acquire(context.Background(), "k", Options{})
	assert.ErrorIs(t, err, dbErr)

	_, err = New(mock).Acquire(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestReleaseCancelsLeaseContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta(tryAcquireSQL)).
		WillReturnRows(pgxmock.NewRows([]string{"lock_key"}).AddRow("k"))
	mock.ExpectExec(regexp.QuoteMeta(releaseSQL)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	lease, err := New(mock).Acquire(context.Background(), "k", Options{TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, lease.Release(context.Background()))
	assert.ErrorIs(t, lease.Context.Err(), context.Canceled)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{TTL: 10 * time.Second, RenewEvery: time.Minute, WaitJitter: -1}.withDefaults()
	assert.Equal(t, 5*time.Second, o.RenewEvery)
	assert.Equal(t, defaultWaitInterval, o.WaitInterval)
	assert.Zero(t, o.WaitJitter)

	assert.Equal(t, defaultTTL, Options{}.withDefaults().TTL)
}
