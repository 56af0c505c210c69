package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSpinHistory_Push(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	history := NewRedisSpinHistory(client, 10)

	mock.ExpectLPush("casino:roulette:spins:7", 17).SetVal(1)
	mock.ExpectLTrim("casino:roulette:spins:7", 0, 9).SetVal("OK")

	require.NoError(t, history.Push(ctx, 7, 17))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSpinHistory_PushError(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	history := NewRedisSpinHistory(client, 10)

	mock.ExpectLPush("casino:roulette:spins:7", 3).SetErr(errors.New("connection refused"))

	err := history.Push(ctx, 7, 3)
	assert.ErrorContains(t, err, "failed to push spin")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSpinHistory_Recent(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	history := NewRedisSpinHistory(client, 10)

	t.Run("newest first", func(t *testing.T) {
		mock.ExpectLRange("casino:roulette:spins:7", 0, 4).SetVal([]string{"17", "0", "36"})

		spins, err := history.Recent(ctx, 7, 5)
		require.NoError(t, err)
		assert.Equal(t, []int{17, 0, 36}, spins)
	})

	t.Run("limit capped at size", func(t *testing.T) {
		mock.ExpectLRange("casino:roulette:spins:7", 0, 9).SetVal([]string{})

		spins, err := history.Recent(ctx, 7, 50)
		require.NoError(t, err)
		assert.Empty(t, spins)
	})

	t.Run("garbage in list", func(t *testing.T) {
		mock.ExpectLRange("casino:roulette:spins:7", 0, 9).SetVal([]string{"red"})

		_, err := history.Recent(ctx, 7, 10)
		assert.Error(t, err)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSpinHistory_ZeroSizeKeepsNothing(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	history := NewRedisSpinHistory(client, 0)

	require.NoError(t, history.Push(ctx, 7, 17))

	spins, err := history.Recent(ctx, 7, 10)
	require.NoError(t, err)
	assert.Empty(t, spins)

	// neither call reached Redis
	assert.NoError(t, mock.ExpectationsWereMet())
}
