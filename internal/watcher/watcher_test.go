package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/LakeLink/WE/internal/broker"
	"github.com/LakeLink/WE/internal/broker/mocks"
	"github.com/LakeLink/WE/internal/domain/model"
	"github.com/LakeLink/WE/internal/store/memory"
)

func record(serial, amount string) model.TransactionRecord {
	return model.TransactionRecord{
		SerialNo:        serial,
		Amount:          amount,
		MerchantAddress: "canteen",
		FeeName:         "lunch",
	}
}

func apiFactory(api broker.API) broker.Factory {
	return func(ctx context.Context) (broker.API, error) {
		return api, nil
	}
}

type captureArchive struct {
	saved []model.TransactionRecord
	err   error
}

func (a *captureArchive) Save(_ context.Context, records []model.TransactionRecord) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, records...)
	return nil
}

func TestPoll_SurfacesHighestNewSerialOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).Return([]model.TransactionRecord{
		record("95", "1.00"),
		record("101", "2.00"),
		record("103", "3.00"),
		record("99", "4.00"),
	}, nil)

	settings := memory.NewSettings()
	require.NoError(t, settings.SetHighWaterMark(context.Background(), 100))

	w := New(apiFactory(api), settings, nil)
	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, int64(103), event.Serial)
	assert.Equal(t, int64(100), event.PreviousMark)
	assert.Equal(t, "103", event.Record.SerialNo)
	assert.Equal(t, 2, event.NewerCount)

	mark, err := settings.HighWaterMark(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(103), mark)
}

func TestPoll_SecondPollWithSameDataIsQuiet(t *testing.T) {
	batch := []model.TransactionRecord{record("101", "1.00"), record("102", "2.00")}

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).Return(batch, nil).Times(2)

	settings := memory.NewSettings()
	w := New(apiFactory(api), settings, nil)

	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(102), event.Serial)

	event, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestPoll_EmptyFeed(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).Return(nil, nil)

	w := New(apiFactory(api), memory.NewSettings(), nil)
	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestPoll_FetchFailureLeavesMarkUntouched(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("feed unavailable"))

	settings := memory.NewSettings()
	require.NoError(t, settings.SetHighWaterMark(context.Background(), 50))

	w := New(apiFactory(api), settings, nil)
	event, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Nil(t, event)

	mark, err := settings.HighWaterMark(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(50), mark)
}

func TestPoll_AuthFailurePropagates(t *testing.T) {
	authErr := errors.New("session rejected")
	factory := func(ctx context.Context) (broker.API, error) {
		return nil, authErr
	}

	w := New(factory, memory.NewSettings(), nil)
	_, err := w.Poll(context.Background())
	require.ErrorIs(t, err, authErr)
}

func TestPoll_SkipsUnparseableSerials(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).Return([]model.TransactionRecord{
		record("not-a-number", "1.00"),
		record("7", "2.00"),
	}, nil)

	w := New(apiFactory(api), memory.NewSettings(), nil)
	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(7), event.Serial)
}

func TestPoll_ArchivesEveryNewRecord(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).Return([]model.TransactionRecord{
		record("95", "1.00"),
		record("101", "2.00"),
		record("103", "3.00"),
	}, nil)

	settings := memory.NewSettings()
	require.NoError(t, settings.SetHighWaterMark(context.Background(), 100))

	archive := &captureArchive{}
	w := New(apiFactory(api), settings, nil, WithArchive(archive))

	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)

	require.Len(t, archive.saved, 2)
	assert.Equal(t, "101", archive.saved[0].SerialNo)
	assert.Equal(t, "103", archive.saved[1].SerialNo)
}

func TestPoll_ArchiveFailureDoesNotAffectEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), gomock.Any()).
		Return([]model.TransactionRecord{record("5", "1.00")}, nil)

	settings := memory.NewSettings()
	archive := &captureArchive{err: errors.New("db down")}
	w := New(apiFactory(api), settings, nil, WithArchive(archive))

	event, err := w.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, int64(5), event.Serial)

	mark, err := settings.HighWaterMark(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), mark)
}

func TestPoll_QueriesCurrentDay(t *testing.T) {
	day := time.Date(2025, 5, 8, 9, 30, 0, 0, time.UTC)

	ctrl := gomock.NewController(t)
	api := mocks.NewMockAPI(ctrl)
	api.EXPECT().Transactions(gomock.Any(), day).Return(nil, nil)

	w := New(apiFactory(api), memory.NewSettings(), nil,
		WithClock(func() time.Time { return day }),
	)
	_, err := w.Poll(context.Background())
	require.NoError(t, err)
}
