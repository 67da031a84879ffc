package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HangarWatch/internal/domain"
	"HangarWatch/internal/ports"
)

func newTestCollector(src *fakeSource, store *fakeStore, oracle *scriptedOracle, skip bool, exp *fakeExporter, notifiers ...ports.Notifier) *Collector {
	deps := CollectorDeps{
		Pipeline:   newTestPipeline(store, oracle, &staticEmbedder{}),
		Store:      store,
		Notifiers:  notifiers,
		SkipFailed: skip,
	}
	if src != nil {
		deps.Source = src
	}
	if exp != nil {
		deps.Exporter = exp
	}
	return NewCollector(deps)
}

func TestCollectPublishesNewIncidents(t *testing.T) {
	t.Parallel()

	src := &fakeSource{records: []domain.RawRecord{
		{Title: "Hangar fire", URL: "http://a/1"},
		{Title: "Same link", URL: "http://a/1"},
		{Title: "No link"},
	}}
	store := newFakeStore(domain.Incident{ID: 1, Title: "Archive", CollectedAt: domain.TagArchive})
	oracle := &scriptedOracle{answers: []string{verdictJSON(true, 0, "", "")}}
	exp := &fakeExporter{}
	tg, mail := &fakeNotifier{}, &fakeNotifier{}

	res, err := newTestCollector(src, store, oracle, false, exp, tg, mail).Collect(context.Background(), inW09, false)
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, src.got, "regular runs are weekly")
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 1, res.Candidates)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "reports/test.xlsx", res.ReportPath)

	require.Len(t, exp.exported, 1)
	require.Len(t, exp.exported[0], 1, "archive incidents stay out of the report")
	assert.Equal(t, "Hangar fire", exp.exported[0][0].Title)

	for _, n := range []*fakeNotifier{tg, mail} {
		require.Len(t, n.batches, 1)
		assert.Equal(t, res.Created, n.batches[0])
		assert.Equal(t, []string{"reports/test.xlsx"}, n.paths)
	}
}

func TestCollectBackfillIsNotWeekly(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	exp := &fakeExporter{}
	res, err := newTestCollector(src, newFakeStore(), &scriptedOracle{}, false, exp).Collect(context.Background(), inW09, true)
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, src.got)
	assert.Empty(t, res.Created)
	assert.Empty(t, exp.exported, "nothing new, nothing exported")
}

func TestCollectFetchFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("all sources failed")}
	_, err := newTestCollector(src, newFakeStore(), &scriptedOracle{}, false, nil).Collect(context.Background(), time.Now(), false)
	assert.ErrorContains(t, err, "fetch records")

	_, err = NewCollector(CollectorDeps{}).Collect(context.Background(), time.Now(), false)
	assert.ErrorContains(t, err, "record source is not configured")
}

func TestProcessSkipFailed(t *testing.T) {
	t.Parallel()

	records := []domain.RawRecord{
		{Title: "ok", URL: "http://a/1"},
		{Title: "broken", URL: "http://a/2"},
		{Title: "ok again", URL: "http://a/3"},
	}
	newOracle := func() *scriptedOracle {
		return &scriptedOracle{answers: []string{verdictJSON(true, 0, "", ""), "garbage", verdictJSON(true, 0, "", "")}}
	}

	store := newFakeStore()
	res, err := newTestCollector(nil, store, newOracle(), true, nil).Process(context.Background(), records, false)
	require.NoError(t, err)
	assert.Len(t, res.Created, 2)
	assert.Equal(t, 1, res.Failed)

	store = newFakeStore()
	res, err = newTestCollector(nil, store, newOracle(), false, nil).Process(context.Background(), records, false)
	assert.ErrorIs(t, err, domain.ErrDecode)
	assert.Len(t, res.Created, 1)
	assert.Len(t, store.snapshot(), 1)
}

func TestProcessPublishesPartialBatch(t *testing.T) {
	t.Parallel()

	exp := &fakeExporter{}
	notifier := &fakeNotifier{}
	oracle := &scriptedOracle{answers: []string{verdictJSON(true, 0, "", ""), "garbage"}}

	res, err := newTestCollector(nil, newFakeStore(), oracle, false, exp, notifier).
		Process(context.Background(), []domain.RawRecord{
			{Title: "stored", URL: "http://a/1"},
			{Title: "broken", URL: "http://a/2"},
		}, false)
	assert.ErrorIs(t, err, domain.ErrDecode)
	require.Len(t, res.Created, 1)
	assert.Len(t, exp.exported, 1)
	require.Len(t, notifier.batches, 1)
	assert.Equal(t, "stored", notifier.batches[0][0].Title)
	assert.Equal(t, "reports/test.xlsx", res.ReportPath)
}

func TestPublishJoinsNotifierErrors(t *testing.T) {
	t.Parallel()

	ok := &fakeNotifier{}
	bad := &fakeNotifier{err: errors.New("smtp down")}
	oracle := &scriptedOracle{answers: []string{verdictJSON(true, 0, "", "")}}

	res, err := newTestCollector(nil, newFakeStore(), oracle, false, &fakeExporter{}, bad, ok).
		Process(context.Background(), []domain.RawRecord{{Title: "t", URL: "http://a/1"}}, true)
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, ok.batches, 1, "one failing notifier does not silence the others")
	assert.Equal(t, "reports/test.xlsx", res.ReportPath)
	assert.Equal(t, domain.TagBackfill, res.Created[0].CollectedAt)
}

func TestSchedulerRunsWeeklyCollection(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	driver := &manualDriver{}
	s := NewScheduler(driver, newTestCollector(src, newFakeStore(), &scriptedOracle{}, false, nil), nil)

	require.NoError(t, s.Start(context.Background()))
	require.NotNil(t, driver.job)
	driver.job(inW09)
	assert.Equal(t, []bool{true}, src.got)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

type manualDriver struct {
	job     func(time.Time)
	stopped bool
}

func (d *manualDriver) Start(_ context.Context, job func(time.Time)) error {
	d.job = job
	return nil
}

func (d *manualDriver) Stop(context.Context) error {
	d.stopped = true
	return nil
}
