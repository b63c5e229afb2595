package scanner

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"orderscan/internal/components/telemetry"
	"orderscan/internal/dom"
	"orderscan/internal/orders"
	"orderscan/internal/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type row struct {
	Date      string
	OrderID   string
	PaidPrice string
	Name      string
	URL       string
	HasURL    bool
	Price     string
	HasPrice  bool
}

func toRow(item orders.Item) row {
	url, hasUrl := item.URL()
	price, hasPrice := item.Price()
	return row{
		Date:      item.Date().Format(time.DateOnly),
		OrderID:   item.OrderID(),
		PaidPrice: item.PaidPrice(),
		Name:      item.Name(),
		URL:       url,
		HasURL:    hasUrl,
		Price:     price,
		HasPrice:  hasPrice,
	}
}

func collect(sc *Scanner, page dom.Page) ([]row, error) {
	var rows []row
	err := sc.Scan(page, func(item orders.Item) error {
		rows = append(rows, toRow(item))
		return nil
	})
	return rows, err
}

var page1Rows = []row{
	{
		Date: "2016-03-04", OrderID: "249-0000001", PaidPrice: "￥ 1,980", Name: "Widget One",
		URL: "https://www.amazon.co.jp/gp/product/B000000001", HasURL: true,
		Price: "￥ 980", HasPrice: true,
	},
	{
		Date: "2016-03-04", OrderID: "249-0000001", PaidPrice: "￥ 1,980", Name: "Widget Two",
		URL: "https://www.amazon.co.jp/gp/product/B000000002", HasURL: true,
		Price: "￥ 1,000", HasPrice: true,
	},
	{
		Date: "2016-01-01", OrderID: "249-0000002", PaidPrice: "￥ 0", Name: "Free App",
	},
	{
		Date: "2015-12-31", OrderID: "249-0000003", PaidPrice: "￥ 500", Name: "Old Book",
		URL: "https://www.amazon.co.jp/gp/product/B000000003", HasURL: true,
		Price: "￥ 500", HasPrice: true,
	},
}

func TestScanPage(t *testing.T) {
	tel := &telemetry.Recorder{}
	sc := New(tel, Options{})
	page := testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_1)

	rows, err := collect(sc, page)
	require.NoError(t, err)

	diff := cmp.Diff(page1Rows, rows)
	if diff != "" {
		t.Fatal(diff)
	}

	counts := tel.Find(telemetry.LEVEL_COUNT, report_scanner_items)
	require.Len(t, counts, 1)
	require.Equal(t, int64(4), counts[0].Count)
	require.Empty(t, tel.Find(telemetry.LEVEL_BROKEN, report_scanner_scan_order))
}

func TestScanIsRestartable(t *testing.T) {
	sc := New(&telemetry.Recorder{}, Options{})
	page := testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_1)

	first, err := collect(sc, page)
	require.NoError(t, err)
	second, err := collect(sc, page)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScanMultipleItemRows(t *testing.T) {
	sc := New(&telemetry.Recorder{}, Options{})
	page := testutil.Page(t, testutil.Page2Address, testutil.PAGE_2)

	rows, err := collect(sc, page)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Gadget", rows[0].Name)
	require.Equal(t, "Cable", rows[1].Name)
	for _, r := range rows {
		require.Equal(t, "2017-10-14", r.Date)
		require.Equal(t, "D01-0000004", r.OrderID)
		require.Equal(t, "￥ 3,000", r.PaidPrice)
	}
}

func TestScanMissingOptionalFields(t *testing.T) {
	tel := &telemetry.Recorder{}
	sc := New(tel, Options{})
	page := testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_1)

	rows, err := collect(sc, page)
	require.NoError(t, err)

	free := rows[2]
	require.Equal(t, "Free App", free.Name)
	require.False(t, free.HasURL)
	require.Empty(t, free.URL)
	require.False(t, free.HasPrice)
	// the orders after it are still scanned
	require.Equal(t, "Old Book", rows[3].Name)

	require.NotEmpty(t, tel.Find(telemetry.LEVEL_DEBUG, report_scanner_optional_field))
}

func TestScanDateRange(t *testing.T) {
	testCases := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{
			name:     "drop before keeps the bound itself",
			opts:     Options{DropBefore: orders.Date(2016, time.January, 1)},
			expected: []string{"Widget One", "Widget Two", "Free App"},
		},
		{
			name:     "drop after keeps the bound itself",
			opts:     Options{DropAfter: orders.Date(2016, time.January, 1)},
			expected: []string{"Free App", "Old Book"},
		},
		{
			name: "both bounds",
			opts: Options{
				DropBefore: orders.Date(2016, time.January, 1),
				DropAfter:  orders.Date(2016, time.February, 1),
			},
			expected: []string{"Free App"},
		},
		{
			name:     "nothing in range",
			opts:     Options{DropBefore: orders.Date(2020, time.January, 1)},
			expected: nil,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			sc := New(&telemetry.Recorder{}, test.opts)
			rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_1))
			require.NoError(t, err)

			var names []string
			for _, r := range rows {
				names = append(names, r.Name)
			}
			require.Equal(t, test.expected, names)
		})
	}
}

func TestScanFailingOrder(t *testing.T) {
	t.Run("without force", func(t *testing.T) {
		tel := &telemetry.Recorder{}
		sc := New(tel, Options{})

		rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_BROKEN))
		require.Error(t, err)
		require.Empty(t, rows)

		var orderErr *orders.OrderError
		require.True(t, errors.As(err, &orderErr))
		require.Equal(t, 1, orderErr.Index)
		require.Equal(t, testutil.HistoryAddress, orderErr.Page)

		var lookupErr *orders.LookupError
		require.True(t, errors.As(err, &lookupErr))
		require.Equal(t, "order id", lookupErr.Field)
		require.True(t, errors.Is(err, dom.ErrNoSuchElement))

		require.Len(t, tel.Find(telemetry.LEVEL_BROKEN, report_scanner_scan_order), 1)
		require.Empty(t, tel.Find(telemetry.LEVEL_DEBUG, report_scanner_skip_order))
	})

	t.Run("with force", func(t *testing.T) {
		tel := &telemetry.Recorder{}
		sc := New(tel, Options{Force: true})

		rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_BROKEN))
		require.NoError(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, "First", rows[0].Name)
		require.Equal(t, "Third", rows[1].Name)

		skips := tel.Find(telemetry.LEVEL_DEBUG, report_scanner_skip_order)
		require.Len(t, skips, 1)
		var orderErr *orders.OrderError
		require.ErrorAs(t, skips[0].Params[2].(error), &orderErr)
		require.Equal(t, 1, orderErr.Index)
		require.Empty(t, tel.Find(telemetry.LEVEL_BROKEN, report_scanner_scan_order))
		require.Empty(t, tel.Find(telemetry.LEVEL_WARNING, report_scanner_scan_order))
	})
}

func TestScanForceSkipHiddenAtWarnLevel(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	var out bytes.Buffer
	telemetry.InitSlog(&out, slog.LevelWarn)

	sc := New(telemetry.SlogAPI{}, Options{Force: true})
	rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_BROKEN))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Empty(t, out.String())
}

func TestScanBadDate(t *testing.T) {
	sc := New(&telemetry.Recorder{}, Options{})
	_, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_BAD_DATE))

	var parseErr *orders.ParseError
	require.True(t, errors.As(err, &parseErr))
	require.Equal(t, "order date", parseErr.Field)
	require.Equal(t, "2016/05/04", parseErr.Value)

	sc = New(&telemetry.Recorder{}, Options{Force: true})
	rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_BAD_DATE))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Fine", rows[0].Name)
}

func TestScanEmptyPage(t *testing.T) {
	sc := New(&telemetry.Recorder{}, Options{})
	rows, err := collect(sc, testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_EMPTY))
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestScanConsumerError(t *testing.T) {
	sentinel := errors.New("disk full")
	sc := New(&telemetry.Recorder{}, Options{Force: true})

	calls := 0
	err := sc.Scan(testutil.Page(t, testutil.HistoryAddress, testutil.PAGE_1), func(orders.Item) error {
		calls++
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 1, calls)
}
