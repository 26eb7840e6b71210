package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(offset int) time.Time {
	return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func makeBars(closes ...float64) []Bar {
	bars := make([]Bar, len(closes))
	for i, c := range closes {
		bars[i] = Bar{Date: day(i), Open: c, High: c, Low: c, Close: c, Volume: 1000}
	}
	return bars
}

func TestNew_ValidSeries(t *testing.T) {
	s, err := New("0700.HK", makeBars(100, 101, 102))

	require.NoError(t, err)
	assert.Equal(t, "0700.HK", s.Symbol)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{100, 101, 102}, s.Closes())
}

func TestNew_Rejections(t *testing.T) {
	t.Run("Empty symbol", func(t *testing.T) {
		_, err := New("", makeBars(100))
		assert.Error(t, err)
	})

	t.Run("No bars", func(t *testing.T) {
		_, err := New("0700.HK", nil)
		assert.Error(t, err)
	})

	t.Run("Non-positive price", func(t *testing.T) {
		bars := makeBars(100, 101)
		bars[1].Close = 0
		_, err := New("0700.HK", bars)
		assert.Error(t, err)
	})

	t.Run("Duplicate date", func(t *testing.T) {
		bars := makeBars(100, 101)
		bars[1].Date = bars[0].Date
		_, err := New("0700.HK", bars)
		assert.Error(t, err)
	})

	t.Run("Out of order dates", func(t *testing.T) {
		bars := makeBars(100, 101, 102)
		bars[2].Date = day(0)
		_, err := New("0700.HK", bars)
		assert.Error(t, err)
	})
}

func TestAligned(t *testing.T) {
	a, err := New("0700.HK", makeBars(100, 101, 102))
	require.NoError(t, err)
	b, err := New("0005.HK", makeBars(60, 61, 62))
	require.NoError(t, err)

	assert.NoError(t, a.Aligned(b))

	t.Run("Different lengths", func(t *testing.T) {
		short, err := New("0005.HK", makeBars(60, 61))
		require.NoError(t, err)
		assert.Error(t, a.Aligned(short))
	})

	t.Run("Diverging dates", func(t *testing.T) {
		bars := makeBars(60, 61, 62)
		bars[1].Date = day(5)
		bars[2].Date = day(6)
		shifted, err := New("0005.HK", bars)
		require.NoError(t, err)
		assert.Error(t, a.Aligned(shifted))
	})
}

func TestNormalizeSymbol(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
		wantErr  bool
	}{
		{input: "700", expected: "0700.HK"},
		{input: "0700", expected: "0700.HK"},
		{input: "0700.HK", expected: "0700.HK"},
		{input: "700.hk", expected: "0700.HK"},
		{input: " 5 ", expected: "0005.HK"},
		{input: "9988", expected: "9988.HK"},
		{input: "80737", expected: "80737.HK"},
		{input: "", wantErr: true},
		{input: ".HK", wantErr: true},
		{input: "123456", wantErr: true},
		{input: "abc", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := NormalizeSymbol(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}
