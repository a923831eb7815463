package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardClassification(t *testing.T) {
	cases := []struct {
		sid   string
		board Board
		lot   int
	}{
		{"688001", BoardSTAR, 200},
		{"300750", BoardChiNext, 100},
		{"600519", BoardShanghaiMain, 100},
		{"000001", BoardShenzhenMain, 100},
	}

	for _, c := range cases {
		a := &Asset{Sid: c.sid}
		assert.Equal(t, c.board, a.Board(), c.sid)
		assert.Equal(t, c.lot, a.LotSize(), c.sid)
	}
}

func TestPriceLimitRegimes(t *testing.T) {
	star := &Asset{Sid: "688001"}
	assert.Equal(t, 0.2, star.PriceLimit(20190101))

	chinext := &Asset{Sid: "300750"}
	assert.Equal(t, 0.1, chinext.PriceLimit(20200823))
	assert.Equal(t, 0.2, chinext.PriceLimit(20200824))

	main := &Asset{Sid: "600519"}
	assert.Equal(t, 0.1, main.PriceLimit(20260101))
}

func TestDelisted(t *testing.T) {
	a := &Asset{Sid: "600000", Delist: 0}
	assert.False(t, a.Delisted(20260101))

	a.Delist = 20250101
	assert.False(t, a.Delisted(20241231))
	assert.True(t, a.Delisted(20250101))
	assert.True(t, a.Delisted(20260101))
}

func TestShanghaiListed(t *testing.T) {
	assert.True(t, (&Asset{Sid: "600519"}).ShanghaiListed())
	assert.True(t, (&Asset{Sid: "688001"}).ShanghaiListed())
	assert.False(t, (&Asset{Sid: "000001"}).ShanghaiListed())
	assert.False(t, (&Asset{Sid: "300750"}).ShanghaiListed())
}
