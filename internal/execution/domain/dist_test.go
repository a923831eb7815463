package domain

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mktdomain "github.com/wyfcoding/equitysim/internal/marketdata/domain"
)

func sampleBar() mktdomain.Bar {
	return mktdomain.Bar{
		Sid:       "600519",
		Open:      10.2,
		High:      10.8,
		Low:       10.0,
		Close:     10.5,
		Volume:    120000,
		Timestamp: time.Date(2024, 3, 15, 9, 31, 0, 0, time.UTC),
	}
}

func TestSynthesizerAnchoring(t *testing.T) {
	bar := sampleBar()

	for _, name := range []string{"beta", "linear"} {
		dist, err := NewDistribution(name, rand.New(rand.NewSource(42)))
		require.NoError(t, err)

		synth := NewSynthesizer(dist, 20)
		prices, vols := synth.Expand(bar)

		require.Len(t, prices, 20, name)
		require.Len(t, vols, 20, name)

		assert.Equal(t, bar.Open, prices[0], "%s: first sample must equal open", name)
		assert.Equal(t, bar.Close, prices[len(prices)-1], "%s: last sample must equal close", name)

		maxP, minP := prices[0], prices[0]
		var volSum float64
		for i, p := range prices {
			if p > maxP {
				maxP = p
			}
			if p < minP {
				minP = p
			}
			volSum += vols[i]
			assert.GreaterOrEqual(t, vols[i], 0.0, name)
		}
		assert.Equal(t, bar.High, maxP, "%s: max must equal high", name)
		assert.Equal(t, bar.Low, minP, "%s: min must equal low", name)
		assert.InDelta(t, bar.Volume, volSum, 1e-6, "%s: volumes must sum to bar volume", name)
	}
}

// zeroDist 权重全为零，覆盖均匀分配回退路径
type zeroDist struct{}

func (zeroDist) Name() string { return "zero" }

func (zeroDist) Variates(n int) []float64 { return make([]float64, n) }

func TestSynthesizerZeroVariateFallback(t *testing.T) {
	bar := sampleBar()
	synth := NewSynthesizer(zeroDist{}, 20)

	prices, vols := synth.Expand(bar)

	var volSum float64
	for _, v := range vols {
		assert.InDelta(t, bar.Volume/20, v, 1e-9)
		volSum += v
	}
	assert.InDelta(t, bar.Volume, volSum, 1e-6)

	// 极值锚定在退化输入下依然成立
	maxP, minP := prices[0], prices[0]
	for _, p := range prices {
		if p > maxP {
			maxP = p
		}
		if p < minP {
			minP = p
		}
	}
	assert.Equal(t, bar.High, maxP)
	assert.Equal(t, bar.Low, minP)
	assert.Equal(t, bar.Open, prices[0])
}

func TestBetaDeterministicWithSeed(t *testing.T) {
	a := NewBeta(1, 2, rand.New(rand.NewSource(7)))
	b := NewBeta(1, 2, rand.New(rand.NewSource(7)))

	va := a.Variates(50)
	vb := b.Variates(50)
	assert.Equal(t, va, vb)

	for _, v := range va {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestBetaVariatesConcurrentUse(t *testing.T) {
	dist := NewBeta(1, 2, rand.New(rand.NewSource(11)))

	var wg sync.WaitGroup
	results := make([][]float64, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for range 50 {
				results[g] = dist.Variates(20)
			}
		}(g)
	}
	wg.Wait()

	// 共享同一随机源的并行采样必须产出合法变量
	for _, vs := range results {
		require.Len(t, vs, 20)
		for _, v := range vs {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestSynthesizerClampsDegenerateSamples(t *testing.T) {
	bar := sampleBar()

	for _, samples := range []int{-1, 0, 1} {
		synth := NewSynthesizer(&Linear{}, samples)
		prices, vols := synth.Expand(bar)

		require.Len(t, prices, 2, "samples=%d", samples)
		require.Len(t, vols, 2, "samples=%d", samples)
		assert.InDelta(t, bar.Volume, vols[0]+vols[1], 1e-6, "samples=%d", samples)
	}
}

func TestPathConcatenatesBars(t *testing.T) {
	bar1 := sampleBar()
	bar2 := sampleBar()
	bar2.Timestamp = bar1.Timestamp.Add(time.Minute)

	synth := NewSynthesizer(&Linear{}, 20)
	prices, vols := synth.Path([]mktdomain.Bar{bar1, bar2})

	assert.Len(t, prices, 40)
	assert.Len(t, vols, 40)
	assert.Equal(t, bar1.Open, prices[0])
	assert.Equal(t, bar2.Open, prices[20])
}

func TestUnknownDistribution(t *testing.T) {
	_, err := NewDistribution("cauchy", rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
