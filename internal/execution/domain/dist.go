package domain

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/wyfcoding/equitysim/internal/marketdata/domain"
)

// Distribution 为一根分钟线生成 n 个非负权重变量，取值落在 [0, 1]。
// 权重同时决定合成价格在 [low, high] 内的位置和成交量的分配比例。
type Distribution interface {
	Name() string
	Variates(n int) []float64
}

// DistributionFactory 按名称构造分布，注入随机源以保证可复现
type DistributionFactory func(rng *rand.Rand) Distribution

var distFactory = map[string]DistributionFactory{
	"beta":   func(rng *rand.Rand) Distribution { return NewBeta(1, 2, rng) },
	"linear": func(rng *rand.Rand) Distribution { return &Linear{} },
}

// NewDistribution 按注册名创建分布实例
func NewDistribution(name string, rng *rand.Rand) (Distribution, error) {
	factory, ok := distFactory[name]
	if !ok {
		return nil, fmt.Errorf("unknown distribution: %q", name)
	}
	return factory(rng), nil
}

// Beta Beta(a,b) 分布采样。
// rand.Rand 不是并发安全的，mu 串行化对共享随机源的访问，
// 使同一分布实例可以被并行撮合的委托共用。
type Beta struct {
	A, B float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBeta 创建 Beta 分布，rng 为注入的随机源
func NewBeta(a, b float64, rng *rand.Rand) *Beta {
	return &Beta{A: a, B: b, rng: rng}
}

func (b *Beta) Name() string { return "beta" }

// Variates 通过两个 Gamma 变量构造 Beta 变量
func (b *Beta) Variates(n int) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]float64, n)
	for i := range out {
		x := gammaVariate(b.rng, b.A)
		y := gammaVariate(b.rng, b.B)
		if x+y == 0 {
			out[i] = 0
			continue
		}
		out[i] = x / (x + y)
	}
	return out
}

// gammaVariate Marsaglia–Tsang 方法采样 Gamma(shape, 1)
func gammaVariate(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// shape 提升技巧：Gamma(a) = Gamma(a+1) * U^(1/a)
		u := rng.Float64()
		return gammaVariate(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1.0-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v
		}
	}
}

// Linear 确定性线性爬坡：第 i 个权重为 (i+1)/n
type Linear struct{}

func (l *Linear) Name() string { return "linear" }

func (l *Linear) Variates(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i+1) / float64(n)
	}
	return out
}

// Synthesizer 将分钟线展开为亚分钟级合成 tick 路径
type Synthesizer struct {
	dist    Distribution
	samples int
}

// NewSynthesizer 创建合成器，samples 为每根分钟线的 tick 数。
// 首尾锚定要求每根分钟线至少两个采样点，过小的 samples 会被钳到 2。
func NewSynthesizer(dist Distribution, samples int) *Synthesizer {
	if samples < 2 {
		samples = 2
	}
	return &Synthesizer{dist: dist, samples: samples}
}

// Expand 展开单根分钟线，返回对齐后的价格数组与成交量数组。
// 锚定不变式：首 tick 等于 open，末 tick 等于 close，最大值为 high，最小值为 low；
// 成交量按权重占比分配，权重和为零时退化为均匀分配。
func (s *Synthesizer) Expand(bar domain.Bar) ([]float64, []float64) {
	n := s.samples
	variates := s.dist.Variates(n)

	delta := bar.High - bar.Low
	prices := make([]float64, n)
	for i, v := range variates {
		if v < 0 {
			v = 0
		}
		prices[i] = bar.Low + v*delta
	}

	// 对齐：先钉住首尾，再覆盖极值位置
	prices[0] = bar.Open
	prices[n-1] = bar.Close
	prices[argmax(prices)] = bar.High
	prices[argmin(prices)] = bar.Low

	var sum float64
	for _, v := range variates {
		if v > 0 {
			sum += v
		}
	}

	vols := make([]float64, n)
	if sum == 0 {
		uniform := bar.Volume / float64(n)
		for i := range vols {
			vols[i] = uniform
		}
		return prices, vols
	}
	for i, v := range variates {
		if v < 0 {
			v = 0
		}
		vols[i] = bar.Volume * v / sum
	}
	return prices, vols
}

// Path 串联整个执行区间内所有分钟线的合成路径
func (s *Synthesizer) Path(bars []domain.Bar) ([]float64, []float64) {
	prices := make([]float64, 0, len(bars)*s.samples)
	vols := make([]float64, 0, len(bars)*s.samples)
	for _, bar := range bars {
		p, v := s.Expand(bar)
		prices = append(prices, p...)
		vols = append(vols, v...)
	}
	return prices, vols
}

func argmax(xs []float64) int {
	idx := 0
	for i, x := range xs {
		if x > xs[idx] {
			idx = i
		}
	}
	return idx
}

func argmin(xs []float64) int {
	idx := 0
	for i, x := range xs {
		if x < xs[idx] {
			idx = i
		}
	}
	return idx
}
