package arb

import (
	"time"

	"github.com/pbelltech0/solana-streamer/internal/numerics"
	"github.com/pbelltech0/solana-streamer/internal/poolstate"
	"github.com/pbelltech0/solana-streamer/internal/profit"
)

// candidate is one pool's quote, oriented to the search's normalized
// pair so every leg computation can treat "base"/"quote" uniformly
// regardless of how the underlying protocol ordered its own tokens.
type candidate struct {
	id             poolstate.PoolId
	variant        poolstate.Variant
	model          numerics.Model
	inverted       bool // true when the pool's native TokenA is the pair's Quote
	price          float64
	liquidityProxy float64
	feeBps         uint16
	observedUnix   int64
}

func buildCandidates(pair poolstate.TokenPair, states []*poolstate.PoolState) []candidate {
	out := make([]candidate, 0, len(states))
	for _, s := range states {
		model, err := s.ToModel()
		if err != nil {
			continue
		}
		rawPrice, err := model.Price()
		if err != nil {
			continue
		}
		inverted := s.TokenA != pair.Base
		price := rawPrice
		if inverted {
			if rawPrice == 0 {
				continue
			}
			price = 1 / rawPrice
		}
		out = append(out, candidate{
			id:             s.PoolId,
			variant:        s.ProtocolVariant,
			model:          model,
			inverted:       inverted,
			price:          price,
			liquidityProxy: model.LiquidityProxy(),
			feeBps:         s.TotalFeeBps,
			observedUnix:   s.LastUpdatedUnix,
		})
	}
	return out
}

// pairDirection maps a direction expressed in the normalized pair's own
// base/quote frame into the direction the pool's own model expects.
func pairDirection(d numerics.Direction, inverted bool) numerics.Direction {
	if !inverted {
		return d
	}
	if d == numerics.BaseToQuote {
		return numerics.QuoteToBase
	}
	return numerics.BaseToQuote
}

// applyLiquidityGate keeps pools meeting the per-pool floor and
// requires at least 2 survivors whose combined liquidity_proxy also
// clears the combined floor, per §4.3 step 2.
func applyLiquidityGate(candidates []candidate, cfg Config) []candidate {
	survivors := make([]candidate, 0, len(candidates))
	var combined float64
	for _, c := range candidates {
		if c.liquidityProxy >= cfg.MinPerPoolLiq {
			survivors = append(survivors, c)
			combined += c.liquidityProxy
		}
	}
	if len(survivors) < 2 || combined < cfg.MinCombinedLiq {
		return nil
	}
	return survivors
}

// Search runs the full §4.3 algorithm for one pair against the pool
// states pools_for_pair would return, yielding at most one candidate
// Opportunity per ordered (buy, sell) pool pair that clears the
// acceptance gates.
func Search(pair poolstate.TokenPair, states []*poolstate.PoolState, cfg Config, pcfg ProfitConfig, now time.Time) []Opportunity {
	if len(states) < 2 {
		return nil
	}
	candidates := buildCandidates(pair, states)
	survivors := applyLiquidityGate(candidates, cfg)
	if survivors == nil {
		return nil
	}

	var out []Opportunity
	for i, buy := range survivors {
		for j, sell := range survivors {
			if i == j {
				continue
			}
			if !cfg.AllowSameVariant && buy.variant == sell.variant {
				continue
			}
			if sell.price <= buy.price {
				continue
			}
			opp, ok := bestTradeSize(pair, buy, sell, cfg, pcfg, now)
			if !ok {
				continue
			}
			if !acceptanceGatesPass(opp, pcfg) {
				continue
			}
			out = append(out, opp)
		}
	}
	return out
}

// bestTradeSize grid-searches trade size per §4.3 step 3.2, keeping
// the size with maximum EV (tie-break: higher net profit, then
// smaller trade size).
func bestTradeSize(pair poolstate.TokenPair, buy, sell candidate, cfg Config, pcfg ProfitConfig, now time.Time) (Opportunity, bool) {
	steps := cfg.GridSteps
	if steps <= 0 {
		steps = 20
	}
	maxSize := cfg.MaxLoan
	if maxSize <= 0 || maxSize > buy.liquidityProxy/2 {
		maxSize = buy.liquidityProxy / 2
	}
	if maxSize <= 0 {
		return Opportunity{}, false
	}
	minSize := maxSize * 0.01

	var best Opportunity
	haveBest := false

	for k := 0; k <= steps; k++ {
		size := minSize + float64(k)*(maxSize-minSize)/float64(steps)
		opp, ok := evaluateSize(pair, buy, sell, size, pcfg, now)
		if !ok {
			continue
		}
		if !haveBest {
			best, haveBest = opp, true
			continue
		}
		if opp.EVScore > best.EVScore {
			best = opp
		} else if opp.EVScore == best.EVScore {
			if opp.NetProfit > best.NetProfit {
				best = opp
			} else if opp.NetProfit == best.NetProfit && opp.TradeSizeInQuote < best.TradeSizeInQuote {
				best = opp
			}
		}
	}
	return best, haveBest
}

func feeBpsFor(c candidate, override *uint16) uint16 {
	if override != nil {
		return *override
	}
	return c.feeBps
}

// evaluateSize computes one grid point's full Opportunity per the
// §4.3 arbitrage flow: leg1 spends L quote at buy_pool for B base,
// leg2 sells B base at sell_pool for Q' quote, gross = Q' - L.
func evaluateSize(pair poolstate.TokenPair, buy, sell candidate, tradeSize float64, pcfg ProfitConfig, now time.Time) (Opportunity, bool) {
	dir1 := pairDirection(numerics.QuoteToBase, buy.inverted)
	baseOut, _, err := buy.model.QuoteOutput(tradeSize, dir1)
	if err != nil || baseOut <= 0 {
		return Opportunity{}, false
	}

	dir2 := pairDirection(numerics.BaseToQuote, sell.inverted)
	quoteOut, _, err := sell.model.QuoteOutput(baseOut, dir2)
	if err != nil || quoteOut <= 0 {
		return Opportunity{}, false
	}

	gross := quoteOut - tradeSize

	feeBps1 := feeBpsFor(buy, pcfg.SwapFeeOverride)
	feeBps2 := feeBpsFor(sell, pcfg.SwapFeeOverride)
	fees := profit.FeeBreakdown{
		SwapFeeLeg1:  int64(tradeSize * float64(feeBps1) / 10_000),
		SwapFeeLeg2:  int64(baseOut * float64(feeBps2) / 10_000),
		FlashLoanFee: int64(tradeSize * pcfg.FlashRate),
		GasLamports:  pcfg.GasLamports,
		TipLamports:  pcfg.TipLamports,
	}

	grossInt := int64(gross)
	netProfit := profit.NetProfit(grossInt, fees)
	netProfitPct := profit.NetProfitPct(netProfit, int64(tradeSize))

	probLeg1 := buy.model.ExecutionProbability(tradeSize, dir1)
	probLeg2 := sell.model.ExecutionProbability(baseOut, dir2)
	probCombined := profit.CombinedProbability(probLeg1, probLeg2)

	ev := profit.ExpectedValue(netProfit, probCombined)
	evScore := profit.EVScore(ev)
	bucket := profit.Classify(probCombined, netProfitPct)

	return Opportunity{
		BuyPool:              buy.id,
		BuyVariant:           buy.variant,
		SellPool:             sell.id,
		SellVariant:          sell.variant,
		Pair:                 pair,
		BuyPrice:             buy.price,
		SellPrice:            sell.price,
		TradeSizeInQuote:     tradeSize,
		ExpectedIntermediate: baseOut,
		ExpectedFinal:        quoteOut,
		Fees:                 fees,
		FeesTotal:            fees.Total(),
		NetProfit:            netProfit,
		NetProfitPct:         netProfitPct,
		ProbLeg1:             probLeg1,
		ProbLeg2:             probLeg2,
		ProbCombined:         probCombined,
		ExpectedValue:        ev,
		EVScore:              evScore,
		ConfidenceBucket:     bucket,
		ObservedUnix:         now.Unix(),
	}, true
}

// acceptanceGatesPass implements §4.3 step 4.
func acceptanceGatesPass(o Opportunity, pcfg ProfitConfig) bool {
	return o.NetProfitPct >= pcfg.MinNetProfitPct &&
		o.ProbCombined >= pcfg.MinProb &&
		o.EVScore >= pcfg.MinEV &&
		o.NetProfit > 0
}
