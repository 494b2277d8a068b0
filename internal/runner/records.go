package runner

import (
	"github.com/shopspring/decimal"

	"arbitrage/internal/models"
)

func mustFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func opportunityRecordFrom(op *models.Opportunity) *models.OpportunityRecord {
	var venueADepth, venueBDepth *float64
	if op.VenueADepth != nil {
		v := float64(*op.VenueADepth)
		venueADepth = &v
	}
	if op.VenueBDepth != nil {
		v := float64(*op.VenueBDepth)
		venueBDepth = &v
	}

	var tradeable *int64
	if op.VenueADepth != nil && op.VenueBDepth != nil {
		u := *op.VenueADepth
		if *op.VenueBDepth < u {
			u = *op.VenueBDepth
		}
		tradeable = &u
	} else if op.VenueADepth != nil {
		u := *op.VenueADepth
		tradeable = &u
	} else if op.VenueBDepth != nil {
		u := *op.VenueBDepth
		tradeable = &u
	}

	var maxLockedProfit *float64
	if tradeable != nil {
		v := mustFloat64(decimal.NewFromInt(*tradeable).Mul(op.SpreadCents).Div(decimal.NewFromInt(100)))
		maxLockedProfit = &v
	}

	venueAClose := op.Pair.VenueA.ResolutionAt
	venueBClose := op.Pair.VenueB.ResolutionAt

	strategy := "A"
	if op.VenueASide == models.SideNo {
		strategy = "B"
	}

	return &models.OpportunityRecord{
		ScannedAt:          op.DetectedAt,
		VenueATicker:       op.Pair.VenueA.PlatformID,
		VenueBTokenID:      op.Pair.VenueB.TokenFor(op.VenueBSide),
		VenueATitle:        op.Pair.VenueA.RawQuestion,
		VenueBTitle:        op.Pair.VenueB.RawQuestion,
		Strategy:           strategy,
		VenueASide:         string(op.VenueASide),
		VenueBSide:         string(op.VenueBSide),
		VenueACostCents:    mustFloat64(op.VenueACostCents),
		VenueBCostCents:    mustFloat64(op.VenueBCostCents),
		SpreadCents:        mustFloat64(op.SpreadCents),
		Tier:               string(op.Tier),
		VenueADepth:        venueADepth,
		VenueBDepth:        venueBDepth,
		TradeableUnits:     tradeable,
		MaxLockedProfitUSD: maxLockedProfit,
		HoursToClose:       op.HoursToClose,
		VenueACloseTime:    &venueAClose,
		VenueBCloseTime:    &venueBClose,
	}
}

func tradeRecordFrom(op *models.Opportunity, result models.ExecutionResult, opportunityID int64) *models.TradeRecord {
	var opID *int64
	if opportunityID >= 0 {
		opID = &opportunityID
	}

	var venueAFilled, venueBFilled *int64
	if result.Status != models.StatusSkipped && result.Status != models.StatusError {
		units := result.Units
		venueAFilled = &units
		if result.Status == models.StatusFilled {
			venueBFilled = &units
		}
	}

	var feeUSD, netProfitUSD *float64
	if result.Status == models.StatusFilled {
		f := mustFloat64(result.VenueAFeeUSD)
		n := mustFloat64(result.NetProfitUSD)
		feeUSD = &f
		netProfitUSD = &n
	}

	return &models.TradeRecord{
		OpportunityID:       opID,
		TradedAt:            op.DetectedAt,
		VenueATicker:        op.Pair.VenueA.PlatformID,
		VenueBTokenID:       op.Pair.VenueB.TokenFor(op.VenueBSide),
		VenueASide:          string(op.VenueASide),
		VenueBSide:          string(op.VenueBSide),
		RequestedUnits:      result.Units,
		VenueAFilled:        venueAFilled,
		VenueBFilled:        venueBFilled,
		VenueAPriceCents:    mustFloat64(op.VenueACostCents),
		VenueBPriceCents:    mustFloat64(op.VenueBCostCents),
		VenueACostUSD:       mustFloat64(result.VenueACostUSD),
		VenueBCostUSD:       mustFloat64(result.VenueBCostUSD),
		TotalCostUSD:        mustFloat64(result.TotalCostUSD),
		LockedProfitUSD:     mustFloat64(result.GrossProfitUSD),
		VenueAFeeUSD:        feeUSD,
		NetProfitUSD:        netProfitUSD,
		VenueAOrderID:       result.VenueAOrderID,
		VenueBOrderID:       result.VenueBOrderID,
		Status:              string(result.Status),
		Reason:              string(result.Reason),
		VenueABalanceBefore: mustFloat64(result.VenueABalanceBefore),
		VenueBBalanceBefore: mustFloat64(result.VenueBBalanceBefore),
	}
}
