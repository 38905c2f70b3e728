package broker

import (
	"context"
	"math"
	"sync"
	"time"

	kiteconnect "github.com/zerodha/gokiteconnect/v4"

	apperrors "kite-levels-trader/internal/errors"
	"kite-levels-trader/internal/models"
)

// ZerodhaClient wraps the Kite Connect REST client for historical data
// and instrument resolution. The access token is expected to be
// pre-generated for the day; the client does not run the login flow.
type ZerodhaClient struct {
	client *kiteconnect.Client

	mu          sync.RWMutex
	instruments []models.Instrument
	bySymbol    map[string]models.Instrument // "EXCHANGE:SYMBOL"
}

// NewZerodhaClient creates a client from API key and access token.
func NewZerodhaClient(apiKey, accessToken string) *ZerodhaClient {
	client := kiteconnect.New(apiKey)
	client.SetAccessToken(accessToken)
	return &ZerodhaClient{
		client:   client,
		bySymbol: make(map[string]models.Instrument),
	}
}

// GetHistorical fetches completed candles for an instrument token.
// Broker failures and empty responses surface as DataError wrapping
// ErrDataUnavailable so callers can degrade instead of aborting.
func (z *ZerodhaClient) GetHistorical(ctx context.Context, req HistoricalRequest) ([]models.Candle, error) {
	data, err := z.client.GetHistoricalData(int(req.Token), req.Interval, req.From, req.To, false, false)
	if err != nil {
		return nil, apperrors.NewDataError("historical", req.Interval, err.Error(), apperrors.ErrDataUnavailable)
	}
	return convertHistorical(data, req)
}

// convertHistorical maps broker candles to the domain type. An empty
// response is a data failure, not a success: levels cannot be computed
// from nothing, and the caller's retry path must see it.
func convertHistorical(data []kiteconnect.HistoricalData, req HistoricalRequest) ([]models.Candle, error) {
	if len(data) == 0 {
		return nil, apperrors.NewDataError("historical", req.Interval, "no candles returned", apperrors.ErrDataUnavailable)
	}

	candles := make([]models.Candle, len(data))
	for i, d := range data {
		candles[i] = models.Candle{
			Timestamp: d.Date.Time,
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    int64(d.Volume),
		}
	}
	return candles, nil
}

// LoadInstruments downloads the full instrument master and caches it.
// Called once at startup before any Resolve calls.
func (z *ZerodhaClient) LoadInstruments(ctx context.Context) error {
	raw, err := z.client.GetInstruments()
	if err != nil {
		return apperrors.NewBrokerError("instruments", "download failed", err)
	}

	instruments := make([]models.Instrument, 0, len(raw))
	bySymbol := make(map[string]models.Instrument, len(raw))
	for _, inst := range raw {
		m := models.Instrument{
			Token:    uint32(inst.InstrumentToken),
			Symbol:   inst.Tradingsymbol,
			Name:     inst.Name,
			Exchange: models.Exchange(inst.Exchange),
			Segment:  inst.Segment,
			LotSize:  int(inst.LotSize),
			TickSize: inst.TickSize,
			Strike:   inst.StrikePrice,
			Expiry:   inst.Expiry.Time,
		}
		switch inst.InstrumentType {
		case "CE":
			m.Kind = models.KindOption
			m.OptionType = models.OptionCE
		case "PE":
			m.Kind = models.KindOption
			m.OptionType = models.OptionPE
		default:
			m.Kind = models.KindUnderlying
		}
		instruments = append(instruments, m)
		bySymbol[string(m.Exchange)+":"+m.Symbol] = m
	}

	z.mu.Lock()
	z.instruments = instruments
	z.bySymbol = bySymbol
	z.mu.Unlock()
	return nil
}

// Resolve looks up an instrument by trading symbol and exchange.
func (z *ZerodhaClient) Resolve(ctx context.Context, symbol string, exchange models.Exchange) (models.Instrument, error) {
	z.mu.RLock()
	inst, ok := z.bySymbol[string(exchange)+":"+symbol]
	z.mu.RUnlock()
	if !ok {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrSymbolNotFound, "%s:%s", exchange, symbol)
	}
	return inst, nil
}

// ResolveOption picks the at-the-money contract of the requested type
// from the cached instrument master: the strike nearest to spot within
// the preferred expiry series.
func (z *ZerodhaClient) ResolveOption(ctx context.Context, req OptionRequest) (models.Instrument, error) {
	z.mu.RLock()
	instruments := z.instruments
	z.mu.RUnlock()

	expiry, ok := selectExpiry(instruments, req)
	if !ok {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrContractNotFound, "no %s expiry for %s", req.Expiry, req.Underlying)
	}

	var best models.Instrument
	bestDist := math.MaxFloat64
	for _, inst := range instruments {
		if !matchesOption(inst, req) || !sameDay(inst.Expiry, expiry) {
			continue
		}
		if dist := math.Abs(inst.Strike - req.SpotPrice); dist < bestDist {
			bestDist = dist
			best = inst
		}
	}
	if bestDist == math.MaxFloat64 {
		return models.Instrument{}, apperrors.Wrapf(apperrors.ErrContractNotFound, "no %s strike near %.2f for %s", req.OptionType, req.SpotPrice, req.Underlying)
	}
	return best, nil
}

// selectExpiry returns the contract expiry for the preference: weekly
// is the nearest unexpired date, monthly the last expiry of the
// nearest month that still has one.
func selectExpiry(instruments []models.Instrument, req OptionRequest) (time.Time, bool) {
	today := req.Now.Truncate(24 * time.Hour)

	var dates []time.Time
	seen := make(map[string]bool)
	for _, inst := range instruments {
		if !matchesOption(inst, req) || inst.Expiry.Before(today) {
			continue
		}
		key := inst.Expiry.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			dates = append(dates, inst.Expiry)
		}
	}
	if len(dates) == 0 {
		return time.Time{}, false
	}

	nearest := dates[0]
	for _, d := range dates[1:] {
		if d.Before(nearest) {
			nearest = d
		}
	}
	if req.Expiry != ExpiryMonthly {
		return nearest, true
	}

	// Monthly: last expiry within the nearest expiry's month.
	last := nearest
	for _, d := range dates {
		if d.Year() == nearest.Year() && d.Month() == nearest.Month() && d.After(last) {
			last = d
		}
	}
	return last, true
}

func matchesOption(inst models.Instrument, req OptionRequest) bool {
	return inst.Kind == models.KindOption &&
		inst.OptionType == req.OptionType &&
		inst.Name == req.Underlying
}

func sameDay(t1, t2 time.Time) bool {
	return t1.Year() == t2.Year() && t1.YearDay() == t2.YearDay()
}

var (
	_ HistoricalProvider = (*ZerodhaClient)(nil)
	_ InstrumentResolver = (*ZerodhaClient)(nil)
)
