package staking

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// Defaults for a freshly started registry. Staking starts disabled.
const (
	DefaultPeriod      = 30 * 24 * time.Hour
	DefaultMinDuration = 30 * 24 * time.Hour
	DefaultBasePrice   = uint64(1_000_000_000_000_000_000)
	DefaultBurnShare   = uint8(100)
)

// Params configures the reservation bond.
type Params struct {
	// Token is the staking token; empty disables staking
	Token string `json:"token"`
	// Period is the duration that BasePrice pays for
	Period      time.Duration `json:"period"`
	MinDuration time.Duration `json:"minDuration"`
	BasePrice   uint64        `json:"basePrice"`
	// BurnShare is the percent of a burned bond paid to the burner
	BurnShare uint8 `json:"burnShare"`
}

// DefaultParams returns the default parameters with staking disabled.
func DefaultParams() Params {
	return Params{
		Period:      DefaultPeriod,
		MinDuration: DefaultMinDuration,
		BasePrice:   DefaultBasePrice,
		BurnShare:   DefaultBurnShare,
	}
}

// Enabled reports whether a staking token is configured
func (p Params) Enabled() bool {
	return p.Token != ""
}

// Validate checks the parameters are usable
func (p Params) Validate() error {
	if p.Period <= 0 {
		return fmt.Errorf("%w: period must be positive", ErrInvalidParameters)
	}
	if p.MinDuration < 0 {
		return fmt.Errorf("%w: min duration must not be negative", ErrInvalidParameters)
	}
	if p.BurnShare > 100 {
		return fmt.Errorf("%w: burn share %d exceeds 100", ErrInvalidParameters, p.BurnShare)
	}
	return nil
}

// Bond computes basePrice * reservation / period.
func (p Params) Bond(reservation time.Duration) (uint64, error) {
	if p.Period <= 0 {
		return 0, fmt.Errorf("%w: period must be positive", ErrInvalidParameters)
	}
	amount := new(big.Int).SetUint64(p.BasePrice)
	amount.Mul(amount, big.NewInt(int64(reservation)))
	amount.Quo(amount, big.NewInt(int64(p.Period)))
	if !amount.IsUint64() {
		return 0, fmt.Errorf("%w: bond overflows", ErrInvalidParameters)
	}
	return amount.Uint64(), nil
}

// split divides a burned bond between the burner and the treasury
func (p Params) split(amount uint64) (burner, treasury uint64) {
	share := new(big.Int).SetUint64(amount)
	share.Mul(share, big.NewInt(int64(p.BurnShare)))
	share.Quo(share, big.NewInt(100))
	burner = share.Uint64()
	return burner, amount - burner
}

type paramsJSON struct {
	Token       string `json:"token"`
	Period      int64  `json:"period"`
	MinDuration int64  `json:"minDuration"`
	BasePrice   uint64 `json:"basePrice"`
	BurnShare   uint8  `json:"burnShare"`
	Enabled     bool   `json:"enabled"`
}

// MarshalJSON writes durations as whole seconds
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		Token:       p.Token,
		Period:      int64(p.Period / time.Second),
		MinDuration: int64(p.MinDuration / time.Second),
		BasePrice:   p.BasePrice,
		BurnShare:   p.BurnShare,
		Enabled:     p.Enabled(),
	})
}

// UnmarshalJSON reads durations as whole seconds
func (p *Params) UnmarshalJSON(data []byte) error {
	var raw paramsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Params{
		Token:       raw.Token,
		Period:      time.Duration(raw.Period) * time.Second,
		MinDuration: time.Duration(raw.MinDuration) * time.Second,
		BasePrice:   raw.BasePrice,
		BurnShare:   raw.BurnShare,
	}
	return nil
}
