package staking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dapplets/dapplet-registry/internal/shared/types"
)

// Status is the lifecycle state of a reservation
type Status int

const (
	StatusNoStake Status = iota
	StatusWaitingForRegularDapplet
	StatusReadyToBurn
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusNoStake:
		return "NO_STAKE"
	case StatusWaitingForRegularDapplet:
		return "WAITING_FOR_REGULAR_DAPPLET"
	case StatusReadyToBurn:
		return "READY_TO_BURN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText emits the status name
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name
func (s *Status) UnmarshalText(text []byte) error {
	for _, candidate := range []Status{StatusNoStake, StatusWaitingForRegularDapplet, StatusReadyToBurn} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown stake status %q", string(text))
}

// Stake is the bond posted for one reserved module name.
type Stake struct {
	Staker   types.Account `json:"staker"`
	Token    string        `json:"token"`
	Amount   uint64        `json:"amount"`
	Duration time.Duration `json:"duration"`
	EndsAt   time.Time     `json:"endsAt"`
}

// StatusAt derives the status. A missing record or a module that is no
// longer a placeholder is NO_STAKE; otherwise expiry decides.
func StatusAt(s *Stake, placeholder bool, now time.Time) Status {
	if s == nil || !placeholder {
		return StatusNoStake
	}
	if now.Before(s.EndsAt) {
		return StatusWaitingForRegularDapplet
	}
	return StatusReadyToBurn
}

type stakeJSON struct {
	Staker   types.Account `json:"staker"`
	Token    string        `json:"token"`
	Amount   uint64        `json:"amount"`
	Duration int64         `json:"duration"`
	EndsAt   int64         `json:"endsAt"`
}

// MarshalJSON writes the duration in seconds and endsAt as a unix timestamp
func (s Stake) MarshalJSON() ([]byte, error) {
	var endsAt int64
	if !s.EndsAt.IsZero() {
		endsAt = s.EndsAt.Unix()
	}
	return json.Marshal(stakeJSON{
		Staker:   s.Staker,
		Token:    s.Token,
		Amount:   s.Amount,
		Duration: int64(s.Duration / time.Second),
		EndsAt:   endsAt,
	})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (s *Stake) UnmarshalJSON(data []byte) error {
	var raw stakeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Stake{
		Staker:   raw.Staker,
		Token:    raw.Token,
		Amount:   raw.Amount,
		Duration: time.Duration(raw.Duration) * time.Second,
	}
	if raw.EndsAt != 0 {
		s.EndsAt = time.Unix(raw.EndsAt, 0).UTC()
	}
	return nil
}
