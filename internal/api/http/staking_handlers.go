package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dapplets/dapplet-registry/internal/domain/staking"
)

// StakeResponse is a module's stake with its derived status
type StakeResponse struct {
	Name   string         `json:"name"`
	Status staking.Status `json:"status"`
	Stake  *staking.Stake `json:"stake,omitempty"`
}

// GetStake returns the reservation state of a module
func (h *Handlers) GetStake(c *gin.Context) {
	name := c.Param("name")
	resp := StakeResponse{Name: name, Status: h.registry.GetStakeStatus(name)}
	if resp.Status != staking.StatusNoStake {
		s := h.registry.GetStake(name)
		resp.Stake = &s
	}
	c.JSON(http.StatusOK, resp)
}

// Burn deletes an expired reservation and pays the bond to the caller
func (h *Handlers) Burn(c *gin.Context) {
	burned, err := h.registry.Burn(caller(c), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stake": burned})
}

// GetStakeParameters returns the staking parameters
func (h *Handlers) GetStakeParameters(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.GetStakeParameters())
}

// SetStakeParameters replaces the staking parameters. Registry admin only.
func (h *Handlers) SetStakeParameters(c *gin.Context) {
	var p staking.Params
	if !bindJSON(c, &p) {
		return
	}
	if err := h.registry.SetStakeParameters(caller(c), p); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "params": h.registry.GetStakeParameters()})
}

// QuoteBond prices a reservation of ?period= seconds
func (h *Handlers) QuoteBond(c *gin.Context) {
	seconds, err := strconv.ParseInt(c.Query("period"), 10, 64)
	if err != nil || seconds <= 0 {
		badRequest(c, fmt.Errorf("period must be a positive number of seconds"))
		return
	}
	period := time.Duration(seconds) * time.Second
	amount, err := h.registry.QuoteBond(period)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"period": seconds,
		"amount": amount,
		"token":  h.registry.GetStakeParameters().Token,
	})
}
