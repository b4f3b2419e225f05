// Package api exposes the raffle over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"pooled-raffle/internal/bank"
	"pooled-raffle/internal/events"
	"pooled-raffle/internal/models"
	"pooled-raffle/internal/raffle"
	"pooled-raffle/internal/service"
	"pooled-raffle/internal/vrf"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
)

// History lists completed rounds.
type History interface {
	Winners(ctx context.Context, limit int) ([]models.Winner, error)
}

type Options struct {
	Service    *service.Service
	Hub        *events.Hub
	History    History      // optional
	Metrics    http.Handler // optional
	AdminToken string       // empty disables operator endpoints
}

type APIHandler struct {
	svc     *service.Service
	hub     *events.Hub
	history History
	token   string
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(opts Options) *gin.Engine {
	h := &APIHandler{svc: opts.Service, hub: opts.Hub, history: opts.History, token: opts.AdminToken}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := router.Group("/api")
	{
		api.GET("/state", h.GetState)
		api.GET("/players/:index", h.GetPlayer)
		api.POST("/enter", h.Enter)
		api.GET("/upkeep", h.CheckUpkeep)
		api.POST("/upkeep", h.AdminOnly(h.PerformUpkeep))
		api.POST("/vrf/fulfill", h.AdminOnly(h.Fulfill))
		api.POST("/faucet", h.AdminOnly(h.Faucet))
		api.GET("/accounts/:address", h.GetAccount)
		api.POST("/accounts/:address/rejecting", h.AdminOnly(h.SetRejecting))
		api.GET("/winners", h.GetWinners)
	}
	router.GET("/events", h.StreamEvents)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}
	return router
}

func (h *APIHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.State())
}

func (h *APIHandler) GetPlayer(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
		return
	}
	p, err := h.svc.Raffle().Participant(idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"index": idx, "player": p.Hex()})
}

type enterRequest struct {
	Player string `json:"player" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *APIHandler) Enter(c *gin.Context) {
	var req enterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	player, ok := parseAddress(req.Player)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player address"})
		return
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
		return
	}
	if err := h.svc.Enter(c.Request.Context(), player, amount); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"round": h.svc.Raffle().Round(), "participants": h.svc.Raffle().NumParticipants()})
}

func (h *APIHandler) CheckUpkeep(c *gin.Context) {
	now := h.svc.Now()
	c.JSON(http.StatusOK, gin.H{"upkeepNeeded": h.svc.CheckUpkeep(now), "now": now})
}

func (h *APIHandler) PerformUpkeep(c *gin.Context) {
	id, err := h.svc.PerformUpkeep(c.Request.Context(), h.svc.Now())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": uint64(id)})
}

type fulfillRequest struct {
	RequestID   *uint64  `json:"requestId" binding:"required"`
	RandomWords []string `json:"randomWords"`
}

func (h *APIHandler) Fulfill(c *gin.Context) {
	var req fulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if req.RandomWords != nil && len(req.RandomWords) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "randomWords must not be empty"})
		return
	}
	var words []*uint256.Int
	for _, w := range req.RandomWords {
		v, err := uint256.FromDecimal(w)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid random word"})
			return
		}
		words = append(words, v)
	}
	if err := h.svc.Fulfill(c.Request.Context(), raffle.RequestID(*req.RequestID), words); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	st := h.svc.State()
	c.JSON(http.StatusOK, gin.H{"recentWinner": st.RecentWinner, "round": st.Round})
}

type faucetRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

func (h *APIHandler) Faucet(c *gin.Context) {
	var req faucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	addr, ok := parseAddress(req.Address)
	amount, err := uint256.FromDecimal(req.Amount)
	if !ok || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address or amount"})
		return
	}
	if err := h.svc.Bank().Mint(c.Request.Context(), addr, amount); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.writeBalance(c, addr)
}

func (h *APIHandler) GetAccount(c *gin.Context) {
	addr, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	h.writeBalance(c, addr)
}

func (h *APIHandler) SetRejecting(c *gin.Context) {
	addr, ok := parseAddress(c.Param("address"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address"})
		return
	}
	var req struct {
		Reject bool `json:"reject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.svc.Bank().SetRejecting(c.Request.Context(), addr, req.Reject); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "reject": req.Reject})
}

func (h *APIHandler) writeBalance(c *gin.Context, addr common.Address) {
	bal, err := h.svc.Bank().Balance(c.Request.Context(), addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "balance": bal.Dec()})
}

func (h *APIHandler) GetWinners(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusOK, []models.Winner{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	winners, err := h.history.Winners(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, winners)
}

func (h *APIHandler) AdminOnly(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "operator endpoints disabled"})
			return
		}
		parts := strings.Fields(c.GetHeader("Authorization"))
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] != h.token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		next(c)
	}
}

func (h *APIHandler) StreamEvents(c *gin.Context) {
	sub := h.hub.Subscribe(0)
	defer h.hub.Unsubscribe(sub)

	c.SSEvent("state", h.svc.State())
	c.Writer.Flush()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			c.SSEvent(ev.EventName(), eventPayload(ev))
			return true
		}
	})
}

func eventPayload(ev raffle.Event) gin.H {
	switch e := ev.(type) {
	case raffle.Entered:
		return gin.H{"round": e.Round, "player": e.Player.Hex(), "amount": e.Amount.Dec(), "time": e.Time}
	case raffle.DrawRequested:
		return gin.H{"round": e.Round, "requestId": uint64(e.RequestID), "time": e.Time}
	case raffle.WinnerPicked:
		return gin.H{
			"round":       e.Round,
			"requestId":   uint64(e.RequestID),
			"winner":      e.Winner.Hex(),
			"index":       e.Index,
			"amount":      e.Amount.Dec(),
			"randomValue": e.RandomValue.Dec(),
			"time":        e.Time,
		}
	default:
		return gin.H{}
	}
}

func parseAddress(s string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, raffle.ErrInsufficientFee):
		return http.StatusUnprocessableEntity
	case errors.Is(err, raffle.ErrNotOpen), errors.Is(err, raffle.ErrUpkeepNotNeeded):
		return http.StatusConflict
	case errors.Is(err, raffle.ErrUnknownRequest), errors.Is(err, vrf.ErrNonexistentRequest):
		return http.StatusNotFound
	case errors.Is(err, raffle.ErrTransferFailed):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, bank.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
