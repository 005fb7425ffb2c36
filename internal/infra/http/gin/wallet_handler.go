package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"kodesha/internal/app/commands"
	"kodesha/internal/app/dto"
	walletapp "kodesha/internal/app/handlers/wallet"
	"kodesha/internal/app/queries"
)

type WalletHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h WalletHandler) Get(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		respondError(c, h.Logger, errors.New("queries bus unavailable"))
		return
	}
	query := walletapp.GetWalletQuery{UserID: user}
	result, err := queries.Ask[walletapp.GetWalletQuery, dto.WalletView](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type walletMovementRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
	Phone  string `json:"phone"`
}

func (h WalletHandler) TopUp(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errors.New("commands bus unavailable"))
		return
	}
	var req walletMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := walletapp.TopUpCommand{
		UserID: user,
		Amount: req.Amount,
		Method: req.Method,
		Phone:  req.Phone,
	}
	result, err := commands.Dispatch[walletapp.TopUpCommand, *walletapp.TopUpResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h WalletHandler) Withdraw(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errors.New("commands bus unavailable"))
		return
	}
	var req walletMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := walletapp.WithdrawCommand{
		UserID: user,
		Amount: req.Amount,
		Method: req.Method,
		Phone:  req.Phone,
	}
	result, err := commands.Dispatch[walletapp.WithdrawCommand, *walletapp.WithdrawResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ WalletHTTP = WalletHandler{}
