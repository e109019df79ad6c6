package handler

import (
	"net/http"
	"strconv"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type orderCreateRequest struct {
	OrderItems      []usecase.PlaceOrderItemInput `json:"orderItems"`
	ShippingAddress usecase.ShippingInput         `json:"shippingAddress"`
	PaymentMethod   string                        `json:"paymentMethod"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	//gatewayからの戻りは認証なし（ブラウザリダイレクト経由）
	e.GET("/orders/gateway/success", h.gatewaySuccess)
	e.GET("/orders/gateway/failure", h.gatewayFailure)

	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("", h.create)
	g.GET("/myorders", h.listMine)
	g.GET("/:id", h.detail)
	g.PUT("/:id/cancel", h.cancel)
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req orderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	idemKey := c.Request().Header.Get("X-Idempotency-Key")

	out, err := h.uc.PlaceOrder(c.Request().Context(), userID, usecase.PlaceOrderInput{
		Items:          req.OrderItems,
		Shipping:       req.ShippingAddress,
		PaymentMethod:  req.PaymentMethod,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page := 1
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = p
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = l
	}

	items, total, err := h.uc.ListMyOrders(c.Request().Context(), userID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
	})
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	isAdmin := false
	if role, ok := c.Get(middleware.CtxUserRoleKey).(string); ok && role == "ADMIN" {
		isAdmin = true
	}

	out, err := h.uc.GetOrderDetail(c.Request().Context(), userID, isAdmin, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.uc.Cancel(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "order cancelled"})
}

// gatewaySuccess は決済成功の戻り。
// 失敗しても構造化エラーは返さず、必ずどこかへ302する。
func (h *OrderHandler) gatewaySuccess(c echo.Context) error {
	orderID, _ := strconv.ParseInt(c.QueryParam("oid"), 10, 64)

	//amtは"1000"や"1000.0"のどちらでも来る
	var amount int64
	if f, err := strconv.ParseFloat(c.QueryParam("amt"), 64); err == nil {
		amount = int64(f)
	}

	refID := c.QueryParam("refId")

	url := h.uc.HandleGatewaySuccess(c.Request().Context(), orderID, amount, refID)
	return c.Redirect(http.StatusFound, url)
}

// gatewayFailure は決済失敗・キャンセルの戻り。
func (h *OrderHandler) gatewayFailure(c echo.Context) error {
	orderID, _ := strconv.ParseInt(c.QueryParam("pid"), 10, 64)

	url := h.uc.HandleGatewayFailure(c.Request().Context(), orderID)
	return c.Redirect(http.StatusFound, url)
}
