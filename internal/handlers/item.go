package handlers

import (
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/services"
)

var validate = validator.New()

// ItemHandler manages stock items and their history ledger. Item rows are
// only ever written through these operations; every successful mutation
// appends exactly one history record.
type ItemHandler struct {
	db       *gorm.DB
	telegram *services.TelegramService
}

// NewItemHandler constructs ItemHandler.
func NewItemHandler(db *gorm.DB, telegram *services.TelegramService) *ItemHandler {
	return &ItemHandler{db: db, telegram: telegram}
}

type addItemRequest struct {
	ProductName        string  `json:"productName" validate:"required"`
	ProductPrice       float64 `json:"productPrice" validate:"gte=0"`
	ProductSellPrice   float64 `json:"productSellPrice" validate:"gte=0"`
	Quantity           int     `json:"quantity" validate:"gte=0"`
	ProductDescription string  `json:"productDescription"`
}

// AddItem creates a stock item and its investment entry.
func (h *ItemHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(&req); err != nil {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, err.Error())
	}

	var existing models.Item
	err := h.db.Where("user_id = ? AND LOWER(product_name) = LOWER(?)", userID, req.ProductName).
		First(&existing).Error
	if err == nil {
		return newAPIError(fiber.StatusConflict, KindConflict, "product name already exists for this user")
	} else if err != gorm.ErrRecordNotFound {
		return err
	}

	item := models.Item{
		UserID:             userID,
		ProductName:        req.ProductName,
		ProductPrice:       req.ProductPrice,
		ProductSellPrice:   req.ProductSellPrice,
		Quantity:           req.Quantity,
		ProductDescription: req.ProductDescription,
	}

	if err := h.db.Create(&item).Error; err != nil {
		return err
	}

	investment := models.InvestmentEntry{
		UserID: userID,
		Amount: req.ProductPrice * float64(req.Quantity),
	}
	if err := h.db.Create(&investment).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "product added successfully",
		"data":    item,
	})
}

// Search finds an item by exact product name, case-insensitive.
func (h *ItemHandler) Search(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "search term required")
	}

	var item models.Item
	err := h.db.Where("user_id = ? AND LOWER(product_name) = LOWER(?)", userID, query).
		First(&item).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusNotFound, KindNotFound, "product not found")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": item})
}

type updateItemRequest struct {
	Quantity           *int     `json:"quantity" validate:"omitempty,gte=0"`
	ProductPrice       *float64 `json:"productPrice" validate:"omitempty,gte=0"`
	ProductSellPrice   *float64 `json:"productSellPrice" validate:"omitempty,gte=0"`
	ProductDescription *string  `json:"productDescription"`
}

// UpdateItem applies a partial update to an item. A quantity in the
// payload is added to the current stock, never replaces it. One update
// history record is appended per call, carrying the resulting prices.
func (h *ItemHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "invalid id")
	}

	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := validate.Struct(&req); err != nil {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, err.Error())
	}

	var item models.Item
	if err := h.db.First(&item, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusNotFound, KindNotFound, "item not found")
		}
		return err
	}

	updates := map[string]interface{}{}
	addedQuantity := 0

	if req.Quantity != nil {
		addedQuantity = *req.Quantity
		item.Quantity += addedQuantity
		updates["quantity"] = item.Quantity
	}
	if req.ProductPrice != nil {
		item.ProductPrice = *req.ProductPrice
		updates["product_price"] = item.ProductPrice
	}
	if req.ProductSellPrice != nil {
		item.ProductSellPrice = *req.ProductSellPrice
		updates["product_sell_price"] = item.ProductSellPrice
	}
	if req.ProductDescription != nil {
		item.ProductDescription = *req.ProductDescription
		updates["product_description"] = item.ProductDescription
	}

	if len(updates) > 0 {
		updates["updated_at"] = time.Now()
		if err := h.db.Model(&models.Item{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(updates).Error; err != nil {
			return err
		}
	}

	record := models.HistoryRecord{
		Kind:            models.HistoryKindUpdate,
		ProductName:     item.ProductName,
		ProductPrice:    item.ProductPrice,
		SellPrice:       item.ProductSellPrice,
		QuantityChanged: addedQuantity,
		UserID:          userID,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "item updated successfully",
		"data":    item,
	})
}

type decreaseRequest struct {
	DecreaseAmount int `json:"decreaseAmount"`
}

// DecreaseQuantity records a sale: stock goes down, one sale history
// record is appended. The UPDATE is conditioned on the persisted quantity
// so two racing sales can never jointly oversell an item.
func (h *ItemHandler) DecreaseQuantity(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "invalid id")
	}

	var req decreaseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.DecreaseAmount <= 0 {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "decrease amount must be greater than 0")
	}

	var item models.Item
	if err := h.db.First(&item, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return newAPIError(fiber.StatusNotFound, KindNotFound, "product not found")
		}
		return err
	}

	if item.Quantity < req.DecreaseAmount {
		return newAPIError(fiber.StatusBadRequest, KindInsufficientStock, "not enough stock to decrease")
	}

	result := h.db.Model(&models.Item{}).
		Where("id = ? AND user_id = ? AND quantity >= ?", id, userID, req.DecreaseAmount).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", req.DecreaseAmount),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// A concurrent sale got there first.
		return newAPIError(fiber.StatusBadRequest, KindInsufficientStock, "not enough stock to decrease")
	}

	if err := h.db.First(&item, "id = ?", id).Error; err != nil {
		return err
	}

	record := models.HistoryRecord{
		Kind:            models.HistoryKindSale,
		ProductName:     item.ProductName,
		ProductPrice:    item.ProductPrice,
		SellPrice:       item.ProductSellPrice,
		QuantityChanged: -req.DecreaseAmount,
		UserID:          userID,
	}
	if err := h.db.Create(&record).Error; err != nil {
		return err
	}

	if item.Quantity == 0 && h.telegram != nil {
		h.notifyOutOfStock(userID, item, req.DecreaseAmount)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "quantity decreased and history recorded",
		"data":    item,
	})
}

// DeleteItem removes an item. History and investment rows survive, so the
// audit trail outlives the product.
func (h *ItemHandler) DeleteItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return newAPIError(fiber.StatusBadRequest, KindInvalidArgument, "invalid id")
	}

	result := h.db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Item{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return newAPIError(fiber.StatusNotFound, KindNotFound, "item not found")
	}

	return c.JSON(fiber.Map{"success": true, "message": "item deleted successfully"})
}

func (h *ItemHandler) notifyOutOfStock(userID uuid.UUID, item models.Item, soldAmount int) {
	var owner models.User
	if err := h.db.First(&owner, "id = ?", userID).Error; err != nil {
		log.Printf("out-of-stock alert: failed to load owner: %v", err)
		return
	}

	alert := services.StockAlert{
		ProductName: item.ProductName,
		SoldAmount:  soldAmount,
		SellPrice:   item.ProductSellPrice,
		OwnerEmail:  owner.Email,
	}

	go func() {
		if err := h.telegram.NotifyOutOfStock(alert); err != nil {
			log.Printf("out-of-stock alert failed: %v", err)
		}
	}()
}
