package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/stockroom/internal/middleware"
	"github.com/example/stockroom/internal/models"
	"github.com/example/stockroom/internal/utils"
)

// DashboardHandler serves the history listing and the derived metrics.
// Both are read-only views recomputed from the ledger on every call.
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

type historyEntry struct {
	models.HistoryRecord
	Date string `json:"date"`
	Time string `json:"time"`
}

// History returns the merged update+sale ledger, newest first, each entry
// annotated with its calendar date and wall-clock time.
func (h *DashboardHandler) History(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)

	var total int64
	if err := h.db.Model(&models.HistoryRecord{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return err
	}

	var records []models.HistoryRecord
	if err := h.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&records).Error; err != nil {
		return err
	}

	entries := make([]historyEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, historyEntry{
			HistoryRecord: record,
			Date:          record.CreatedAt.Format("2006-01-02"),
			Time:          record.CreatedAt.Format("15:04:05"),
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    entries,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// Investment computes the dashboard figures from the investment entries
// and the history ledger. Profit is recognized at sale time using the
// cost price frozen on each sale record, so later price edits never move
// historical profit.
func (h *DashboardHandler) Investment(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var dashboardInvestment float64
	if err := h.db.Model(&models.InvestmentEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&dashboardInvestment).Error; err != nil {
		return err
	}

	uploadsInvestment, err := h.sumHistory(userID, models.HistoryKindUpdate,
		"product_price * quantity_changed", nil, nil)
	if err != nil {
		return err
	}

	totalSales, err := h.sumHistory(userID, models.HistoryKindSale,
		"sell_price * ABS(quantity_changed)", nil, nil)
	if err != nil {
		return err
	}

	totalCost, err := h.sumHistory(userID, models.HistoryKindSale,
		"product_price * ABS(quantity_changed)", nil, nil)
	if err != nil {
		return err
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	dailySales, err := h.sumHistory(userID, models.HistoryKindSale,
		"sell_price * ABS(quantity_changed)", &startOfDay, &endOfDay)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":                  true,
		"totalInvestment":          dashboardInvestment + uploadsInvestment,
		"totalDashboardInvestment": dashboardInvestment,
		"totalUploadsInvestment":   uploadsInvestment,
		"dailySales":               dailySales,
		"totalSales":               totalSales,
		"totalProfit":              totalSales - totalCost,
		"todayDate":                now.Format("2006-01-02"),
	})
}

func (h *DashboardHandler) sumHistory(userID uuid.UUID, kind, expr string, from, to *time.Time) (float64, error) {
	query := h.db.Model(&models.HistoryRecord{}).
		Where("user_id = ? AND kind = ?", userID, kind)

	if from != nil && to != nil {
		query = query.Where("created_at >= ? AND created_at < ?", *from, *to)
	}

	var sum float64
	err := query.Select("COALESCE(SUM(" + expr + "), 0)").Scan(&sum).Error
	return sum, err
}
