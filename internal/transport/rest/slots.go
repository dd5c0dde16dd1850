package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docbook/internal/slots"
)

type blockSlotsResponse struct {
	Block slots.TimeBlock  `json:"block"`
	Slots []slots.TimeSlot `json:"slots"`
}

// @Summary Каталог слотов
// @Description Возвращает все 15-минутные слоты рабочего дня 09:00-21:00
// @Tags Слоты
// @Produce json
// @Success 200 {array} slots.TimeSlot
// @Router /slots [get]
func (h *Handler) getSlotCatalog(c *gin.Context) {
	successResponse(c, http.StatusOK, slots.Catalog())
}

// @Summary Блоки слотов
// @Description Возвращает 2-часовые блоки для отображения сетки расписания
// @Tags Слоты
// @Produce json
// @Success 200 {array} slots.TimeBlock
// @Router /slots/blocks [get]
func (h *Handler) getSlotBlocks(c *gin.Context) {
	successResponse(c, http.StatusOK, slots.Blocks())
}

// @Summary Слоты блока
// @Tags Слоты
// @Produce json
// @Param index path int true "Номер блока, начиная с 0"
// @Success 200 {object} blockSlotsResponse
// @Failure 400 {object} errorResponseBody "Неверный номер блока"
// @Failure 404 {object} errorResponseBody "Блок не найден"
// @Router /slots/blocks/{index} [get]
func (h *Handler) getBlockSlots(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequestResponse(c, "неверный номер блока")
		return
	}

	blocks := slots.Blocks()
	if index < 0 || index >= len(blocks) {
		errorResponse(c, http.StatusNotFound, "блок не найден")
		return
	}

	successResponse(c, http.StatusOK, blockSlotsResponse{
		Block: blocks[index],
		Slots: slots.SlotsForBlock(index),
	})
}
