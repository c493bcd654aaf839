package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Luminawater/juketogether/internal/application/constant"
	"github.com/Luminawater/juketogether/internal/domain/errs"
	"github.com/Luminawater/juketogether/internal/usecase"
)

type RoomHandler struct {
	roomUsecase usecase.RoomUsecase
}

func NewRoomHandler(roomUsecase usecase.RoomUsecase) *RoomHandler {
	return &RoomHandler{roomUsecase: roomUsecase}
}

// GetRoom отдаёт сводку комнаты по идентификатору или короткому коду
func (h *RoomHandler) GetRoom(c echo.Context) error {
	ref := c.Param("id")

	summary, err := h.roomUsecase.Summary(c.Request().Context(), ref)
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.NotFound("")):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "room not found"})
	case errors.Is(err, errs.InvalidCommand("")):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		slog.Error("get room summary", slog.Any(constant.Error, err), slog.String(constant.RoomID, ref))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "could not get room"})
	}

	return c.JSON(http.StatusOK, summary)
}
