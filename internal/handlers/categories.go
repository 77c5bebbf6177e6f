package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"example.com/budpal/backend/internal/appstate"
	"example.com/budpal/backend/internal/auth"
	"example.com/budpal/backend/internal/budget"
	"example.com/budpal/backend/internal/models"
)

type CategoryHandler struct {
	States *appstate.Registry
	Stores budget.Stores
}

// NewCategoryHandler создает обработчик записей категорий.
func NewCategoryHandler(states *appstate.Registry, stores budget.Stores) *CategoryHandler {
	return &CategoryHandler{States: states, Stores: stores}
}

type ItemsResponse struct {
	Category models.CategoryInfo `json:"category"`
	Items    []models.LineItem   `json:"items"`
}

type ItemResponse struct {
	Item models.LineItem `json:"item"`
}

// Categories возвращает справочник категорий с цветами и иконками.
func (h *CategoryHandler) Categories(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]models.CategoryInfo{"categories": models.Categories})
}

// List перечитывает и возвращает записи категории.
func (h *CategoryHandler) List(c echo.Context) error {
	t, ok, err := h.resolve(c)
	if !ok {
		return err
	}

	if err := t.session.Load(c.Request().Context(), t.store.Category()); err != nil {
		return respondBudgetError(c, t.session, err)
	}

	items := t.session.Snapshot().Lists[t.store.Category()]
	if items == nil {
		items = []models.LineItem{}
	}
	return c.JSON(http.StatusOK, ItemsResponse{Category: t.store.Info(), Items: items})
}

// Create добавляет запись в категорию.
func (h *CategoryHandler) Create(c echo.Context) error {
	t, ok, err := h.resolve(c)
	if !ok {
		return err
	}

	var req budget.ItemInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	id, err := t.session.Add(c.Request().Context(), t.store.Category(), req)
	if err != nil {
		return respondBudgetError(c, t.session, err)
	}

	return h.respondItem(c, t, id, http.StatusCreated)
}

// Update частично изменяет запись категории.
func (h *CategoryHandler) Update(c echo.Context) error {
	t, ok, err := h.resolve(c)
	if !ok {
		return err
	}

	var req budget.ItemPatch
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid payload")
	}

	id := c.Param("id")
	if err := t.session.Update(c.Request().Context(), t.store.Category(), id, req); err != nil {
		return respondBudgetError(c, t.session, err)
	}

	return h.respondItem(c, t, id, http.StatusOK)
}

// Delete удаляет запись категории.
func (h *CategoryHandler) Delete(c echo.Context) error {
	t, ok, err := h.resolve(c)
	if !ok {
		return err
	}

	if err := t.session.Delete(c.Request().Context(), t.store.Category(), c.Param("id")); err != nil {
		return respondBudgetError(c, t.session, err)
	}

	return c.NoContent(http.StatusNoContent)
}

type itemTarget struct {
	session *appstate.Session
	store   *budget.Store
}

// resolve находит состояние пользователя и хранилище категории; ok=false, если ответ уже отправлен.
func (h *CategoryHandler) resolve(c echo.Context) (itemTarget, bool, error) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok {
		return itemTarget{}, false, unauthorized(c, "invalid credentials")
	}

	category, ok := parseCategory(c)
	if !ok {
		return itemTarget{}, false, notFound(c, "unknown category")
	}

	store, ok := h.Stores.For(category)
	if !ok {
		return itemTarget{}, false, notFound(c, "unknown category")
	}

	return itemTarget{session: h.States.Session(userID), store: store}, true, nil
}

// respondItem отдает запись из снимка, а если перечитать список не удалось, читает ее напрямую.
func (h *CategoryHandler) respondItem(c echo.Context, t itemTarget, id string, status int) error {
	for _, item := range t.session.Snapshot().Lists[t.store.Category()] {
		if item.ID == id {
			return c.JSON(status, ItemResponse{Item: item})
		}
	}

	item, err := t.store.Get(c.Request().Context(), t.session.UserID(), id)
	if err != nil {
		return respondBudgetError(c, t.session, err)
	}
	return c.JSON(status, ItemResponse{Item: item})
}
