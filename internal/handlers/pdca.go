package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simutu-ng/internal/pdca"
)

// PDCA

func (h *Handler) CreatePDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var in pdca.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	p, err := h.pdca.Create(c.Request.Context(), a, in)
	if err != nil {
		h.fail(c, "CreatePDCA", err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "GetPDCA", err)
		return
	}

	p, err := h.pdca.Get(c.Request.Context(), a, id)
	if err != nil {
		h.fail(c, "GetPDCA", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) UpdatePDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "UpdatePDCA", err)
		return
	}
	var in pdca.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	p, err := h.pdca.Update(c.Request.Context(), a, id, in)
	if err != nil {
		h.fail(c, "UpdatePDCA", err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "DeletePDCA", err)
		return
	}

	if err := h.pdca.Delete(c.Request.Context(), a, id); err != nil {
		h.fail(c, "DeletePDCA", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ItemPDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	itemID, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "ItemPDCA", err)
		return
	}

	list, err := h.pdca.ListByItem(c.Request.Context(), a, itemID)
	if err != nil {
		h.fail(c, "ItemPDCA", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) NeedsPDCA(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	unitID, err := queryUUID(c, "unitId")
	if err != nil {
		h.fail(c, "NeedsPDCA", err)
		return
	}

	items, err := h.pdca.NeedsPDCA(c.Request.Context(), a, unitID)
	if err != nil {
		h.fail(c, "NeedsPDCA", err)
		return
	}
	c.JSON(http.StatusOK, items)
}
