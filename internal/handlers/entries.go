package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"simutu-ng/internal/entries"
	"simutu-ng/internal/models"
)

// ЗАПИСИ ИНДИКАТОРОВ

func (h *Handler) CreateEntry(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}

	var in entries.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	entry, err := h.entries.CreateEntry(c.Request.Context(), a, in)
	if err != nil {
		h.fail(c, "CreateEntry", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) GetEntry(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "GetEntry", err)
		return
	}

	entry, err := h.entries.GetEntry(c.Request.Context(), a, id)
	if err != nil {
		h.fail(c, "GetEntry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// listInput разбирает ?unitId&from&to&frequency&status=a,b&limit&offset
func listInput(c *gin.Context) (entries.ListInput, error) {
	var in entries.ListInput
	var err error

	if in.UnitID, err = queryUUID(c, "unitId"); err != nil {
		return in, err
	}
	if in.From, err = queryDate(c, "from"); err != nil {
		return in, err
	}
	if in.To, err = queryDate(c, "to"); err != nil {
		return in, err
	}
	in.Frequency = models.Frequency(c.Query("frequency"))
	if in.Frequency != "" && !in.Frequency.Valid() {
		return in, invalidParam("frequency", "oneof")
	}

	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			st := models.EntryStatus(strings.TrimSpace(part))
			if st == "" {
				continue
			}
			if !st.Valid() {
				return in, invalidParam("status", "oneof")
			}
			in.Statuses = append(in.Statuses, st)
		}
	}

	if in.Limit, err = queryInt(c, "limit", 0); err != nil {
		return in, err
	}
	if in.Offset, err = queryInt(c, "offset", 0); err != nil {
		return in, err
	}
	if in.Offset < 0 {
		return in, invalidParam("offset", "min")
	}
	return in, nil
}

func (h *Handler) ListEntries(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	in, err := listInput(c)
	if err != nil {
		h.fail(c, "ListEntries", err)
		return
	}

	page, err := h.entries.ListEntries(c.Request.Context(), a, in)
	if err != nil {
		h.fail(c, "ListEntries", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "UpdateEntry", err)
		return
	}

	var in entries.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	entry, err := h.entries.UpdateEntry(c.Request.Context(), a, id, in)
	if err != nil {
		h.fail(c, "UpdateEntry", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "DeleteEntry", err)
		return
	}

	if err := h.entries.DeleteEntry(c.Request.Context(), a, id); err != nil {
		h.fail(c, "DeleteEntry", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// СМЕНА СТАТУСА И ВЕРИФИКАЦИЯ

func (h *Handler) SetEntryStatus(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "SetEntryStatus", err)
		return
	}

	var in entries.StatusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	entry, err := h.entries.SetStatus(c.Request.Context(), a, id, in)
	if err != nil {
		h.fail(c, "SetEntryStatus", err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) EntryLogs(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		h.fail(c, "EntryLogs", err)
		return
	}

	logs, err := h.entries.VerificationLogs(c.Request.Context(), a, id)
	if err != nil {
		h.fail(c, "EntryLogs", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func (h *Handler) ListForVerification(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	list, err := listInput(c)
	if err != nil {
		h.fail(c, "ListForVerification", err)
		return
	}
	division, err := queryUUID(c, "divisionId")
	if err != nil {
		h.fail(c, "ListForVerification", err)
		return
	}

	page, err := h.entries.ListForVerification(c.Request.Context(), a, entries.VerificationInput{
		ListInput:  list,
		DivisionID: division,
	})
	if err != nil {
		h.fail(c, "ListForVerification", err)
		return
	}
	c.JSON(http.StatusOK, page)
}
