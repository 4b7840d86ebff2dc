package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"simutu-ng/internal/apperrors"
)

const dateLayout = "2006-01-02"

func invalidParam(name, tag string) error {
	return apperrors.Validation("некорректный параметр запроса", map[string]string{name: tag})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, invalidParam(name, "uuid")
	}
	return id, nil
}

func queryUUID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidParam(name, "uuid")
	}
	return &id, nil
}

func requiredUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := queryUUID(c, name)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, invalidParam(name, "required")
	}
	return *id, nil
}

// queryUUIDs принимает ?unitId=a&unitId=b
func queryUUIDs(c *gin.Context, name string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range c.QueryArray(name) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, invalidParam(name, "uuid")
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidParam(name, "datetime")
	}
	return &t, nil
}

func requiredDate(c *gin.Context, name string) (time.Time, error) {
	t, err := queryDate(c, name)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, invalidParam(name, "required")
	}
	return *t, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidParam(name, "number")
	}
	return n, nil
}
