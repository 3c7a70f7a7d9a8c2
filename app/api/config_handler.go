package api

import (
	"reflect"
	"strings"

	"legalrag/store"
	"legalrag/types"

	"github.com/gofiber/fiber/v2"
)

type ConfigHandler struct {
	configStore store.ConfigStorer
}

func NewConfigHandler(cfgStore store.ConfigStorer) *ConfigHandler {
	return &ConfigHandler{
		configStore: cfgStore,
	}
}

func (h *ConfigHandler) HandleGetConfig(c *fiber.Ctx) error {
	cfg, err := h.configStore.GetConfig(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(cfg)
}

// HandleSetConfig updates the persisted prompt/model configuration. Only
// non-empty fields are written; column names come from the db struct tags.
func (h *ConfigHandler) HandleSetConfig(c *fiber.Ctx) error {
	var params types.ConfigParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	v := reflect.ValueOf(params)
	t := reflect.TypeOf(params)
	querySet := make(map[string]any)
	for i := 0; i < v.NumField(); i++ {
		dbTag := t.Field(i).Tag.Get("db")
		fieldValue := v.Field(i).Interface()

		key := strings.Split(dbTag, ",")[0]
		if value, ok := fieldValue.(string); ok && value != "" {
			querySet[key] = value
		}
	}
	if len(querySet) == 0 {
		return ErrBadRequest()
	}

	resp, err := h.configStore.SetConfig(c.Context(), querySet)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}
