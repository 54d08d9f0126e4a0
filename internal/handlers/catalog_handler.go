package handlers

import (
	"strconv"
	"strings"

	"valuedrive/internal/catalog"
	"valuedrive/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CatalogHandler serves the normalized catalog views.
type CatalogHandler struct {
	catalogService *services.CatalogService
	logger         *zap.SugaredLogger
}

func NewCatalogHandler(catalogService *services.CatalogService, logger *zap.SugaredLogger) *CatalogHandler {
	return &CatalogHandler{catalogService: catalogService, logger: logger}
}

func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/brands", h.HandleBrands)
	router.Get("/catalog", h.HandleCatalog)
}

// HandleBrands returns the most listed brands, 12 unless ?limit= says otherwise.
func (h *CatalogHandler) HandleBrands(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", services.DefaultBrandLimit)
	brands, err := h.catalogService.Brands(c.UserContext(), limit)
	if err != nil {
		return respondError(c, h.logger, err, "")
	}
	return c.JSON(brands)
}

// multi returns every value of a repeatable query parameter.
func multi(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		if v := strings.TrimSpace(string(raw)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// multiSplit is multi with comma separated values split as well. Only for
// parameters whose values never contain a comma.
func multiSplit(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range multi(c, key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func parseFloatParam(c *fiber.Ctx, key string) (float64, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(v, 64)
	return f, err == nil
}

// HandleCatalog filters normalized listings by the catalog chips.
func (h *CatalogHandler) HandleCatalog(c *fiber.Ctx) error {
	sel := catalog.Selection{
		Brands:       multiSplit(c, "brand"),
		Colors:       multiSplit(c, "color"),
		BodyTypes:    multiSplit(c, "bodyType"),
		FuelTypes:    multiSplit(c, "fuelType"),
		Distances:    multi(c, "distance"),
		Preowned:     c.QueryBool("preowned"),
		Unregistered: c.QueryBool("unregistered"),
		Search:       c.Query("q"),
	}
	for _, y := range multiSplit(c, "modelYear") {
		year, err := strconv.Atoi(y)
		if err != nil {
			return badRequest(c, "modelYear must be a number")
		}
		sel.ModelYears = append(sel.ModelYears, year)
	}
	var ok bool
	if sel.MinRupees, ok = parseFloatParam(c, "minRupees"); !ok {
		return badRequest(c, "minRupees must be a number")
	}
	if sel.MaxRupees, ok = parseFloatParam(c, "maxRupees"); !ok {
		return badRequest(c, "maxRupees must be a number")
	}

	listings, err := h.catalogService.Browse(c.UserContext(), sel)
	if err != nil {
		return respondError(c, h.logger, err, "")
	}
	return c.JSON(listings)
}
