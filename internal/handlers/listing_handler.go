package handlers

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/url"
	"strings"

	"valuedrive/internal/models"
	"valuedrive/internal/query"
	"valuedrive/internal/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const productNotFound = "Product not found"

// ListingHandler handles HTTP requests for listings ("products" on the wire).
type ListingHandler struct {
	listingService *services.ListingService
	logger         *zap.SugaredLogger
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listingService *services.ListingService, logger *zap.SugaredLogger) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		logger:         logger,
	}
}

// RegisterRoutes registers the listing routes. protect guards the mutations.
func (h *ListingHandler) RegisterRoutes(router fiber.Router, protect fiber.Handler) {
	router.Post("/add", protect, h.HandleCreate)
	router.Get("/product", h.HandleList)
	router.Get("/product/:id", h.HandleGet)
	router.Put("/product/:id", protect, h.HandleUpdate)
	router.Delete("/product/:id", protect, h.HandleDelete)
	router.Get("/search/:key", h.HandleSearch)
	router.Get("/productlist", h.HandlePreview)
}

// listingForm is the create/update payload. Pointer fields tell an omitted
// field apart from a zero value.
type listingForm struct {
	Company            *string         `json:"company" form:"company"`
	Model              *string         `json:"model" form:"model"`
	Variant            *string         `json:"variant" form:"variant"`
	Color              *string         `json:"color" form:"color"`
	BodyType           *string         `json:"bodyType" form:"bodyType"`
	FuelType           *string         `json:"fuelType" form:"fuelType"`
	TransmissionType   *string         `json:"transmissionType" form:"transmissionType"`
	CarNumber          *string         `json:"car_number" form:"car_number"`
	DistanceCovered    *float64        `json:"distanceCovered" form:"distanceCovered"`
	ModelYear          *int            `json:"modelYear" form:"modelYear"`
	RegistrationYear   *int            `json:"registrationYear" form:"registrationYear"`
	Price              *float64        `json:"price" form:"price"`
	Condition          *string         `json:"condition" form:"condition"`
	RegistrationStatus *string         `json:"registrationStatus" form:"registrationStatus"`
	ImagesToDelete     json.RawMessage `json:"imagesToDelete" form:"-"`
}

func (f listingForm) patch() models.ListingPatch {
	p := models.ListingPatch{
		Company:          f.Company,
		Model:            f.Model,
		Variant:          f.Variant,
		Color:            f.Color,
		BodyType:         f.BodyType,
		FuelType:         f.FuelType,
		TransmissionType: f.TransmissionType,
		CarNumber:        f.CarNumber,
		DistanceCovered:  f.DistanceCovered,
		ModelYear:        f.ModelYear,
		RegistrationYear: f.RegistrationYear,
		Price:            f.Price,
	}
	if f.Condition != nil {
		v := models.Condition(*f.Condition)
		p.Condition = &v
	}
	if f.RegistrationStatus != nil {
		v := models.RegistrationStatus(*f.RegistrationStatus)
		p.RegistrationStatus = &v
	}
	return p
}

// parseImageList accepts a JSON array or a string holding a JSON array, the
// form multipart clients send.
func parseImageList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	if strings.TrimSpace(encoded) == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(encoded), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// parseListingRequest reads a multipart or JSON body.
func parseListingRequest(c *fiber.Ctx) (listingForm, []services.ImageFile, error) {
	var form listingForm
	if len(c.Body()) == 0 {
		return form, nil, nil
	}
	if err := c.BodyParser(&form); err != nil {
		return form, nil, err
	}
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return form, nil, nil
	}

	if v := c.FormValue("imagesToDelete"); v != "" {
		form.ImagesToDelete = json.RawMessage(v)
	}
	mf, err := c.MultipartForm()
	if err != nil {
		return form, nil, err
	}
	return form, imageFiles(mf.File["images"]), nil
}

func imageFiles(headers []*multipart.FileHeader) []services.ImageFile {
	files := make([]services.ImageFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, services.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Open:        func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

// queryParams collects the optional listing filters.
func queryParams(c *fiber.Ctx) query.Params {
	return query.Params{
		Condition:          c.Query("condition"),
		RegistrationStatus: c.Query("registrationStatus"),
		Company:            c.Query("company"),
		BodyType:           c.Query("bodyType"),
		FuelType:           c.Query("fuelType"),
		CarNumber:          c.Query("car_number"),
		MinPrice:           c.Query("minPrice"),
		MaxPrice:           c.Query("maxPrice"),
	}
}

// HandleCreate handles creating a new listing with its images.
func (h *ListingHandler) HandleCreate(c *fiber.Ctx) error {
	form, files, err := parseListingRequest(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	var l models.Listing
	form.patch().Apply(&l)

	created, err := h.listingService.Create(c.UserContext(), &l, files)
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// HandleList handles fetching listings with optional filters.
func (h *ListingHandler) HandleList(c *fiber.Ctx) error {
	listings, err := h.listingService.List(c.UserContext(), queryParams(c))
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(listings)
}

// HandleSearch handles free-text search combined with the regular filters.
func (h *ListingHandler) HandleSearch(c *fiber.Ctx) error {
	key := c.Params("key")
	if decoded, err := url.PathUnescape(key); err == nil {
		key = decoded
	}
	listings, err := h.listingService.Search(c.UserContext(), key, queryParams(c))
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(listings)
}

// HandlePreview handles the capped listing preview.
func (h *ListingHandler) HandlePreview(c *fiber.Ctx) error {
	listings, err := h.listingService.Preview(c.UserContext(), queryParams(c))
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(listings)
}

// HandleGet handles fetching a single listing by ID.
func (h *ListingHandler) HandleGet(c *fiber.Ctx) error {
	l, err := h.listingService.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(l)
}

// HandleUpdate handles a partial update, including image removal and upload.
func (h *ListingHandler) HandleUpdate(c *fiber.Ctx) error {
	form, files, err := parseListingRequest(c)
	if err != nil {
		return badRequest(c, "Invalid request body")
	}
	patch := form.patch()
	if patch.ImagesToDelete, err = parseImageList(form.ImagesToDelete); err != nil {
		return badRequest(c, "imagesToDelete must be a JSON array of image URLs")
	}

	updated, cleanup, err := h.listingService.Update(c.UserContext(), c.Params("id"), patch, files)
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": updated,
		"cleanup": cleanup,
	})
}

// HandleDelete handles deleting a listing and its images.
func (h *ListingHandler) HandleDelete(c *fiber.Ctx) error {
	cleanup, err := h.listingService.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.logger, err, productNotFound)
	}
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
		"cleanup": cleanup,
	})
}
