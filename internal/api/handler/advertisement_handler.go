package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/adboard/classifieds/internal/api/metrics"
	"github.com/adboard/classifieds/internal/core/ports"
)

const headerIdempotencyKey = "Idempotency-Key"

// AdvertisementHandler handles HTTP requests for advertisements.
type AdvertisementHandler struct {
	service ports.AdvertisementService
}

func NewAdvertisementHandler(service ports.AdvertisementService) *AdvertisementHandler {
	return &AdvertisementHandler{service: service}
}

// Create handles POST /v1/advertisements. A repeated Idempotency-Key returns
// the advertisement created by the first request with 200.
//
// @Summary      Publish an advertisement
// @Tags         advertisements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string                      false  "Key that makes retries safe"
// @Param        body             body      createAdvertisementRequest  true   "Advertisement"
// @Success      201              {object}  advertisementResponse
// @Success      200              {object}  advertisementResponse  "Replay of an earlier request"
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/advertisements [post]
func (h *AdvertisementHandler) Create(c echo.Context) error {
	author, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req createAdvertisementRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.service.Create(c.Request().Context(), ports.CreateAdvertisementInput{
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		Contacts:       req.Contacts,
		IdempotencyKey: c.Request().Header.Get(headerIdempotencyKey),
	}, author)
	if err != nil {
		return err
	}

	if res.AlreadyExisted {
		metrics.AdvertisementsTotal.WithLabelValues("replayed").Inc()
		return c.JSON(http.StatusOK, toAdvertisementResponse(res.Advertisement))
	}
	metrics.AdvertisementsTotal.WithLabelValues("created").Inc()
	c.Response().Header().Set(echo.HeaderLocation, c.Echo().Reverse("advertisements.get", res.Advertisement.ID))
	return c.JSON(http.StatusCreated, toAdvertisementResponse(res.Advertisement))
}

// Search handles GET /v1/advertisements.
//
// @Summary      Search advertisements
// @Tags         advertisements
// @Produce      json
// @Param        title      query     string  false  "Case-insensitive title substring"
// @Param        author     query     string  false  "Exact author username"
// @Param        price      query     number  false  "Exact price"
// @Param        price_min  query     number  false  "Minimum price (inclusive)"
// @Param        price_max  query     number  false  "Maximum price (inclusive)"
// @Param        limit      query     int     false  "Page size (1-100)"  default(20)
// @Param        offset     query     int     false  "Items to skip"      default(0)
// @Success      200        {object}  searchAdvertisementsResponse
// @Failure      400        {object}  errorResponse
// @Failure      422        {object}  errorResponse
// @Router       /v1/advertisements [get]
func (h *AdvertisementHandler) Search(c echo.Context) error {
	in, err := toSearchInput(c)
	if err != nil {
		return err
	}

	res, err := h.service.Search(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSearchResponse(res))
}

// Get handles GET /v1/advertisements/:id.
//
// @Summary      Get an advertisement
// @Tags         advertisements
// @Produce      json
// @Param        id   path      int  true  "Advertisement ID"
// @Success      200  {object}  advertisementResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/advertisements/{id} [get]
func (h *AdvertisementHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ad, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAdvertisementResponse(ad))
}

// Update handles PATCH /v1/advertisements/:id. Only the author or an admin
// may update.
//
// @Summary      Update an advertisement
// @Tags         advertisements
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                         true  "Advertisement ID"
// @Param        body  body      updateAdvertisementRequest  true  "Fields to change"
// @Success      200   {object}  advertisementResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/advertisements/{id} [patch]
func (h *AdvertisementHandler) Update(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateAdvertisementRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ad, err := h.service.Update(c.Request().Context(), id, toAdvertisementPatch(req), actor)
	if err != nil {
		return err
	}

	metrics.AdvertisementsTotal.WithLabelValues("updated").Inc()
	return c.JSON(http.StatusOK, toAdvertisementResponse(ad))
}

// Delete handles DELETE /v1/advertisements/:id.
//
// @Summary      Delete an advertisement
// @Tags         advertisements
// @Security     BearerAuth
// @Param        id   path  int  true  "Advertisement ID"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/advertisements/{id} [delete]
func (h *AdvertisementHandler) Delete(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id, actor); err != nil {
		return err
	}

	metrics.AdvertisementsTotal.WithLabelValues("deleted").Inc()
	return c.NoContent(http.StatusNoContent)
}
