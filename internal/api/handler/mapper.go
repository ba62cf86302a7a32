package handler

import (
	"fmt"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/adboard/classifieds/internal/core/domain"
	"github.com/adboard/classifieds/internal/core/ports"
)

const (
	defaultLimit  = 20
	defaultOffset = 0
)

// --- Domain → Response ---

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toAdvertisementResponse(ad *domain.Advertisement) advertisementResponse {
	return advertisementResponse{
		ID:          ad.ID,
		Title:       ad.Title,
		Description: ad.Description,
		Price:       ad.Price,
		Contacts:    ad.Contacts,
		Author:      ad.Author,
		CreatedAt:   ad.CreatedAt,
	}
}

func toSearchResponse(res *ports.SearchResult) searchAdvertisementsResponse {
	items := make([]advertisementResponse, 0, len(res.Items))
	for _, ad := range res.Items {
		items = append(items, toAdvertisementResponse(ad))
	}
	return searchAdvertisementsResponse{Items: items, Total: res.Total, Limit: res.Limit, Offset: res.Offset}
}

func toListUsersResponse(res *ports.ListUsersResult) listUsersResponse {
	items := make([]userResponse, 0, len(res.Items))
	for _, u := range res.Items {
		items = append(items, toUserResponse(u))
	}
	return listUsersResponse{Items: items, Total: res.Total, Limit: res.Limit, Offset: res.Offset}
}

// --- Request → Service input ---

func toUserPatch(req updateUserRequest) domain.UserPatch {
	patch := domain.UserPatch{Username: req.Username, Password: req.Password}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		patch.Role = &role
	}
	return patch
}

func toAdvertisementPatch(req updateAdvertisementRequest) domain.AdvertisementPatch {
	return domain.AdvertisementPatch{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Contacts:    req.Contacts,
	}
}

// pageParams reads limit and offset, applying the defaults when absent.
// Range checks are left to the service.
func pageParams(c echo.Context) (limit, offset int, err error) {
	limit, offset = defaultLimit, defaultOffset
	err = echo.QueryParamsBinder(c).
		Int("limit", &limit).
		Int("offset", &offset).
		BindError()
	return limit, offset, err
}

// toSearchInput reads the search filters from the query string. An exact
// price narrows the range to that single value.
func toSearchInput(c echo.Context) (ports.SearchInput, error) {
	var in ports.SearchInput

	limit, offset, err := pageParams(c)
	if err != nil {
		return in, err
	}
	in.Limit, in.Offset = limit, offset

	if v := c.QueryParam("title"); v != "" {
		in.Title = &v
	}
	if v := c.QueryParam("author"); v != "" {
		in.Author = &v
	}

	for _, p := range []struct {
		name string
		dst  **float64
	}{
		{"price_min", &in.PriceMin},
		{"price_max", &in.PriceMax},
	} {
		v, err := floatParam(c, p.name)
		if err != nil {
			return in, err
		}
		*p.dst = v
	}

	price, err := floatParam(c, "price")
	if err != nil {
		return in, err
	}
	if price != nil {
		if in.PriceMin == nil || *in.PriceMin < *price {
			in.PriceMin = price
		}
		if in.PriceMax == nil || *in.PriceMax > *price {
			in.PriceMax = price
		}
	}
	return in, nil
}

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", domain.ErrValidation, name)
	}
	return &v, nil
}
