package http

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/poimap/internal/adapters/surface"
	"github.com/samirrijal/poimap/internal/core/domain"
	"github.com/samirrijal/poimap/internal/core/usecases"
)

// viewerResponse describes one viewer session.
type viewerResponse struct {
	ID         string            `json:"id"`
	Visibility domain.Visibility `json:"visibility"`
	Counts     domain.Counts     `json:"counts"`
}

func newViewerResponse(ctrl *usecases.DisplayController) viewerResponse {
	return viewerResponse{ID: ctrl.ID(), Visibility: ctrl.Visibility(), Counts: ctrl.Counts()}
}

// layerResponse is the outcome of a visibility change.
type layerResponse struct {
	Category domain.Category `json:"category"`
	Visible  bool            `json:"visible"`
	Counts   domain.Counts   `json:"counts"`
}

// ListLayersHandler returns the ingestion status of every category.
func ListLayersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"layers": deps.Points.Layers()})
	}
}

// ListPointsHandler returns one page of a category's dataset.
func ListPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Query("category")
		if raw == "" {
			return errBadRequest(c, "category query parameter is required")
		}
		cat, err := domain.ParseCategory(raw)
		if err != nil {
			return errFromDomain(c, err)
		}

		ds := deps.Points.List(cat)
		pg, start, end := paginate(c, ds.Len(), 100, 500)
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: ds.Points[start:end], Pagination: pg})
	}
}

// NearbyPointsHandler returns loaded points within a radius of a coordinate.
func NearbyPointsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return errBadRequest(c, "lat must be a number")
		}
		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return errBadRequest(c, "lon must be a number")
		}
		radius := c.QueryFloat("radius", 0)
		if radius < 0 {
			return errBadRequest(c, "radius must be positive")
		}

		var cats []domain.Category
		if raw := c.Query("category"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				cat, err := domain.ParseCategory(strings.TrimSpace(part))
				if err != nil {
					return errFromDomain(c, err)
				}
				cats = append(cats, cat)
			}
		}

		points, err := deps.Points.Nearby(lat, lon, radius, c.QueryInt("limit", 20), cats...)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(points)
	}
}

// CreateViewerHandler opens a viewer session with both layers visible.
func CreateViewerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := deps.Viewers.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		viewerLogger(c, ctrl.ID()).Debug("viewer created")
		c.Location("/v1/viewers/" + ctrl.ID())
		return c.Status(fiber.StatusCreated).JSON(newViewerResponse(ctrl))
	}
}

// GetViewerHandler returns the visibility and counts of a viewer.
func GetViewerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := deps.Viewers.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(newViewerResponse(ctrl))
	}
}

// ViewerMarkersHandler returns the viewer's visible markers as a GeoJSON
// FeatureCollection.
func ViewerMarkersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		ctrl, err := deps.Viewers.Get(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}

		var fc *geojson.FeatureCollection
		if deps.Surface != nil {
			if stored, version, ok := deps.Surface.Snapshot(id); ok {
				fc = stored
				c.Set(fiber.HeaderETag, renderETag(id, version))
			}
		}
		if fc == nil {
			fc = surface.FeatureCollection(ctrl.Markers())
		}

		data, err := fc.MarshalJSON()
		if err != nil {
			return errInternal(c, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/geo+json")
		return c.Send(data)
	}
}

// ViewerCountsHandler returns the per-category counts of a viewer.
func ViewerCountsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctrl, err := deps.Viewers.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(ctrl.Counts())
	}
}

// SetLayerVisibleHandler sets one layer flag from {"visible": bool}.
func SetLayerVisibleHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Visible *bool `json:"visible"`
	}

	return func(c *fiber.Ctx) error {
		cat, err := domain.ParseCategory(c.Params("category"))
		if err != nil {
			return errFromDomain(c, err)
		}
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Visible == nil {
			return errBadRequest(c, "visible is required")
		}

		id := c.Params("id")
		counts, err := deps.Viewers.SetVisible(c.UserContext(), id, cat, *req.Visible)
		if err != nil {
			return errFromDomain(c, err)
		}
		viewerLogger(c, id).Debug("layer visibility set", "category", cat, "visible", *req.Visible)
		return c.JSON(layerResponse{Category: cat, Visible: *req.Visible, Counts: counts})
	}
}

// ToggleLayerHandler flips one layer flag.
func ToggleLayerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cat, err := domain.ParseCategory(c.Params("category"))
		if err != nil {
			return errFromDomain(c, err)
		}

		id := c.Params("id")
		visible, counts, err := deps.Viewers.Toggle(c.UserContext(), id, cat)
		if err != nil {
			return errFromDomain(c, err)
		}
		viewerLogger(c, id).Debug("layer toggled", "category", cat, "visible", visible)
		return c.JSON(layerResponse{Category: cat, Visible: visible, Counts: counts})
	}
}

// DeleteViewerHandler ends a viewer session.
func DeleteViewerHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Viewers.Close(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
