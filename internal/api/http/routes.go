package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/s4584690/Pixel-Weather/internal/alert"
	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/store"
	"github.com/s4584690/Pixel-Weather/internal/weather"
)

var validate = validator.New()

// Evaluator runs one alert evaluation for a location report.
type Evaluator interface {
	Evaluate(ctx context.Context, report alert.LocationReport) (alert.MatchResult, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. Paths and the
// status-code taxonomy match the mobile client's existing contract.
func RegisterRoutes(app *fiber.App, st store.Store, index *geo.Index, engine Evaluator) {
	app.Post("/handle_signup", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}
		if err := st.CreateUser(c.Context(), userID); err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"data": fiber.Map{"user_id": userID},
		})
	})

	app.Get("/suburbs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"data": index.Snapshot()})
	})

	// Map-viewport query: every suburb whose centroid lies inside the
	// axis-aligned rectangle.
	app.Get("/suburbs/within", func(c *fiber.Ctx) error {
		bounds, err := parseBounds(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"data": index.FilterWithin(bounds)})
	})

	app.Get("/user_alert_weather", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}
		subs, err := st.ListWeatherSubscriptions(c.Context(), userID)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": subs})
	})

	app.Post("/user_alert_weather", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}

		var req weatherSubscriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		category := weather.ParseCategory(req.Weather)
		if category == weather.CategoryUnknown {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "unknown weather category")
		}

		sub, err := st.AddWeatherSubscription(c.Context(), userID, category)
		if err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": sub})
	})

	app.Delete("/user_alert_weather/:id", func(c *fiber.Ctx) error {
		userID, id, err := requireUserAndID(c)
		if err != nil {
			return err
		}
		if err := st.RemoveWeatherSubscription(c.Context(), userID, id); err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
	})

	app.Get("/user_alert_suburb", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}
		subs, err := st.ListAreaSubscriptions(c.Context(), userID)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": subs})
	})

	app.Post("/user_alert_suburb", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}

		var req areaSubscriptionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		sub, err := st.AddAreaSubscription(c.Context(), userID, req.SuburbID)
		if err != nil {
			return storeError(err)
		}

		resp := fiber.Map{"data": sub}
		if suburb, ok := index.Lookup(sub.SuburbID); ok {
			resp["suburb_name"] = suburb.Name
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	})

	app.Delete("/user_alert_suburb/:id", func(c *fiber.Ctx) error {
		userID, id, err := requireUserAndID(c)
		if err != nil {
			return err
		}
		if err := st.RemoveAreaSubscription(c.Context(), userID, id); err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
	})

	app.Get("/user_alert_time", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}
		windows, err := st.ListTimingWindows(c.Context(), userID)
		if err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": windows})
	})

	app.Post("/user_alert_time", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}

		var req timingWindowRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		start, err := alert.ParseTimeOfDay(req.StartTime)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		end, err := alert.ParseTimeOfDay(req.EndTime)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		w, err := st.AddTimingWindow(c.Context(), userID, start, end)
		if err != nil {
			return storeError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": w})
	})

	app.Put("/user_alert_time", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}

		var req timingToggleRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id, err := uuid.Parse(req.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid window id")
		}

		if err := st.SetTimingWindowActive(c.Context(), userID, id, *req.IsActive); err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"id": id, "is_active": *req.IsActive}})
	})

	app.Delete("/user_alert_time/:id", func(c *fiber.Ctx) error {
		userID, id, err := requireUserAndID(c)
		if err != nil {
			return err
		}
		if err := st.RemoveTimingWindow(c.Context(), userID, id); err != nil {
			return storeError(err)
		}
		return c.JSON(fiber.Map{"data": fiber.Map{"id": id}})
	})

	app.Post("/handle_periodical_submitted_location", func(c *fiber.Ctx) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}

		var req locationReportRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		result, err := engine.Evaluate(c.Context(), alert.LocationReport{
			UserID:    userID,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "evaluation failed")
		}
		return c.JSON(fiber.Map{"data": result})
	})
}

// requireUser extracts the already-authenticated user id placed in the
// X-User-ID header by the auth collaborator. Credentials themselves are not
// this service's concern.
func requireUser(c *fiber.Ctx) (string, error) {
	userID := c.Get("X-User-ID")
	if userID == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
	}
	return userID, nil
}

func requireUserAndID(c *fiber.Ctx) (string, uuid.UUID, error) {
	userID, err := requireUser(c)
	if err != nil {
		return "", uuid.Nil, err
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return userID, id, nil
}

// storeError maps store sentinel errors onto the client's status taxonomy.
func storeError(err error) error {
	switch {
	case errors.Is(err, store.ErrUserExists), errors.Is(err, store.ErrDuplicateSubscription):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidReference), errors.Is(err, store.ErrInvalidRange):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}

type weatherSubscriptionRequest struct {
	Weather string `json:"weather" validate:"required"`
}

type areaSubscriptionRequest struct {
	SuburbID string `json:"suburb_id" validate:"required"`
}

type timingWindowRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type timingToggleRequest struct {
	ID       string `json:"id" validate:"required"`
	IsActive *bool  `json:"is_active" validate:"required"`
}

type locationReportRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	// FCMToken is accepted for contract compatibility; delivery is the
	// dispatcher's concern, not the engine's.
	FCMToken string `json:"fcm_token"`
}

func parseBounds(c *fiber.Ctx) (geo.Bounds, error) {
	var b geo.Bounds
	var err error
	if b.MinLat, err = parseFloatQuery(c, "min_lat"); err != nil {
		return b, err
	}
	if b.MaxLat, err = parseFloatQuery(c, "max_lat"); err != nil {
		return b, err
	}
	if b.MinLon, err = parseFloatQuery(c, "min_lon"); err != nil {
		return b, err
	}
	if b.MaxLon, err = parseFloatQuery(c, "max_lon"); err != nil {
		return b, err
	}
	return b, nil
}

func parseFloatQuery(c *fiber.Ctx, key string) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, errors.New(key + " query parameter is required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New("invalid " + key)
	}
	return f, nil
}
