// Package httpapi exposes the read-only query surface consumed by the
// dashboard: latest record per location, per-location history, and recent
// run summaries. The ETL core never calls these routes.
package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-etl/internal/store"
	"github.com/i474232898/weather-etl/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, st weather.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather/latest", func(c *fiber.Ctx) error {
		records, err := st.LatestRecords(c.Context())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest records")
		}

		if name := c.Query("location"); name != "" {
			for _, rec := range records {
				if rec.LocationName == name {
					return c.JSON(rec)
				}
			}
			return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
		}

		return c.JSON(fiber.Map{"records": records})
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := st.History(c.Context(), req.Location, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location": req.Location,
			"from":     req.From,
			"to":       req.To,
			"records":  records,
		})
	})

	v1.Get("/runs", func(c *fiber.Ctx) error {
		req := runsQuery{Limit: 20}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
			}
			req.Limit = n
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := st.RecentRuns(c.Context(), req.Limit)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch run summaries")
		}

		return c.JSON(fiber.Map{"runs": runs})
	})
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location string    `validate:"required"`
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Location = c.Query("location")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// runsQuery holds query parameters for the runs endpoint.
type runsQuery struct {
	Limit int `validate:"gte=1,lte=100"`
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
