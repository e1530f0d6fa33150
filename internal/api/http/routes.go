package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/internal/atmosphere"
	"github.com/skywatchapp/skywatch/internal/history"
	"github.com/skywatchapp/skywatch/internal/patterns"
	"github.com/skywatchapp/skywatch/internal/tracker"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *tracker.Service, hist *history.Store, repo *patterns.Repository) {
	v1 := app.Group("/api/v1")

	v1.Get("/history/recent", func(c *fiber.Ctx) error {
		var req recentQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records := hist.RecentRecords(req.Days)
		return c.JSON(fiber.Map{
			"days":    req.Days,
			"count":   len(records),
			"records": records,
		})
	})

	v1.Get("/history/range", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records := hist.RecordsInRange(req.From, req.To)
		return c.JSON(fiber.Map{
			"from":    astro.DateKey(req.From),
			"to":      astro.DateKey(req.To),
			"count":   len(records),
			"records": records,
		})
	})

	v1.Get("/history/stats", func(c *fiber.Ctx) error {
		stats := hist.Statistics()
		if stats == nil {
			return fiber.NewError(fiber.StatusNotFound, "no records tracked yet")
		}
		return c.JSON(stats)
	})

	v1.Post("/history/backfill", func(c *fiber.Ctx) error {
		days, err := queryInt(c, "days", 90)
		if err != nil || days < 0 || days > 365 {
			return fiber.NewError(fiber.StatusBadRequest, "days must be an integer between 0 and 365")
		}

		total := service.Backfill(days)
		return c.JSON(fiber.Map{"totalRecords": total})
	})

	v1.Delete("/history", func(c *fiber.Ctx) error {
		hist.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Get("/atmosphere/current", func(c *fiber.Ctx) error {
		state := service.Atmosphere()
		if state.Snapshot == nil {
			return fiber.NewError(fiber.StatusNotFound, "no atmosphere data fetched yet")
		}

		resp := fiber.Map{
			"snapshot":  state.Snapshot,
			"rating":    atmosphere.ScoreRating(state.Snapshot.Current.ObservationScore),
			"lastFetch": state.LastFetch,
			"stale":     service.NeedsRefresh(),
		}
		if state.Err != nil {
			resp["error"] = state.Err.Error()
		}
		return c.JSON(resp)
	})

	v1.Get("/atmosphere/history", func(c *fiber.Ctx) error {
		entries := service.AtmosphereHistory()
		return c.JSON(fiber.Map{
			"count":   len(entries),
			"entries": entries,
		})
	})

	v1.Post("/atmosphere/refresh", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := service.RefreshAtmosphere(ctx); err != nil {
			if errors.Is(err, atmosphere.ErrFetch) {
				return fiber.NewError(fiber.StatusBadGateway, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "atmosphere refresh failed")
		}

		state := service.Atmosphere()
		return c.JSON(fiber.Map{
			"snapshot":  state.Snapshot,
			"lastFetch": state.LastFetch,
		})
	})

	v1.Get("/patterns", func(c *fiber.Ctx) error {
		var req patternsQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var stored []patterns.Pattern
		if req.Type != "" {
			stored = repo.ByType(patterns.Type(req.Type))
		} else {
			stored = repo.Patterns()
		}
		if req.MinConfidence > 0 {
			filtered := stored[:0]
			for _, p := range stored {
				if p.Confidence >= req.MinConfidence {
					filtered = append(filtered, p)
				}
			}
			stored = filtered
		}

		return c.JSON(fiber.Map{
			"count":         len(stored),
			"patterns":      patternViews(stored),
			"lastDetection": repo.LastDetection(),
		})
	})

	v1.Get("/patterns/high", func(c *fiber.Ctx) error {
		threshold, err := queryFloat(c, "threshold", 0)
		if err != nil || threshold < 0 || threshold > 1 {
			return fiber.NewError(fiber.StatusBadRequest, "threshold must be a number between 0 and 1")
		}

		stored := repo.HighConfidence(threshold)
		return c.JSON(fiber.Map{
			"count":    len(stored),
			"patterns": patternViews(stored),
		})
	})

	v1.Post("/patterns/detect", func(c *fiber.Ctx) error {
		detected := service.RunDetection()
		return c.JSON(fiber.Map{
			"detected": len(detected),
			"patterns": patternViews(detected),
		})
	})

	v1.Delete("/patterns/:id", func(c *fiber.Ctx) error {
		repo.Dismiss(c.Params("id"))
		return c.SendStatus(fiber.StatusNoContent)
	})

	v1.Delete("/patterns", func(c *fiber.Ctx) error {
		repo.Clear()
		return c.SendStatus(fiber.StatusNoContent)
	})
}

// patternView augments a pattern with its display confidence level.
type patternView struct {
	patterns.Pattern
	ConfidenceLevel string `json:"confidenceLevel"`
}

func patternViews(in []patterns.Pattern) []patternView {
	out := make([]patternView, len(in))
	for i, p := range in {
		out[i] = patternView{Pattern: p, ConfidenceLevel: patterns.ConfidenceLevel(p.Confidence)}
	}
	return out
}

// recentQuery holds query parameters for the recent-records endpoint.
type recentQuery struct {
	Days int `validate:"min=1,max=365"`
}

func (r *recentQuery) bind(c *fiber.Ctx) error {
	days, err := queryInt(c, "days", 30)
	if err != nil {
		return err
	}
	r.Days = days
	return validate.Struct(r)
}

// rangeQuery holds query parameters for the date-range endpoint.
type rangeQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
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

	r.From = from
	r.To = to
	return validate.Struct(r)
}

// patternsQuery holds query parameters for the pattern listing.
type patternsQuery struct {
	Type          string  `validate:"omitempty,oneof=trend correlation cycle anomaly optimal seasonal"`
	MinConfidence float64 `validate:"min=0,max=1"`
}

func (p *patternsQuery) bind(c *fiber.Ctx) error {
	p.Type = c.Query("type")
	minConf, err := queryFloat(c, "minConfidence", 0)
	if err != nil {
		return err
	}
	p.MinConfidence = minConf
	return validate.Struct(p)
}

func queryInt(c *fiber.Ctx, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, key string, def float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(key + " must be a number")
	}
	return f, nil
}

// parseTime tries RFC3339, plain dates, and Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation(astro.DateKeyLayout, s, time.Local); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339, YYYY-MM-DD, or unix seconds")
}
