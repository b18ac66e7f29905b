package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/johnquangdev/playcoach/errors"
	"github.com/johnquangdev/playcoach/internal/adapter/dto/recording"
	"github.com/johnquangdev/playcoach/internal/usecase/aggregate"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WeeklyReporter builds weekly aggregates for a user
type WeeklyReporter interface {
	WeeklyReport(ctx context.Context, userID uuid.UUID, weekStart time.Time) (*aggregate.WeeklyReport, error)
}

// Report handles longitudinal report requests
type Report struct {
	reporter WeeklyReporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportHandler creates a new report handler
func NewReportHandler(reporter WeeklyReporter, logger *zap.Logger) *Report {
	return &Report{reporter: reporter, logger: logger, now: time.Now}
}

// WeeklyReport handles GET /users/:user_id/weekly-report
// @Summary      Weekly progress report
// @Description  Aggregates COMPLETED sessions of the week starting at `week` (default: this Monday, UTC) and compares with the previous week
// @Tags         Reports
// @Produce      json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        user_id  path      string  true   "User ID (UUID)"
// @Param        week     query     string  false  "Week start date (YYYY-MM-DD)"
// @Param        format   query     string  false  "json or xlsx"
// @Success      200      {object}  aggregate.WeeklyReport
// @Failure      400      {object}  map[string]interface{}  "Invalid user ID or week"
// @Router       /users/{user_id}/weekly-report [get]
func (h *Report) WeeklyReport(c echo.Context) error {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(fmt.Sprintf("invalid user id %q", c.Param("user_id"))))
	}

	var req recording.WeeklyReportRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidPayload(err))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrInvalidArgument(err.Error()))
	}

	weekStart := mondayOf(h.now())
	if req.Week != "" {
		weekStart, err = time.Parse(time.DateOnly, req.Week)
		if err != nil {
			return HandleError(h.logger, c, errors.ErrInvalidArgument("week must be YYYY-MM-DD"))
		}
	}

	report, err := h.reporter.WeeklyReport(c.Request().Context(), userID, weekStart)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrDBQueryFailed("weekly report", err))
	}

	if req.Format != "xlsx" {
		return HandleSuccess(h.logger, c, report)
	}

	var buf bytes.Buffer
	if err := aggregate.WriteXLSX(report, &buf); err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	filename := fmt.Sprintf("weekly-%s-%s.xlsx", userID.String(), weekStart.Format(time.DateOnly))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}

// mondayOf returns midnight UTC of the Monday starting t's week
func mondayOf(t time.Time) time.Time {
	day := t.UTC().Truncate(24 * time.Hour)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
