package api

import (
	"errors"
	"time"

	models "MacroPull/internal/domain/models"
	domsvc "MacroPull/internal/domain/service"
	"MacroPull/internal/usecase"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
	"MacroPull/pkg/util"

	"github.com/labstack/echo/v4"
)

// StudyEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type StudyEchoHandler struct {
	logger *xlogger.Logger
	prov   domsvc.SnapshotProvider
	series *usecase.SeriesQueryUseCase
}

func NewStudyEchoHandler(logger *xlogger.Logger, prov domsvc.SnapshotProvider, series *usecase.SeriesQueryUseCase) *StudyEchoHandler {
	return &StudyEchoHandler{logger: logger, prov: prov, series: series}
}

func (h *StudyEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/panel", h.Panel)
	g.GET("/spreads", h.Spreads)
	g.GET("/composite", h.Composite)
	g.GET("/regressions", h.Regressions)
	g.GET("/rolling", h.Rolling)
	g.GET("/regimes", h.Regimes)
	g.POST("/refresh", h.Refresh)
	g.GET("/series/:name", h.Series)
}

func (h *StudyEchoHandler) snapshot(c echo.Context) (*models.StudySnapshot, error) {
	snap, err := h.prov.Snapshot(c.Request().Context())
	if err != nil {
		h.logger.Error("snapshot error", xlogger.Error(err))
		return nil, stageError(err)
	}
	return snap, nil
}

// stageError maps pipeline data errors to 422; anything else stays a 500.
func stageError(err error) error {
	var di *models.DataInsufficientError
	var ip *models.InvalidPriceError
	if errors.As(err, &di) || errors.As(err, &ip) {
		return xhttp.UnprocessableError(err.Error()).WithError(err)
	}
	return err
}

func (h *StudyEchoHandler) Panel(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"index":      snap.Index,
		"panel":      snap.Panel,
		"months":     snap.Months,
		"indicators": snap.Indicators,
	})
}

func (h *StudyEchoHandler) Spreads(c echo.Context) error {
	req := &models.SpreadsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	for _, s := range snap.Spreads {
		if s.Asset == req.Asset {
			return xhttp.SuccessResponse(c, s)
		}
	}
	return xhttp.NotFoundResponse(c, "unknown asset "+req.Asset)
}

func (h *StudyEchoHandler) Composite(c echo.Context) error {
	req := &models.CompositeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	if req.Method == "pca" {
		return xhttp.SuccessResponse(c, map[string]interface{}{
			"composite": snap.PCAComposite,
			"pca":       snap.PCA,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"composite": snap.ZComposite})
}

func (h *StudyEchoHandler) Regressions(c echo.Context) error {
	req := &models.RegressionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	switch req.Sample {
	case models.SamplePreBreak, models.SamplePostBreak:
		out := make([]models.RegressionResult, 0, len(snap.Subsamples))
		for _, r := range snap.Subsamples {
			if r.Sample == req.Sample {
				out = append(out, r)
			}
		}
		return xhttp.SuccessResponse(c, out)
	default:
		return xhttp.SuccessResponse(c, snap.FullSample)
	}
}

func (h *StudyEchoHandler) Rolling(c echo.Context) error {
	req := &models.RollingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	for _, rr := range snap.Rolling {
		if rr.Asset == req.Asset {
			return xhttp.SuccessResponse(c, rr)
		}
	}
	return xhttp.NotFoundResponse(c, "unknown asset "+req.Asset)
}

func (h *StudyEchoHandler) Regimes(c echo.Context) error {
	snap, err := h.snapshot(c)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, snap.Regimes)
}

func (h *StudyEchoHandler) Refresh(c echo.Context) error {
	snap, err := h.prov.Refresh(c.Request().Context())
	if err != nil {
		h.logger.Error("refresh error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, stageError(err))
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"computed_at": snap.ComputedAt,
		"months":      snap.Months,
	})
}

func (h *StudyEchoHandler) Series(c echo.Context) error {
	name := c.Param("name")
	from := util.ParseTimeDefault(c.QueryParam("from"), time.Time{})
	to := util.ParseTimeDefault(c.QueryParam("to"), time.Now().UTC())
	limit := util.ParseIntDefault(c.QueryParam("limit"), 10000)

	res, err := h.series.GetSeries(c.Request().Context(), usecase.GetSeriesParams{
		Name:  name,
		From:  from,
		To:    to,
		Limit: limit,
	})
	if err != nil {
		h.logger.Error("series usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
