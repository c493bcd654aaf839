package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Luminawater/juketogether/internal/application/metric"
)

// PrometheusMiddleware создает middleware для сбора метрик HTTP запросов
func PrometheusMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// c.Path() - шаблон маршрута, чтобы не плодить метки по идентификаторам
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unknown"
			}

			status := c.Response().Status
			if status == 0 {
				status = http.StatusOK
			}
			if err != nil {
				var he *echo.HTTPError
				if errors.As(err, &he) {
					status = he.Code
				} else if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}

			metric.RecordHTTPMetrics(c.Request().Method, endpoint, status, time.Since(start))

			return err
		}
	}
}
