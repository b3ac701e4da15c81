package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ExportProducts streams the catalog as CSV. With ?gz=1 the payload is
// gzip-compressed for large catalogs.
func (h *Handler) ExportProducts(c echo.Context) error {
	compress := c.QueryParam("gz") == "1"

	filename, contentType := "products.csv", "text/csv; charset=utf-8"
	if compress {
		filename, contentType = "products.csv.gz", "application/gzip"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)

	return h.productCSV.Export(c.Request().Context(), c.Response(), compress)
}

// ImportProducts applies an uploaded CSV to the catalog and reports per-row
// results. Bad rows are skipped, never failing the whole upload.
func (h *Handler) ImportProducts(c echo.Context) error {
	f, err := formFile(c)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := h.productCSV.Import(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

// ExportCustomers streams the approved customer base as CSV.
func (h *Handler) ExportCustomers(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="customers.csv"`)
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)

	return h.customerCSV.Export(c.Request().Context(), c.Response())
}

// ImportCustomers applies an uploaded CSV to existing customers. Rows with an
// unknown id are skipped and reported.
func (h *Handler) ImportCustomers(c echo.Context) error {
	f, err := formFile(c)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := h.customerCSV.Import(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, report)
}

func formFile(c echo.Context) (multipart.File, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "missing file upload")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unreadable file upload")
	}
	return f, nil
}
