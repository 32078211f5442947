package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHandler_ExportCSV(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	spentAt := time.Date(2024, 1, 15, 12, 30, 0, 0, time.Local)
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(1, 1, 99.99, "INR", "餐饮", "午餐", "", spentAt, spentAt))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExportHandler(db)
	router.GET("/export/csv", h.ExportCSV)

	req := httptest.NewRequest("GET", "/export/csv?start_time=2024-01-01&end_time=2024-01-31", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	body := w.Body.String()
	// UTF-8 BOM
	assert.True(t, strings.HasPrefix(body, "\xEF\xBB\xBF"))
	assert.Contains(t, body, "金额")
	assert.Contains(t, body, "99.99")
	assert.Contains(t, body, "餐饮")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExportHandler_ExportCSV_MissingRange(t *testing.T) {
	_, db, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExportHandler(db)
	router.GET("/export/csv", h.ExportCSV)

	req := httptest.NewRequest("GET", "/export/csv?start_time=2024-01-01", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)

	req2 := httptest.NewRequest("GET", "/export/csv?start_time=bad&end_time=2024-01-31", nil)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	assert.Equal(t, 400, w2.Code)
}

func TestExportHandler_ExportExcel(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	spentAt := time.Date(2024, 1, 15, 12, 30, 0, 0, time.Local)
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(1, 1, 99.99, "INR", "餐饮", "午餐", "", spentAt, spentAt))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExportHandler(db)
	router.GET("/export/excel", h.ExportExcel)

	req := httptest.NewRequest("GET", "/export/excel?start_time=2024-01-01&end_time=2024-01-31", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	// xlsx 是 zip 容器
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))
	require.NoError(t, mock.ExpectationsWereMet())
}
