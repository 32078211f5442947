package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"expeapp/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUserIDMiddleware(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func newTestReceiptStore(t *testing.T) *service.ReceiptStore {
	store, err := service.NewReceiptStore(t.TempDir())
	require.NoError(t, err)
	return store
}

var expenseRows = []string{"id", "user_id", "amount", "currency", "category", "description", "ocr_text", "spent_at", "created_at"}

// multipartBody 构造 multipart 表单，fileName 为空时不附带文件
func multipartBody(t *testing.T, fields map[string]string, fileName string, fileData []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = fw.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestExpenseHandler_Create(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.POST("/expenses", h.Create)

	body, contentType := multipartBody(t, map[string]string{
		"amount":      "99.99",
		"category":    "餐饮",
		"description": "午餐",
		"spent_at":    "2024-01-15T12:30:00",
	}, "", nil)
	req := httptest.NewRequest("POST", "/expenses", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 99.99, resp["amount"])
	assert.Equal(t, "餐饮", resp["category"])
	// 未传币种时使用默认值
	assert.Equal(t, "INR", resp["currency"])
	// 无票据时 receipt_images 为空数组而不是 null
	assert.Equal(t, []interface{}{}, resp["receipt_images"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_WithImage(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	store := newTestReceiptStore(t)

	// 消费记录与票据行在同一事务内
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `expenses`").
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectExec("INSERT INTO `receipt_images`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, store)
	router.POST("/expenses", h.Create)

	imageData := []byte("fake-png-bytes")
	body, contentType := multipartBody(t, map[string]string{
		"amount": "120.50",
	}, "bill.png", imageData)
	req := httptest.NewRequest("POST", "/expenses", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	images := resp["receipt_images"].([]interface{})
	require.Len(t, images, 1)
	relPath := images[0].(map[string]interface{})["file_path"].(string)
	assert.Contains(t, relPath, "user1_exp5_")
	assert.Contains(t, relPath, "bill.png")

	// 文件已落盘且内容一致
	absPath, err := store.Resolve(relPath)
	require.NoError(t, err)
	saved, err := os.ReadFile(absPath)
	require.NoError(t, err)
	assert.Equal(t, imageData, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Create_InvalidAmount(t *testing.T) {
	_, db, cleanup := setupMockDB(t)
	defer cleanup()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.POST("/expenses", h.Create)

	for _, amount := range []string{"", "0", "-5", "abc"} {
		fields := map[string]string{}
		if amount != "" {
			fields["amount"] = amount
		}
		body, contentType := multipartBody(t, fields, "", nil)
		req := httptest.NewRequest("POST", "/expenses", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, 400, w.Code, "amount=%q", amount)
	}
}

func TestExpenseHandler_List(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(11, 1, 50.0, "INR", "交通", "打车", "", now, now).
			AddRow(10, 1, 99.99, "INR", "餐饮", "午餐", "", now.Add(-time.Hour), now))
	mock.ExpectQuery("SELECT .* FROM `receipt_images`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "file_path", "created_at"}).
			AddRow(3, 11, "receipts/user1_exp11_1_a.png", now))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.GET("/expenses", h.List)

	req := httptest.NewRequest("GET", "/expenses", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, float64(11), resp[0]["id"])
	require.Len(t, resp[0]["receipt_images"], 1)
	// 无票据的记录也返回空数组
	assert.Equal(t, []interface{}{}, resp[1]["receipt_images"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Get_NotOwned(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	// 他人记录与不存在的记录同样返回 404
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(99, 1).
		WillReturnRows(sqlmock.NewRows([]string{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.GET("/expenses/:id", h.Get)

	req := httptest.NewRequest("GET", "/expenses/99", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Update(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	// 先做属主校验
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(3, 1, 50.0, "INR", "交通", "打车", "", now, now))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `expenses`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// 更新后重新加载
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(3, 1, 75.0, "INR", "交通", "", "", now, now))
	mock.ExpectQuery("SELECT .* FROM `receipt_images`").
		WillReturnRows(sqlmock.NewRows([]string{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.PUT("/expenses/:id", h.Update)

	// 整体覆盖：description 未提交则写入空值
	body, contentType := multipartBody(t, map[string]string{
		"amount":   "75",
		"category": "交通",
	}, "", nil)
	req := httptest.NewRequest("PUT", "/expenses/3", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 75.0, resp["amount"])
	assert.Equal(t, "", resp["description"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_Delete(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT .* FROM `expenses`").
		WithArgs(3, 1).
		WillReturnRows(sqlmock.NewRows(expenseRows).
			AddRow(3, 1, 50.0, "INR", "", "", "", now, now))

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM `expenses`").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.DELETE("/expenses/:id", h.Delete)

	req := httptest.NewRequest("DELETE", "/expenses/3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 204, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_GetReceipt(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	store := newTestReceiptStore(t)
	imageData := []byte("receipt-image-bytes")
	relPath, err := store.Save(1, 5, "bill.png", imageData)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .* FROM `receipt_images`").
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "file_path", "created_at"}).
			AddRow(9, 5, relPath, time.Now()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, store)
	router.GET("/expenses/receipt/:imageId", h.GetReceipt)

	req := httptest.NewRequest("GET", "/expenses/receipt/9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, imageData, w.Body.Bytes())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_GetReceipt_NotOwned(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	// 他人的票据：带属主条件的查询查不到
	mock.ExpectQuery("SELECT .* FROM `receipt_images`").
		WithArgs(9, 2).
		WillReturnRows(sqlmock.NewRows([]string{}))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(2))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.GET("/expenses/receipt/:imageId", h.GetReceipt)

	req := httptest.NewRequest("GET", "/expenses/receipt/9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExpenseHandler_GetReceipt_FileMissing(t *testing.T) {
	mock, db, cleanup := setupMockDB(t)
	defer cleanup()

	// 记录存在但磁盘文件缺失，对外仍然是 404
	mock.ExpectQuery("SELECT .* FROM `receipt_images`").
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "expense_id", "file_path", "created_at"}).
			AddRow(9, 5, filepath.Join("receipts", "gone.png"), time.Now()))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(setUserIDMiddleware(1))
	h := NewExpenseHandler(db, newTestReceiptStore(t))
	router.GET("/expenses/receipt/:imageId", h.GetReceipt)

	req := httptest.NewRequest("GET", "/expenses/receipt/9", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
