package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryledger/internal/handlers"
	"libraryledger/internal/services"
	"libraryledger/internal/testutil"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	router := gin.New()
	handlers.RegisterRoutes(router, services.New(db, services.WithClock(testutil.Clock)))
	return &apiClient{t: t, router: router}
}

// do sends a request and decodes the JSON response body into out when given.
func (a *apiClient) do(method, path string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

type idBody struct {
	ID string `json:"id"`
}

type bookBody struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	TotalQuantity int    `json:"total_quantity"`
	Available     int    `json:"available"`
	IsActive      bool   `json:"is_active"`
	LoanCount     int64  `json:"loan_count"`
}

type loanBody struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	DueDate    string  `json:"due_date"`
	ReturnDate *string `json:"return_date"`
	Fine       int64   `json:"fine"`
}

type transitionBody struct {
	Loan           loanBody `json:"loan"`
	AvailableDelta int      `json:"available_delta"`
}

type errorBody struct {
	Error string `json:"error"`
}

// library creates one category, one book with the given stock and one reader.
func (a *apiClient) library(total, available int) (bookID, readerID string) {
	a.t.Helper()
	var category, book, reader idBody
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/categories", gin.H{"name": "Văn học"}, &category))
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/books", gin.H{
		"code": "VH002", "title": "Số Đỏ", "category_id": category.ID,
		"author": "Vũ Trọng Phụng", "publisher": "NXB Văn học", "price": 100000,
		"total_quantity": total, "available": available,
	}, &book))
	require.Equal(a.t, http.StatusCreated, a.do(http.MethodPost, "/readers", gin.H{
		"card_id": "BD002", "full_name": "Trần Thị B", "phone": "0912345678",
	}, &reader))
	return book.ID, reader.ID
}

func Test_Health(t *testing.T) {
	api := newAPI(t)

	assert.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", nil, nil))
}

func Test_LoanLifecycle(t *testing.T) {
	// arrange
	api := newAPI(t)
	bookID, readerID := api.library(3, 3)

	// act: borrow
	var created transitionBody
	code := api.do(http.MethodPost, "/loans", gin.H{
		"reader_id": readerID, "book_id": bookID,
		"borrow_date": "2026-01-01", "due_date": "2026-01-07",
	}, &created)

	// assert
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "borrowing", created.Loan.Status)
	assert.Equal(t, -1, created.AvailableDelta)
	assert.Zero(t, created.Loan.Fine)

	var book bookBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/books/"+bookID, nil, &book))
	assert.Equal(t, 2, book.Available)

	// act: late return
	var returned transitionBody
	code = api.do(http.MethodPatch, "/loans/"+created.Loan.ID, gin.H{
		"status": "returned", "return_date": "2026-01-10",
	}, &returned)

	// assert
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, returned.AvailableDelta)
	assert.Equal(t, int64(3000), returned.Loan.Fine)
	require.NotNil(t, returned.Loan.ReturnDate)

	var fetched loanBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/loans/"+created.Loan.ID, nil, &fetched))
	assert.Equal(t, int64(3000), fetched.Fine)

	var history []loanBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/readers/"+readerID+"/loans", nil, &history))
	assert.Len(t, history, 1)

	var all []bookBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/books/all", nil, &all))
	require.Len(t, all, 1)
	assert.Equal(t, int64(1), all[0].LoanCount)
	assert.Equal(t, 3, all[0].Available)
}

func Test_ErrorMapping(t *testing.T) {
	api := newAPI(t)
	bookID, readerID := api.library(1, 0)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "exhausted", method: http.MethodPost, path: "/loans", body: gin.H{"reader_id": readerID, "book_id": bookID}, want: http.StatusConflict},
		{name: "bad_id", method: http.MethodGet, path: "/books/not-a-uuid", want: http.StatusBadRequest},
		{name: "bad_date", method: http.MethodPost, path: "/loans", body: gin.H{"reader_id": readerID, "book_id": bookID, "borrow_date": "01/02/2026"}, want: http.StatusBadRequest},
		{name: "bad_status", method: http.MethodPost, path: "/loans", body: gin.H{"reader_id": readerID, "book_id": bookID, "status": "lost"}, want: http.StatusBadRequest},
		{name: "missing_loan", method: http.MethodGet, path: "/loans/7f1c7a3e-0b55-4c1d-9a0e-6f1a2b3c4d5e", want: http.StatusNotFound},
		{name: "missing_reader", method: http.MethodGet, path: "/readers/7f1c7a3e-0b55-4c1d-9a0e-6f1a2b3c4d5e", want: http.StatusNotFound},
		{name: "duplicate_card", method: http.MethodPost, path: "/readers", body: gin.H{"card_id": "BD002", "full_name": "X", "phone": "1"}, want: http.StatusConflict},
		{name: "counters_out_of_range", method: http.MethodPatch, path: "/books/" + bookID, body: gin.H{"available": 2}, want: http.StatusUnprocessableEntity},
		{name: "bad_unpaid_flag", method: http.MethodGet, path: "/damages?unpaid=yes", want: http.StatusBadRequest},
		{name: "missing_body_field", method: http.MethodPost, path: "/categories", body: gin.H{}, want: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body errorBody
			code := api.do(tc.method, tc.path, tc.body, &body)

			assert.Equal(t, tc.want, code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func Test_DamageEndpoints(t *testing.T) {
	// arrange
	api := newAPI(t)
	bookID, readerID := api.library(1, 1)
	var loan transitionBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/loans", gin.H{"reader_id": readerID, "book_id": bookID}, &loan))

	// act
	var rec struct {
		Damage struct {
			ID              string `json:"id"`
			CompensationFee int64  `json:"compensation_fee"`
		} `json:"damage"`
		TotalDelta int `json:"total_delta"`
	}
	code := api.do(http.MethodPost, "/damages", gin.H{"loan_id": loan.Loan.ID, "damage_type": "lost"}, &rec)

	// assert
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, int64(200000), rec.Damage.CompensationFee)
	assert.Equal(t, -1, rec.TotalDelta)

	var again errorBody
	assert.Equal(t, http.StatusConflict,
		api.do(http.MethodPost, "/damages", gin.H{"loan_id": loan.Loan.ID, "damage_type": "lost"}, &again))

	var unknownType errorBody
	assert.Equal(t, http.StatusBadRequest,
		api.do(http.MethodPost, "/damages", gin.H{"loan_id": loan.Loan.ID, "damage_type": "burnt"}, &unknownType))

	var paid struct {
		IsPaid bool `json:"is_paid"`
	}
	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/damages/"+rec.Damage.ID, gin.H{"is_paid": true}, &paid))
	assert.True(t, paid.IsPaid)

	var unpaid []idBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/damages?unpaid=true", nil, &unpaid))
	assert.Empty(t, unpaid)
}

func Test_ReservationEndpoints(t *testing.T) {
	// arrange
	api := newAPI(t)
	bookID, readerID := api.library(1, 1)
	var waiting idBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/readers", gin.H{
		"card_id": "BD003", "full_name": "Lê Văn C", "phone": "0923456789",
	}, &waiting))

	var body errorBody
	assert.Equal(t, http.StatusConflict,
		api.do(http.MethodPost, "/books/"+bookID+"/reservations", gin.H{"reader_id": waiting.ID}, &body))

	var loan transitionBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/loans", gin.H{"reader_id": readerID, "book_id": bookID}, &loan))

	// act
	var res struct {
		ID            string `json:"id"`
		QueuePosition int    `json:"queue_position"`
	}
	code := api.do(http.MethodPost, "/books/"+bookID+"/reservations", gin.H{"reader_id": waiting.ID}, &res)

	// assert
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, 1, res.QueuePosition)

	var queue []idBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/books/"+bookID+"/reservations", nil, &queue))
	assert.Len(t, queue, 1)

	require.Equal(t, http.StatusOK, api.do(http.MethodPatch, "/loans/"+loan.Loan.ID, gin.H{"status": "returned"}, nil))

	var fulfilled transitionBody
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/reservations/"+res.ID+"/fulfill", nil, &fulfilled))
	assert.Equal(t, "borrowing", fulfilled.Loan.Status)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/reservations/"+res.ID, nil, &body))
}

func Test_BookSoftDelete(t *testing.T) {
	api := newAPI(t)
	bookID, readerID := api.library(2, 2)

	var book bookBody
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/books/"+bookID+"/deactivate", nil, &book))
	assert.False(t, book.IsActive)

	var active []bookBody
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/books", nil, &active))
	assert.Empty(t, active)

	var body errorBody
	assert.Equal(t, http.StatusNotFound,
		api.do(http.MethodPost, "/loans", gin.H{"reader_id": readerID, "book_id": bookID}, &body))

	assert.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/books/"+bookID, nil, nil))
}
