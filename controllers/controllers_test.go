package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/service-crm-api/middleware"
	"github.com/kendall-kelly/service-crm-api/models"
	"github.com/kendall-kelly/service-crm-api/utils"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *utils.ErrorBody `json:"error"`
}

func init() {
	gin.SetMode(gin.TestMode)
	if err := utils.RegisterValidators(); err != nil {
		panic(err)
	}
}

// serve runs handler for one request, as account when it is not nil
func serve(t *testing.T, method, path, route string, account *models.Account, body any, handler gin.HandlerFunc) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	router := gin.New()
	router.Handle(method, route, func(c *gin.Context) {
		if account != nil {
			middleware.SetCurrentAccount(c, account)
		}
		c.Next()
	}, handler)

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp response
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}
