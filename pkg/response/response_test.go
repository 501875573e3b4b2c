package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
)

func TestErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Error(c, appErrors.WithDetails(appErrors.ErrUnprocessable, []string{"rooms[0]: empty id"}))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var env struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "UNPROCESSABLE_INPUT", env.Error.Code)
	assert.Equal(t, []string{"rooms[0]: empty id"}, env.Error.Details)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestJSONWithMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	JSON(c, http.StatusOK, []string{"a"}, &Pagination{Page: 1, PageSize: 20, TotalCount: 1}, map[string]interface{}{"cache": "hit"})

	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "hit", env["meta"].(map[string]interface{})["cache"])
	assert.EqualValues(t, 1, env["pagination"].(map[string]interface{})["totalCount"])
}
