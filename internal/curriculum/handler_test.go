package curriculum

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListStepsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(NewCatalog([]StepTemplate{
		{Number: 2, Title: "Landing", Phase: PhaseMVP},
		{Number: 1, Title: "Idea", Phase: PhaseMVP},
	})).RegisterRoutes(r.Group("/api"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/steps", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var steps []StepTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &steps))
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, "Idea", steps[0].Title)
}
