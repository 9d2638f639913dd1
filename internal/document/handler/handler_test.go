package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codraft/codraft/internal/document"
	"github.com/codraft/codraft/internal/document/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter() (*gin.Engine, *service.Service) {
	gin.SetMode(gin.TestMode)
	svc := service.NewMemoryService()
	r := gin.New()
	RegisterDocumentRoutes(r.Group("/api/document"), svc)
	return r, svc
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndFetchDocument(t *testing.T) {
	r, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1","content":""}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Versions, 1)

	w = doJSON(t, r, http.MethodGet, "/api/document/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/document/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDuplicateTitleConflict(t *testing.T) {
	r, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w = doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1"}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateAppendsVersion(t *testing.T) {
	r, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1","content":""}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPut, "/api/document/"+created.ID, `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var updated document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Equal(t, "hello", updated.Content)
	require.Len(t, updated.Versions, 2)

	// identical save: no version growth
	w = doJSON(t, r, http.MethodPut, "/api/document/"+created.ID, `{"content":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.Len(t, updated.Versions, 2)
}

func TestVersionsEndpoint(t *testing.T) {
	r, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1","content":"a"}`)
	var created document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	doJSON(t, r, http.MethodPut, "/api/document/"+created.ID, `{"content":"b"}`)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/document/%s/versions", created.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	var vs []document.Version
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &vs))
	require.Len(t, vs, 2)
}

func TestRevertEndpoint(t *testing.T) {
	r, _ := newTestRouter()

	w := doJSON(t, r, http.MethodPost, "/api/document", `{"title":"Doc1","content":""}`)
	var created document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	doJSON(t, r, http.MethodPut, "/api/document/"+created.ID, `{"content":"hello"}`)

	// index 0 is valid even though it is falsy JSON
	w = doJSON(t, r, http.MethodPost, "/api/document/"+created.ID+"/revert", `{"versionIndex":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	var reverted document.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reverted))
	require.Equal(t, "", reverted.Content)
	require.Len(t, reverted.Versions, 3)

	w = doJSON(t, r, http.MethodPost, "/api/document/"+created.ID+"/revert", `{"versionIndex":99}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/document/unknown/revert", `{"versionIndex":0}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}
