package file

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abduss/mediahost/internal/auth"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(env *testEnv, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		auth.SetUser(c, auth.ContextUser{ID: userID.String()})
		c.Next()
	})
	RegisterRoutes(r.Group("/v1"), env.service)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestPresignAndConfirmOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	r := newTestRouter(env, env.owner)
	base := "/v1/projects/" + env.project.ID.String()

	rr := doJSON(t, r, http.MethodPost, base+"/uploads/presign", map[string]any{
		"fileName":    "cat.png",
		"contentType": "image/png",
		"fileSize":    2048,
		"width":       64,
		"height":      64,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var presigned struct {
		PresignedURL string    `json:"presignedUrl"`
		ObjectName   string    `json:"objectName"`
		ObjectURL    string    `json:"objectUrl"`
		FileID       uuid.UUID `json:"fileId"`
		ExpiresAt    string    `json:"expiresAt"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &presigned))
	assert.NotEmpty(t, presigned.PresignedURL)
	_, err := time.Parse(time.RFC3339, presigned.ExpiresAt)
	assert.NoError(t, err)

	env.adapter.Put(presigned.ObjectName, encodeImage(t, 64, 64, imaging.PNG))

	rr = doJSON(t, r, http.MethodPost, base+"/uploads/confirm", map[string]any{
		"fileId":      presigned.FileID,
		"objectName":  presigned.ObjectName,
		"fileName":    "cat.png",
		"contentType": "image/png",
		"fileSize":    2048,
		"variants":    []map[string]string{{"sizeLabel": "max32", "format": "webp"}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var confirmed ConfirmResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &confirmed))
	assert.Equal(t, StatusCompleted, confirmed.File.Status)
	require.Len(t, confirmed.File.Variants, 2)
	assert.Equal(t, 32, confirmed.File.Variants[1].Width)
	require.NotNil(t, confirmed.Thumbnail)

	rr = doJSON(t, r, http.MethodGet, base+"/files", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), presigned.FileID.String())

	rr = doJSON(t, r, http.MethodDelete, base+"/files/"+presigned.FileID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, env.adapter.Objects())
}

func TestHTTPErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	env.quota.usage = 9 * mb
	env.quota.limit = 10 * mb
	r := newTestRouter(env, env.owner)
	base := "/v1/projects/" + env.project.ID.String()

	pending := env.presign(t, PresignInput{FileName: "a.txt", ContentType: "text/plain", FileSize: 1})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "validation",
			method:     http.MethodPost,
			path:       base + "/uploads/presign",
			body:       map[string]any{"fileName": "../x.txt", "contentType": "text/plain", "fileSize": 1},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "quota",
			method:     http.MethodPost,
			path:       base + "/uploads/presign",
			body:       map[string]any{"fileName": "big.txt", "contentType": "text/plain", "fileSize": 2 * mb},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "QUOTA_EXCEEDED",
		},
		{
			name:       "foreign project",
			method:     http.MethodPost,
			path:       "/v1/projects/" + uuid.NewString() + "/uploads/presign",
			body:       map[string]any{"fileName": "a.txt", "contentType": "text/plain", "fileSize": 1},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:   "bad variant label",
			method: http.MethodPost,
			path:   base + "/uploads/confirm",
			body: map[string]any{
				"fileId": pending.FileID, "objectName": pending.ObjectName, "fileName": "a.txt", "contentType": "text/plain",
				"variants": []map[string]string{{"sizeLabel": "huge", "format": "webp"}},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:   "upload incomplete",
			method: http.MethodPost,
			path:   base + "/uploads/confirm",
			body: map[string]any{
				"fileId": pending.FileID, "objectName": pending.ObjectName, "fileName": "a.txt", "contentType": "text/plain",
			},
			wantStatus: http.StatusConflict,
			wantCode:   "UPLOAD_INCOMPLETE",
		},
		{
			name:       "pending file is hidden",
			method:     http.MethodGet,
			path:       base + "/files/" + pending.FileID.String(),
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, r, tc.method, tc.path, tc.body)
			require.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tc.wantCode, body["code"])
			if tc.wantCode == "QUOTA_EXCEEDED" {
				assert.EqualValues(t, mb, body["remaining"])
			}
		})
	}
}
