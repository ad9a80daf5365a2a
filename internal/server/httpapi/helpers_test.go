package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/dmitrijs2005/mediapub/internal/logging"
	"github.com/dmitrijs2005/mediapub/internal/server/blobstore"
	"github.com/dmitrijs2005/mediapub/internal/server/services"
	"github.com/dmitrijs2005/mediapub/internal/testsupport/memrepo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	m      *memrepo.Manager
	docs   *memrepo.Documents
	blobs  *blobstore.LocalStore
	router *gin.Engine
	tokens *services.DevTokenService
}

func newTestAPI(t *testing.T, limiter LoginLimiter) *testAPI {
	t.Helper()
	blobs, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	log := logging.Discard()
	m := memrepo.New()
	docs := memrepo.NewDocuments()
	sessions := services.NewSessionManager(nil, m, log)

	h := NewHandler(Deps{
		Users:       services.NewUserService(nil, m, sessions, log),
		Sessions:    sessions,
		Credentials: services.NewCredentialValidator(nil, m, sessions, log),
		Ingest:      services.NewIngestCoordinator(nil, m, docs, blobs, log),
		Retrieval:   services.NewRetrievalGateway(nil, m, docs, blobs, log),
		Limiter:     limiter,
		Logger:      log,
	})

	return &testAPI{
		m:      m,
		docs:   docs,
		blobs:  blobs,
		router: h.Router(),
		tokens: services.NewDevTokenService(nil, m, log),
	}
}

func (a *testAPI) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) postJSON(t *testing.T, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return a.do(t, req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[errorResponse](t, w).Error
}

type part struct {
	field       string
	filename    string
	contentType string
	body        string
}

func multipartRequest(t *testing.T, path, token string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		disp := `form-data; name="` + p.field + `"`
		if p.filename != "" {
			disp += `; filename="` + p.filename + `"`
		}
		h.Set("Content-Disposition", disp)
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	return req
}

func filePart(name, body string) part {
	return part{field: fileField, filename: name, contentType: "image/png", body: body}
}

func metaPart(js string) part {
	return part{field: metadataField, body: js}
}

// signupAndLogin registers alice and returns her login response.
func (a *testAPI) signupAndLogin(t *testing.T) loginResponse {
	t.Helper()
	w := a.postJSON(t, "/signup", credentialsRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.postJSON(t, "/login", credentialsRequest{Username: "alice", Password: "password123"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[loginResponse](t, w)
}
