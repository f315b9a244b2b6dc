package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/plc-diagram/backend/internal/extract"
	"github.com/plc-diagram/backend/internal/models"
	"github.com/plc-diagram/backend/internal/session"
	"github.com/plc-diagram/backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const apiExport = `<?xml version="1.0" encoding="UTF-8"?>
<RSLogix5000Content SchemaRevision="1.0" TargetName="Line3">
  <Controller Name="Line3">
    <Tags>
      <Tag Name="_A28_PH" TagType="Base" DataType="StateLogic">
        <Comments>
          <Comment Operand=".ST[0].0"><![CDATA[STEP HEADER
Idle]]></Comment>
          <Comment Operand=".ST[0].1"><![CDATA[STEP HEADER
Running]]></Comment>
        </Comments>
        <Data Format="Decorated">
          <Structure DataType="StateLogic">
            <ArrayMember Name="ST" DataType="DINT"/>
          </Structure>
        </Data>
      </Tag>
    </Tags>
    <Programs>
      <Program Name="MainProgram">
        <Routines>
          <Routine Name="S3_Main" Type="RLL">
            <RLLContent>
              <Rung Number="0" Type="N">
                <Text><![CDATA[XIC(Run)OTU(S3_State_Logic_Reset);]]></Text>
              </Rung>
              <Rung Number="1" Type="N">
                <Text><![CDATA[XIC(_A28_PH.ST[0].0)OTU(Scratch);]]></Text>
              </Rung>
              <Rung Number="2" Type="N">
                <Text><![CDATA[XIC(_A28_PH.ST[0].0)XIC(Start)OTL(_A28_PH.ST[0].1);]]></Text>
              </Rung>
              <Rung Number="3" Type="N">
                <Comment><![CDATA[FAULT HANDLING]]></Comment>
              </Rung>
            </RLLContent>
          </Routine>
        </Routines>
      </Program>
    </Programs>
  </Controller>
</RSLogix5000Content>`

type testServer struct {
	echo       *echo.Echo
	store      storage.Store
	sessionMgr *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cache, err := storage.NewResultCache(t.TempDir())
	require.NoError(t, err)

	sessionMgr := session.NewManager(cache, nil)

	deps := &Dependencies{
		Store:             store,
		SessionMgr:        sessionMgr,
		History:           nil,
		Profile:           extract.DefaultProfile(),
		Version:           "test",
		AllowFileDeletion: true,
	}

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	RegisterRoutes(e, NewHandlers(deps), deps)

	return &testServer{echo: e, store: store, sessionMgr: sessionMgr}
}

func (ts *testServer) request(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postJSON(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return ts.request(t, http.MethodPost, path, bytes.NewBuffer(data), echo.MIMEApplicationJSON)
}

func (ts *testServer) uploadBinary(t *testing.T, name, content string) *models.FileInfo {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	rec := ts.request(t, http.MethodPost, "/api/files/upload/binary", &buf, w.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return &info
}

// waitComplete polls the status endpoint until the session settles.
func (ts *testServer) waitComplete(t *testing.T, sessionID string) *models.DiagramSession {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := ts.request(t, http.MethodGet, "/api/diagrams/"+sessionID+"/status", nil, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sess models.DiagramSession
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
		if sess.Status == models.SessionStatusComplete || sess.Status == models.SessionStatusError {
			return &sess
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session did not settle in time")
	return nil
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.Contains(t, body, "uptimeSeconds")
}

func TestUploadBase64(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/api/files/upload", map[string]string{
		"name": "export.L5X",
		"data": base64.StdEncoding.EncodeToString([]byte(apiExport)),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "export.L5X", info.Name)
	assert.Equal(t, int64(len(apiExport)), info.Size)
}

func TestUploadBase64Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON(t, "/api/files/upload", map[string]string{"data": "aGk="})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.postJSON(t, "/api/files/upload", map[string]string{
		"name": "export.L5X",
		"data": "%%% not base64 %%%",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadBinaryAndGetFile(t *testing.T) {
	ts := newTestServer(t)

	info := ts.uploadBinary(t, "export.L5X", apiExport)
	assert.NotEmpty(t, info.ID)

	rec := ts.request(t, http.MethodGet, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.request(t, http.MethodGet, "/api/files/unknown-id", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecentFilesFiltersExports(t *testing.T) {
	ts := newTestServer(t)

	ts.uploadBinary(t, "export.L5X", apiExport)
	ts.uploadBinary(t, "notes.txt", "not an export")

	rec := ts.request(t, http.MethodGet, "/api/files/recent", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var files []*models.FileInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "export.L5X", files[0].Name)
}

func TestDeleteAndRenameFile(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "export.L5X", apiExport)

	data, _ := json.Marshal(map[string]string{"name": "renamed.L5X"})
	req := httptest.NewRequest(http.MethodPut, "/api/files/"+info.ID, bytes.NewBuffer(data))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	renameRec := httptest.NewRecorder()
	ts.echo.ServeHTTP(renameRec, req)
	require.Equal(t, http.StatusOK, renameRec.Code)

	var renamed models.FileInfo
	require.NoError(t, json.Unmarshal(renameRec.Body.Bytes(), &renamed))
	assert.Equal(t, "renamed.L5X", renamed.Name)

	delRec := ts.request(t, http.MethodDelete, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	getRec := ts.request(t, http.MethodGet, "/api/files/"+info.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestGenerateHappyPath(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "export.L5X", apiExport)

	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{
		"fileId":  info.ID,
		"grammar": "flowchart",
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var sess models.DiagramSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)

	done := ts.waitComplete(t, sess.ID)
	require.Equal(t, models.SessionStatusComplete, done.Status, done.Error)
	assert.Equal(t, 2, done.StateCount)
	assert.Equal(t, 1, done.TransitionCount)

	// Markdown document
	mdRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/markdown", nil, "")
	require.Equal(t, http.StatusOK, mdRec.Code)
	md := mdRec.Body.String()
	assert.True(t, strings.HasPrefix(md, "# State Logic Diagram\n\n```mermaid\n"), md)
	assert.Contains(t, md, "flowchart TB")
	assert.Contains(t, md, "S0[State 0, Idle]")
	assert.Contains(t, md, "S0 ==> S1")

	// JSON result
	jsonRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/result", nil, "")
	require.Equal(t, http.StatusOK, jsonRec.Code)

	var result models.DiagramResult
	require.NoError(t, json.Unmarshal(jsonRec.Body.Bytes(), &result))
	assert.Equal(t, []int{0, 1}, result.States)
	assert.Equal(t, "_A28_PH", result.Tag)
	assert.Equal(t, "S3_Main", result.Routine)

	// Msgpack result decodes to the same thing
	mpRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/result/msgpack", nil, "")
	require.Equal(t, http.StatusOK, mpRec.Code)
	assert.Equal(t, "application/msgpack", mpRec.Header().Get(echo.HeaderContentType))

	var mpResult models.DiagramResult
	require.NoError(t, msgpack.Unmarshal(mpRec.Body.Bytes(), &mpResult))
	assert.Equal(t, result.Diagram, mpResult.Diagram)
}

func TestGenerateStateGrammar(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "export.L5X", apiExport)

	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{
		"fileId":  info.ID,
		"grammar": "state",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.DiagramSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	done := ts.waitComplete(t, sess.ID)
	require.Equal(t, models.SessionStatusComplete, done.Status, done.Error)

	mdRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/markdown", nil, "")
	assert.Contains(t, mdRec.Body.String(), "stateDiagram-v2")
}

func TestGenerateValidation(t *testing.T) {
	ts := newTestServer(t)

	// Missing fileId
	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown grammar
	info := ts.uploadBinary(t, "export.L5X", apiExport)
	rec = ts.postJSON(t, "/api/diagrams", map[string]interface{}{
		"fileId":  info.ID,
		"grammar": "sequence",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown file
	rec = ts.postJSON(t, "/api/diagrams", map[string]interface{}{"fileId": "no-such-file"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateInvalidDocumentMapping(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "broken.L5X", "<NotAnExport/>")

	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{"fileId": info.ID})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.DiagramSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	done := ts.waitComplete(t, sess.ID)
	require.Equal(t, models.SessionStatusError, done.Status)
	assert.Equal(t, "INVALID_DOCUMENT", done.ErrorCode)

	// Result endpoints surface the failure class as 422.
	resRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/result", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, resRec.Code)

	var apiErr APIError
	require.NoError(t, json.Unmarshal(resRec.Body.Bytes(), &apiErr))
	assert.Equal(t, "INVALID_DOCUMENT", apiErr.Code)
}

func TestSessionEndpointsUnknownID(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/api/diagrams/unknown/status",
		"/api/diagrams/unknown/markdown",
		"/api/diagrams/unknown/result",
	} {
		rec := ts.request(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec := ts.request(t, http.MethodPost, "/api/diagrams/unknown/keepalive", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionKeepAlive(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "export.L5X", apiExport)

	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{"fileId": info.ID})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.DiagramSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	ts.waitComplete(t, sess.ID)

	kaRec := ts.request(t, http.MethodPost, "/api/diagrams/"+sess.ID+"/keepalive", nil, "")
	assert.Equal(t, http.StatusNoContent, kaRec.Code)
}

func TestRecentGenerationsWithoutHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.request(t, http.MethodGet, "/api/diagrams/recent", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestDeleteFileDropsSessions(t *testing.T) {
	ts := newTestServer(t)
	info := ts.uploadBinary(t, "export.L5X", apiExport)

	rec := ts.postJSON(t, "/api/diagrams", map[string]interface{}{"fileId": info.ID})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sess models.DiagramSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	ts.waitComplete(t, sess.ID)

	delRec := ts.request(t, http.MethodDelete, "/api/files/"+info.ID, nil, "")
	require.Equal(t, http.StatusNoContent, delRec.Code)

	statusRec := ts.request(t, http.MethodGet, "/api/diagrams/"+sess.ID+"/status", nil, "")
	assert.Equal(t, http.StatusNotFound, statusRec.Code)
}
