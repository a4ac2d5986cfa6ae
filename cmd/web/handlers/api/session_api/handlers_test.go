package session_api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// jsonContext builds an echo context for a request carrying a JSON body and
// a :code route parameter. Validation failures short-circuit before any
// collaborator is touched, so these tests pass nil dependencies.
func jsonContext(t *testing.T, method, code, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if code != "" {
		c.SetParamNames("code")
		c.SetParamValues(code)
	}
	return c, rec
}

func requireBadRequest(t *testing.T, err error, rec *httptest.ResponseRecorder) {
	t.Helper()
	if err != nil {
		var httpErr *echo.HTTPError
		require.ErrorAs(t, err, &httpErr)
		require.Equal(t, 400, httpErr.Code)
		return
	}
	require.Equal(t, 400, rec.Code)
}

func TestHandleCreate_Validation(t *testing.T) {
	t.Parallel()
	h := HandleCreate(nil, nil, nil)

	t.Run("missing host name", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "", `{"title":"Sprint 12"}`)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("markup-only host name is rejected", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "", `{"hostName":"<script>alert(1)</script>"}`)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("single-card scale is rejected", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "", `{"hostName":"Hana","storyPointScale":["5"]}`)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("malformed json", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPost, "", `{"hostName":`)
		requireBadRequest(t, h(c), rec)
	})
}

func TestSessionCodeValidation(t *testing.T) {
	t.Parallel()

	// Every :code route rejects malformed codes before touching storage.
	handlers := map[string]echo.HandlerFunc{
		"get":                HandleGet(nil, nil),
		"update":             HandleUpdate(nil, nil),
		"join":               HandleJoin(nil, nil, nil),
		"participant update": HandleParticipantUpdate(nil, nil),
		"participant delete": HandleParticipantDelete(nil, nil),
		"voting update":      HandleVotingUpdate(nil, nil),
		"voting reset":       HandleVotingReset(nil, nil),
		"rounds list":        HandleRoundsList(nil),
		"round save":         HandleRoundSave(nil),
		"verify host":        HandleVerifyHost(nil),
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			c, rec := jsonContext(t, http.MethodPost, "not-a-code", `{}`)
			requireBadRequest(t, h(c), rec)
		})
	}
}

func TestHandleJoin_Validation(t *testing.T) {
	t.Parallel()
	h := HandleJoin(nil, nil, nil)

	c, rec := jsonContext(t, http.MethodPost, "ABCDEFGH", `{"name":""}`)
	requireBadRequest(t, h(c), rec)
}

func TestHandleUpdate_Validation(t *testing.T) {
	t.Parallel()
	h := HandleUpdate(nil, nil)

	t.Run("empty patch", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPatch, "ABCDEFGH", `{}`)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("blank title", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPatch, "ABCDEFGH", `{"title":"   "}`)
		requireBadRequest(t, h(c), rec)
	})
}

func TestHandleVotingUpdate_Validation(t *testing.T) {
	t.Parallel()
	h := HandleVotingUpdate(nil, nil)

	// The limits mirror the column widths in the migrations: anything the
	// validator lets through must also fit in storage.
	t.Run("round description over limit", func(t *testing.T) {
		body := `{"currentRoundDescription":"` + strings.Repeat("a", 2001) + `"}`
		c, rec := jsonContext(t, http.MethodPatch, "ABCDEFGH", body)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("vote average over limit", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPatch, "ABCDEFGH", `{"voteAverage":"12345678901234567"}`)
		requireBadRequest(t, h(c), rec)
	})

	t.Run("final estimate over limit", func(t *testing.T) {
		c, rec := jsonContext(t, http.MethodPatch, "ABCDEFGH", `{"finalEstimate":"12345678901234567"}`)
		requireBadRequest(t, h(c), rec)
	})
}

func TestCleanText_StripsMarkup(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Alice", cleanText("  Alice  "))
	require.Equal(t, "Alice", cleanText("<b>Alice</b>"))
	require.Equal(t, "", cleanText("<script>alert(1)</script>"))
}
