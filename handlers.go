package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"videonotes-site/analysis"
	"videonotes-site/config"
	"videonotes-site/runs"
)

func homeHandler(c echo.Context) error {
	return c.Render(http.StatusOK, "home.html", nil)
}

func statusForValidation(err error) int {
	switch {
	case errors.Is(err, analysis.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func sourceDisplayName(src *analysis.Source) string {
	if src.Kind == analysis.SourceRemote {
		return src.URL
	}
	return src.Name
}

// analyzePostHandler runs one analysis and streams its events back as NDJSON,
// one record per line, flushed as they happen. The last line is a result or
// error record; a client disconnect cancels the run via the request context
// and nothing terminal is written.
func analyzePostHandler(c echo.Context) error {
	sessionID := c.Get("session_id").(string)

	formURL := c.FormValue("url")
	var src *analysis.Source
	if fileHeader, ferr := c.FormFile("video"); ferr == nil && fileHeader != nil {
		f, ferr := fileHeader.Open()
		if ferr != nil {
			return c.String(http.StatusBadRequest, "Error: could not read uploaded file")
		}
		defer f.Close()
		var verr error
		src, verr = analysis.PrepareSource(formURL, f, fileHeader.Filename,
			fileHeader.Header.Get("Content-Type"), fileHeader.Size)
		if verr != nil {
			return c.String(statusForValidation(verr), fmt.Sprintf("Error: %v", verr))
		}
	} else {
		var verr error
		src, verr = analysis.PrepareSource(formURL, nil, "", "", 0)
		if verr != nil {
			return c.String(statusForValidation(verr), fmt.Sprintf("Error: %v", verr))
		}
	}

	token := generateToken()
	run := &runs.Run{
		Token:      token,
		SessionID:  sessionID,
		SourceKind: string(src.Kind),
		SourceName: sourceDisplayName(src),
		SizeBytes:  src.SizeBytes,
		ModelID:    config.GetModelID(),
	}
	if err := runs.Create(run); err != nil {
		log.Errorf("Error creating run record: %v", err)
		return c.String(http.StatusInternalServerError, "Error: could not record run")
	}

	progress := func(sent, total int64) {
		progressManager.Update(token, sent, total)
	}
	defer progressManager.Remove(token)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "application/x-ndjson")
	res.Header().Set("X-Run-Token", token)
	res.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(res)

	terminal := false
	for ev := range orch.Run(c.Request().Context(), src, progress) {
		switch ev.Type {
		case analysis.EventUploadStart:
			runs.SetStatus(token, runs.StatusUploading)
		case analysis.EventFileProcessing:
			if ev.Attempt == 1 {
				runs.SetStatus(token, runs.StatusProcessing)
			}
		case analysis.EventGenerateStart:
			runs.SetStatus(token, runs.StatusGenerating)
		case analysis.EventResult:
			terminal = true
			runs.Complete(token, ev.Result)
		case analysis.EventError:
			terminal = true
			runs.Fail(token, ev.Error)
		}

		if err := enc.Encode(ev); err != nil {
			// client went away, the context cancellation tears the run down
			break
		}
		res.Flush()
	}

	if !terminal {
		runs.SetStatus(token, runs.StatusCanceled)
	}
	return nil
}

func progressHandler(c echo.Context) error {
	token := c.Param("token")
	p, ok := progressManager.Get(token)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no active upload"})
	}
	return c.JSON(http.StatusOK, p)
}

func runsHandler(c echo.Context) error {
	sessionID := c.Get("session_id").(string)
	list, err := runs.ForSession(sessionID)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error retrieving runs")
	}
	return c.Render(http.StatusOK, "runs.html", map[string]interface{}{
		"Runs": list,
	})
}

func runHandler(c echo.Context) error {
	token := c.Param("token")
	run, err := runs.Get(token)
	if err != nil || run.SessionID != c.Get("session_id").(string) {
		return c.String(http.StatusNotFound, "no such run")
	}
	return c.Render(http.StatusOK, "run.html", map[string]interface{}{
		"Run":   run,
		"Notes": run.NoteList(),
	})
}

func deleteRunHandler(c echo.Context) error {
	token := c.Param("token")
	sessionID := c.Get("session_id").(string)
	if err := runs.Delete(token, sessionID); err != nil {
		return c.String(http.StatusInternalServerError, "Error deleting run")
	}
	return c.Redirect(http.StatusSeeOther, "/runs")
}
