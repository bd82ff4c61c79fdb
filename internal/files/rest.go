package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dmitrijs2005/baaskit/internal/apierror"
	"github.com/dmitrijs2005/baaskit/internal/common"
	"github.com/dmitrijs2005/baaskit/internal/config"
	"github.com/dmitrijs2005/baaskit/internal/controllers"
	"github.com/dmitrijs2005/baaskit/internal/rest"
)

// Uploader posts a streamed body and returns the JSON answer.
type Uploader interface {
	Upload(ctx context.Context, url string, body io.Reader, headers http.Header) (*controllers.Response, error)
}

// RESTFileController uploads chosen content as multipart form data to the
// server's files endpoint.
type RESTFileController struct {
	cfg      *config.Config
	registry *controllers.Registry
	chooser  Chooser
	uploader Uploader
}

func NewRESTFileController(cfg *config.Config, reg *controllers.Registry, chooser Chooser, uploader Uploader) *RESTFileController {
	return &RESTFileController{cfg: cfg, registry: reg, chooser: chooser, uploader: uploader}
}

func (c *RESTFileController) SaveFile(ctx context.Context, name string) (*controllers.SavedFile, error) {
	if !ValidName(name) {
		return nil, apierror.New(apierror.InvalidFileName, "Filename contains invalid characters.")
	}

	content, err := c.chooser.Choose(ctx, name)
	if err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}
	defer content.Close()

	body, contentType, err := multipartBody(name, content)
	if err != nil {
		return nil, apierror.New(apierror.FileSaveError, err.Error())
	}

	headers, err := c.headers(ctx)
	if err != nil {
		return nil, err
	}
	headers.Set(common.ContentTypeHeader, contentType)

	url := rest.JoinURL(c.cfg.ServerURL, "files/"+name)
	resp, err := c.uploader.Upload(ctx, url, body, headers)
	if err != nil {
		return nil, apierror.Normalize(err)
	}

	var saved controllers.SavedFile
	if err := json.Unmarshal(resp.Body, &saved); err != nil {
		return nil, apierror.New(apierror.InvalidJSON, "Received an error with invalid JSON from server: "+string(resp.Body))
	}
	if saved.Name == "" || saved.URL == "" {
		return nil, apierror.New(apierror.FileSaveError, "server response is missing name or url")
	}
	return &saved, nil
}

func (c *RESTFileController) headers(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set(common.ApplicationIDHeader, c.cfg.ApplicationID)
	switch {
	case c.cfg.UseMasterKey:
		if c.cfg.MasterKey == "" {
			return nil, common.ErrMasterKeyNotProvided
		}
		h.Set(common.MasterKeyHeader, c.cfg.MasterKey)
	case c.cfg.JavaScriptKey != "":
		h.Set(common.JavaScriptKeyHeader, c.cfg.JavaScriptKey)
	}

	uc, err := c.registry.UserController()
	if errors.Is(err, controllers.ErrNotConfigured) {
		return h, nil
	}
	if err != nil {
		return nil, err
	}
	u, err := uc.CurrentUser(ctx)
	if err != nil {
		return nil, apierror.Normalize(err)
	}
	if u != nil && u.SessionToken() != "" {
		h.Set(common.SessionTokenHeader, u.SessionToken())
	}
	return h, nil
}

func multipartBody(name string, content io.Reader) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(name, filepath.Base(name))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
