package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gowebpki/jcs"

	"github.com/dmitrijs2005/baaskit/internal/common"
)

// Reserved payload keys. A value set by the pipeline wins over a same-named
// caller field.
const (
	fieldMethod           = "_method"
	fieldApplicationID    = "_ApplicationId"
	fieldJavaScriptKey    = "_JavaScriptKey"
	fieldClientVersion    = "_ClientVersion"
	fieldMasterKey        = "_MasterKey"
	fieldRevocableSession = "_RevocableSession"
	fieldInstallationID   = "_InstallationId"
	fieldSessionToken     = "_SessionToken"
)

// Payload is the body of one outgoing request: the caller's fields plus the
// identity fields the pipeline injects. It is built fresh for every call.
type Payload struct {
	Fields map[string]any

	Method           string
	ApplicationID    string
	JavaScriptKey    string
	ClientVersion    string
	MasterKey        string
	RevocableSession string
	InstallationID   string
	SessionToken     string
}

func newPayload(data map[string]any) *Payload {
	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[k] = v
	}
	return &Payload{Fields: fields}
}

// Map flattens the payload into a single JSON object. _ApplicationId and
// _ClientVersion are always set; the other reserved fields replace a caller
// field only when the pipeline has a value for them. The client key is
// removed whenever the master key is used.
func (p *Payload) Map() map[string]any {
	m := make(map[string]any, len(p.Fields)+8)
	for k, v := range p.Fields {
		m[k] = v
	}
	put := func(key, value string) {
		if value != "" {
			m[key] = value
		}
	}
	put(fieldMethod, p.Method)
	m[fieldApplicationID] = p.ApplicationID
	put(fieldJavaScriptKey, p.JavaScriptKey)
	m[fieldClientVersion] = p.ClientVersion
	if p.MasterKey != "" {
		delete(m, fieldJavaScriptKey)
		m[fieldMasterKey] = p.MasterKey
	}
	put(fieldRevocableSession, p.RevocableSession)
	put(fieldInstallationID, p.InstallationID)
	put(fieldSessionToken, p.SessionToken)
	return m
}

// Encode serializes the payload as RFC 8785 canonical JSON.
func (p *Payload) Encode() ([]byte, error) {
	raw, err := json.Marshal(p.Map())
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	return canonical, nil
}

// Headers mirrors the identity fields at the HTTP level. The client key
// header is only sent when the client key survived master-key resolution.
func (p *Payload) Headers() http.Header {
	h := http.Header{}
	h.Set(common.ContentTypeHeader, common.ContentTypeJSON)
	h.Set(common.ApplicationIDHeader, p.ApplicationID)
	if p.MasterKey != "" {
		h.Set(common.MasterKeyHeader, p.MasterKey)
	} else if p.JavaScriptKey != "" {
		h.Set(common.JavaScriptKeyHeader, p.JavaScriptKey)
	}
	return h
}
