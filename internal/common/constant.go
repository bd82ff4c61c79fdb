// Package common contains shared constants and sentinel errors used across
// baaskit components.
package common

// Header names understood by the backend. The application id header is sent
// on every request; the key headers are mutually exclusive in practice.
const (
	ApplicationIDHeader = "X-Parse-Application-Id"
	JavaScriptKeyHeader = "X-Parse-JavaScript-Key"
	MasterKeyHeader     = "X-Parse-Master-Key"
	SessionTokenHeader  = "X-Parse-Session-Token"
	JobStatusIDHeader   = "X-Parse-Job-Status-Id"
	ContentTypeHeader   = "Content-Type"
	ContentTypeJSON     = "application/json"
)

// ClientVersionPrefix is prepended to the configured semantic version when it
// is reported to the server as _ClientVersion.
const ClientVersionPrefix = "go"

// StorageKey returns the namespaced storage path used for per-application
// values, e.g. StorageKey("app", "installationId") = "Parse/app/installationId".
func StorageKey(applicationID, name string) string {
	return "Parse/" + applicationID + "/" + name
}
