package config

import (
	"flag"
	"io"
)

// parseFlags populates Config fields from command-line flags and returns the
// remaining positional arguments.
//
// Supported flags:
//
//	-app string        application id
//	-js-key string     client (JavaScript) key
//	-master-key string master key
//	-s string          server URL
//	-use-master-key    send the master key by default
//	-revocable         force revocable sessions
//	-transport string  http | grpc
//	-storage string    memory | sqlite | postgres | redis
//	-dsn string        storage DSN
//	-files string      rest | s3
//	-log-level string  debug | info | warn | error
//	-metrics           print request metrics to stderr on exit
//
// -c/-config is accepted and ignored here; parseFile handles it.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("baas", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var ignored string
	fs.StringVar(&ignored, "c", "", "config file (short)")
	fs.StringVar(&ignored, "config", "", "config file")

	fs.StringVar(&cfg.ApplicationID, "app", cfg.ApplicationID, "application id")
	fs.StringVar(&cfg.JavaScriptKey, "js-key", cfg.JavaScriptKey, "client key")
	fs.StringVar(&cfg.MasterKey, "master-key", cfg.MasterKey, "master key")
	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "server URL")
	fs.BoolVar(&cfg.UseMasterKey, "use-master-key", cfg.UseMasterKey, "use the master key by default")
	fs.BoolVar(&cfg.ForceRevocableSession, "revocable", cfg.ForceRevocableSession, "force revocable sessions")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "transport adapter: http or grpc")
	fs.StringVar(&cfg.GRPCEndpoint, "grpc", cfg.GRPCEndpoint, "gRPC gateway address")
	fs.StringVar(&cfg.Storage, "storage", cfg.Storage, "storage adapter: memory, sqlite, postgres or redis")
	fs.StringVar(&cfg.StorageDSN, "dsn", cfg.StorageDSN, "storage DSN")
	fs.StringVar(&cfg.Files, "files", cfg.Files, "file adapter: rest or s3")
	fs.StringVar(&cfg.FilesDir, "files-dir", cfg.FilesDir, "directory files are chosen from")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.PrintMetrics, "metrics", cfg.PrintMetrics, "print request metrics on exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
