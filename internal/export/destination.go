package export

import (
	"fmt"
	"net/url"
	"strings"

	"sdmx-explorer/internal/config"
)

// ApplyDestination points cfg at dest, which is either a local directory or a
// bucket URI with an optional key prefix:
//
//	exports/nutrition
//	s3://bucket/prefix
//	az://container/prefix
//	abfss://container@account.dfs.core.windows.net/prefix
//	https://account.blob.core.windows.net/container/prefix
//	gs://bucket/prefix
//
// Credentials still come from cfg.
func ApplyDestination(cfg *config.ExportConfig, dest string) error {
	if dest == "" {
		return nil
	}
	if !strings.Contains(dest, "://") {
		cfg.Sink = config.SinkLocal
		cfg.Dir = dest
		return nil
	}

	u, err := url.Parse(dest)
	if err != nil {
		return fmt.Errorf("parse export destination %q: %w", dest, err)
	}
	prefix := strings.Trim(u.Path, "/")

	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return fmt.Errorf("empty bucket in S3 destination %q", dest)
		}
		bucket := u.Host
		cfg.Sink = config.SinkS3
		cfg.S3Bucket = &bucket
	case "gs":
		if u.Host == "" {
			return fmt.Errorf("empty bucket in GCS destination %q", dest)
		}
		cfg.Sink = config.SinkGCS
		cfg.GCSBucket = u.Host
	case "az":
		if u.Host == "" {
			return fmt.Errorf("empty container in Azure destination %q", dest)
		}
		cfg.Sink = config.SinkAzure
		cfg.AzureContainer = u.Host
	case "abfss":
		// Go's url.Parse treats "container" as userinfo and the account host as host.
		if u.User == nil || u.User.Username() == "" {
			return fmt.Errorf("abfss destination %q missing container@account component", dest)
		}
		cfg.Sink = config.SinkAzure
		cfg.AzureContainer = u.User.Username()
		cfg.AzureAccount = strings.SplitN(u.Host, ".", 2)[0]
	case "https":
		if !strings.Contains(u.Host, ".blob.core.windows.net") {
			return fmt.Errorf("unrecognized Azure HTTPS host %q in destination %q", u.Host, dest)
		}
		parts := strings.SplitN(prefix, "/", 2)
		if parts[0] == "" {
			return fmt.Errorf("empty container in Azure destination %q", dest)
		}
		cfg.Sink = config.SinkAzure
		cfg.AzureAccount = strings.SplitN(u.Host, ".", 2)[0]
		cfg.AzureContainer = parts[0]
		prefix = ""
		if len(parts) > 1 {
			prefix = parts[1]
		}
	default:
		return fmt.Errorf("unrecognized export destination scheme %q in %q", u.Scheme, dest)
	}

	cfg.Dir = prefix
	return nil
}
