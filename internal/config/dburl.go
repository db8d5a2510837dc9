package config

import (
	"fmt"
	"net/url"
	"strings"

	apperrors "github.com/senzing-garage/stream-loader/pkg/errors"
)

// DatabaseURL is the decomposed form of a SENZING_DATABASE_URL value,
// sufficient to both redact the password for logging and re-render the
// scheme-specific connection string the resolver engine's config JSON
// expects for its SQL.CONNECTION setting.
type DatabaseURL struct {
	Scheme   string
	UserInfo string // "username[:password]", raw (un-escaped)
	Username string
	Password string
	Host     string // "hostname[:port]", raw
	Hostname string
	Port     string
	Path     string // leading-slash path, e.g. "/var/opt/senzing/sqlite/G2C.db"
	Schema   string // Path with leading/trailing slashes trimmed
}

// ParseDatabaseURL decomposes a canonical database URL into its components.
// Unlike the Python original, which substitutes placeholder characters
// around url parsing to dodge edge cases in urllib, Go's net/url handles
// userinfo and path escaping directly, so no such workaround is needed here.
func ParseDatabaseURL(raw string) (*DatabaseURL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.New("DATABASE_URL_PARSE_FAILED", fmt.Sprintf("could not parse database url %q", raw), err)
	}
	if parsed.Scheme == "" {
		return nil, apperrors.New("DATABASE_URL_NO_SCHEME", fmt.Sprintf("database url %q has no scheme", raw), nil)
	}

	result := &DatabaseURL{
		Scheme:   parsed.Scheme,
		Host:     parsed.Host,
		Hostname: parsed.Hostname(),
		Port:     parsed.Port(),
		Path:     parsed.Path,
		Schema:   strings.Trim(parsed.Path, "/"),
	}
	if parsed.User != nil {
		result.UserInfo = parsed.User.String()
		result.Username = parsed.User.Username()
		result.Password, _ = parsed.User.Password()
	}
	return result, nil
}

// String reconstructs the generic (scheme-agnostic) form of the URL,
// reflecting any field mutated since ParseDatabaseURL (e.g. Password
// replaced with a redaction placeholder).
func (d *DatabaseURL) String() string {
	userinfo := d.Username
	if d.Password != "" {
		userinfo = fmt.Sprintf("%s:%s", d.Username, d.Password)
	}
	host := d.Hostname
	if d.Port != "" {
		host = fmt.Sprintf("%s:%s", d.Hostname, d.Port)
	}
	if userinfo == "" {
		return fmt.Sprintf("%s://%s%s", d.Scheme, host, d.Path)
	}
	return fmt.Sprintf("%s://%s@%s%s", d.Scheme, userinfo, host, d.Path)
}

// Specific renders the scheme-specific connection string form the resolver
// engine's configuration expects for its SQL.CONNECTION field, per the
// backend-specific templates in the original implementation.
func (d *DatabaseURL) Specific() (string, error) {
	switch d.Scheme {
	case "mysql":
		return fmt.Sprintf("mysql://%s:%s@%s:%s/?schema=%s", d.Username, d.Password, d.Hostname, d.Port, d.Schema), nil
	case "postgresql":
		return fmt.Sprintf("postgresql://%s:%s@%s:%s:%s/", d.Username, d.Password, d.Hostname, d.Port, d.Schema), nil
	case "db2":
		return fmt.Sprintf("db2://%s:%s@%s", d.Username, d.Password, d.Schema), nil
	case "sqlite3":
		netloc := d.Host
		if d.UserInfo != "" {
			netloc = d.UserInfo + "@" + netloc
		}
		return fmt.Sprintf("sqlite3://%s%s", netloc, d.Path), nil
	case "mssql":
		return fmt.Sprintf("mssql://%s:%s@%s", d.Username, d.Password, d.Schema), nil
	default:
		return "", apperrors.New("DATABASE_URL_UNKNOWN_SCHEME", fmt.Sprintf("unknown database scheme %q in database url", d.Scheme), nil)
	}
}
