package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings содержит типизированный снимок всех опций.
type Settings struct {
	WebRootURL     string
	WebResponder   string
	ListenAddr     string
	DBPath         string
	LogLevel       string
	MailServer     string
	MailPort       int
	MailEncryption string
	MailUsername   string
	MailPassword   string
	MailFrom       string
}

// Settings вычисляет все опции через их функции.
func (s *Store) Settings() Settings {
	port, err := strconv.Atoi(s.value("mail_port"))
	if err != nil {
		port = 25
	}
	return Settings{
		WebRootURL:     s.value("web_root_url"),
		WebResponder:   s.value("web_responder"),
		ListenAddr:     s.value("listen_addr"),
		DBPath:         s.value("db_path"),
		LogLevel:       s.value("log_level"),
		MailServer:     s.value("mail_server"),
		MailPort:       port,
		MailEncryption: s.value("mail_encryption"),
		MailUsername:   s.value("mail_username"),
		MailPassword:   s.value("mail_password"),
		MailFrom:       s.value("mail_from"),
	}
}

func defaultOptions() []Option {
	return []Option{
		{Name: "web_root_url", Doc: "The root URL for this site", Resolve: webRootURL},
		{Name: "web_responder", Doc: "Web responder used for CGI requests; empty selects the only one", Resolve: orDefault("")},
		{Name: "listen_addr", Doc: "Address the development server listens on", Resolve: orDefault("127.0.0.1:8080")},
		{Name: "db_path", Doc: "SQLite file for the invocation history", Resolve: dbPath},
		{Name: "log_level", Doc: "Log level: debug, info, warn or error", Resolve: logLevel},
		{Name: "mail_server", Doc: "The SMTP server to send mail through", Resolve: orDefault("localhost")},
		{Name: "mail_encryption", Doc: "Type of encryption to use for SMTP; one of 'none', 'ssl', or 'tsl'", Resolve: mailEncryption},
		{Name: "mail_port", Doc: "The port to use to connect to the SMTP server", Resolve: mailPort},
		{Name: "mail_username", Doc: "The username for the SMTP server, or 'none' for no authentication", Resolve: mailUsername},
		{Name: "mail_password", Doc: "The password for the SMTP server", Resolve: orDefault("")},
		{Name: "mail_from", Doc: "The email address to send mail from", Resolve: orDefault("nobody@localhost")},
	}
}

func orDefault(def string) ResolveFunc {
	return func(_ *Store, raw string, ok bool) string {
		if !ok {
			return def
		}
		return raw
	}
}

func webRootURL(_ *Store, raw string, ok bool) string {
	if !ok || raw == "" {
		return "http://127.0.0.1/"
	}
	if strings.HasSuffix(raw, "/") {
		return raw
	}
	return raw + "/"
}

func dbPath(_ *Store, raw string, ok bool) string {
	if ok && raw != "" {
		return raw
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "duet", "history.db")
}

func logLevel(_ *Store, raw string, ok bool) string {
	switch strings.ToLower(raw) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(raw)
	}
	return "info"
}

func mailEncryption(_ *Store, raw string, ok bool) string {
	if raw == "ssl" || raw == "tsl" {
		return raw
	}
	return ""
}

// mailPort зависит от mail_encryption.
func mailPort(s *Store, raw string, ok bool) string {
	if ok && raw != "" {
		return raw
	}
	if s.value("mail_encryption") == "ssl" {
		return "465"
	}
	return "25"
}

func mailUsername(_ *Store, raw string, ok bool) string {
	switch raw {
	case "none", "None":
		return ""
	}
	return raw
}
