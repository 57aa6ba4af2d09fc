// Package handler exposes the drive's services over HTTP.
package handler

import (
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"

	"github.com/PaaDream1999/inspect-drive/internal/domain"
	"github.com/PaaDream1999/inspect-drive/internal/httputil"
)

// loginRedirectPath is where browsers without a usable identity are sent.
const loginRedirectPath = "/error/401"

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusOf(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "internal server error"
	}
	httputil.RespondError(w, status, detail)
}

// handleContentError is handleError plus a browser redirect when the only
// problem is a missing login. Content endpoints are opened directly in the
// browser, so a JSON 401 would dead-end the user.
func handleContentError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrLoginRequired) {
		http.Redirect(w, r, loginRedirectPath, http.StatusFound)
		return
	}
	handleError(w, err)
}

// clientIP returns the requesting client's address, preferring the first hop
// of X-Forwarded-For when a proxy is in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// setDisposition sets a Content-Disposition header that survives non-ASCII
// file names.
func setDisposition(w http.ResponseWriter, kind, fileName string) {
	disposition := mime.FormatMediaType(kind, map[string]string{"filename": fileName})
	if disposition == "" {
		disposition = fmt.Sprintf("%s; filename=%q", kind, fileName)
	}
	w.Header().Set("Content-Disposition", disposition)
}
