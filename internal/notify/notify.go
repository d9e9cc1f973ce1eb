// Package notify renders the page served at the end of an OAuth callback.
// The page posts exactly one typed message to window.opener and closes
// itself. opener.js is the matching listener for the originating window.
package notify

import (
	"bytes"
	"crypto/rand"
	_ "embed"
	"encoding/base64"
	"html/template"
	"net/http"

	"github.com/dropDatabas3/socialpulse/internal/providers"
)

const (
	TypeSuccess = "oauth-success"
	TypeError   = "oauth-error"
)

// Message is the payload delivered to the opener.
type Message struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Username string `json:"username,omitempty"`
	Error    string `json:"error,omitempty"`
}

func Success(p providers.Provider, username string) Message {
	return Message{Type: TypeSuccess, Platform: string(p), Username: username}
}

func Failure(p providers.Provider, reason string) Message {
	return Message{Type: TypeError, Platform: string(p), Error: reason}
}

// OK reports whether m is a success message.
func (m Message) OK() bool { return m.Type == TypeSuccess }

//go:embed opener.js
var openerJS []byte

// OpenerScript returns the originating-window helper.
func OpenerScript() []byte { return openerJS }

// html/template escapes Message and TargetOrigin as JSON inside <script>.
var page = template.Must(template.New("callback").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<p>{{.Title}}. You can close this window.</p>
<script nonce="{{.Nonce}}">
(function () {
  var msg = {{.Message}};
  try {
    if (window.opener && !window.opener.closed) {
      window.opener.postMessage(msg, {{.TargetOrigin}});
    }
  } finally {
    window.close();
  }
})();
</script>
</body>
</html>
`))

// Renderer writes callback pages. TargetOrigin restricts which opener
// origin may receive the message; "*" allows any.
type Renderer struct {
	TargetOrigin string
}

func NewRenderer(targetOrigin string) *Renderer {
	if targetOrigin == "" {
		targetOrigin = "*"
	}
	return &Renderer{TargetOrigin: targetOrigin}
}

// Render writes the page with a per-response CSP nonce.
func (r *Renderer) Render(w http.ResponseWriter, msg Message) error {
	nonce, err := newNonce()
	if err != nil {
		return err
	}
	title := providers.Provider(msg.Platform).DisplayName() + " connected"
	if !msg.OK() {
		title = providers.Provider(msg.Platform).DisplayName() + " connection failed"
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, map[string]any{
		"Title":        title,
		"Nonce":        nonce,
		"Message":      msg,
		"TargetOrigin": r.TargetOrigin,
	}); err != nil {
		return err
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Security-Policy", "default-src 'none'; script-src 'nonce-"+nonce+"'; base-uri 'none'; form-action 'none'")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(buf.Bytes())
	return err
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
