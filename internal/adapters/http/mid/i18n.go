// Package mid provides HTTP middleware. I18n selects the response locale from
// the lang cookie, the lang query parameter or the Accept-Language header.
package mid

import (
	"net/http"
	"time"

	"github.com/invopop/ctxi18n"

	"github.com/CoPhuocVinh/demo-kafka/internal/utils"
)

const langCookie = "lang"

// I18n stores the negotiated locale in the request context. A lang query
// parameter also persists the choice in a cookie.
func I18n(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("lang")

		lang := query
		if lang == "" {
			if c, err := r.Cookie(langCookie); err == nil {
				lang = c.Value
			}
		}
		if lang == "" {
			lang = r.Header.Get("Accept-Language")
		}

		ctx, err := ctxi18n.WithLocale(r.Context(), lang)
		if err != nil {
			utils.Logger.Debug("no locale available", "lang", lang, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		if query != "" {
			http.SetCookie(w, &http.Cookie{
				Name:     langCookie,
				Value:    ctxi18n.Locale(ctx).Code().String(),
				Path:     "/",
				SameSite: http.SameSiteLaxMode,
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
			})
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
