package web

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/liut/beeview/pkg/services/stores"
	"github.com/liut/beeview/pkg/settings"
)

const (
	headerAPIKey = "X-Api-Key"
	headerTabID  = "X-Tab-Id"
)

type ctxKey int

const sidKey ctxKey = iota

// sessionMw resolves the session of a request. A tab id header wins, so tabs of
// one browser keep their own cursor and chat; the cookie covers clients without one.
func (s *server) sessionMw(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := uuid.Parse(r.Header.Get(headerTabID)); err == nil {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sidKey, "tab-"+id.String())))
			return
		}
		var sid string
		if c, err := r.Cookie(settings.Current.CookieName); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				sid = id.String()
			}
		}
		if len(sid) == 0 {
			sid = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     settings.Current.CookieName,
				Value:    sid,
				Path:     settings.Current.CookiePath,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sidKey, sid)))
	})
}

func sessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey).(string)
	return sid
}

func apiKeyOf(r *http.Request) string {
	return r.Header.Get(headerAPIKey)
}

func (s *server) loadState(r *http.Request) (*stores.State, error) {
	return s.sessions.Load(r.Context(), sessionID(r.Context()))
}

func (s *server) saveState(ctx context.Context, st *stores.State) {
	if err := s.sessions.Save(ctx, st); err != nil {
		logger().Infow("save session fail", "sid", st.ID, "err", err)
	}
}
